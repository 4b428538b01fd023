package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/loglens/loglens/app/models"
	"github.com/loglens/loglens/internal/pkg/licensing"
)

// Sentinel errors mapped to activation/extension reasons by the callers.
var (
	ErrTrialNotFound        = errors.New("trial not found")
	ErrTrialExpired         = errors.New("trial expired")
	ErrTrialAlreadyExtended = errors.New("trial already extended")
)

// trialRepository implements the TrialRepository interface
type trialRepository struct {
	db *gorm.DB
}

// NewTrialRepository creates a new trial repository instance
func NewTrialRepository(db *gorm.DB) TrialRepository {
	return &trialRepository{db: db}
}

// GetByInstallationID retrieves the trial for an extension install
func (r *trialRepository) GetByInstallationID(installationID string) (*models.TrialLicense, error) {
	var trial models.TrialLicense
	err := r.db.Where("installation_id = ?", installationID).First(&trial).Error
	if err != nil {
		return nil, err
	}
	return &trial, nil
}

// CreateIfAbsent inserts the trial and its fingerprint marker atomically.
// A concurrent activation for the same installation loses the insert race
// and gets the already-stored row back, so activation stays idempotent.
func (r *trialRepository) CreateIfAbsent(trial *models.TrialLicense, fingerprintHash string) (bool, *models.TrialLicense, error) {
	var created bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "installation_id"}},
			DoNothing: true,
		}).Create(trial)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		if !created {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fingerprint_hash"}},
			DoNothing: true,
		}).Create(&models.TrialFingerprint{
			FingerprintHash: fingerprintHash,
			InstallationID:  trial.InstallationID,
		}).Error
	})
	if err != nil {
		return false, nil, err
	}

	var stored models.TrialLicense
	if err := r.db.Where("installation_id = ?", trial.InstallationID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// FingerprintUsed reports whether an equivalent device already consumed a trial
func (r *trialRepository) FingerprintUsed(fingerprintHash string) (bool, error) {
	var count int64
	err := r.db.Model(&models.TrialFingerprint{}).
		Where("fingerprint_hash = ?", fingerprintHash).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExtendTrial applies the one-time trial extension inside a transaction. The
// row is locked, the extension rules are re-checked against the locked
// snapshot, and the one-extension-per-account rule is enforced in the same
// transaction so two concurrent extensions cannot both succeed.
func (r *trialRepository) ExtendTrial(installationID string, userID uint, email string) (*models.TrialLicense, error) {
	var updated models.TrialLicense
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var trial models.TrialLicense
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("installation_id = ?", installationID).
			First(&trial).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTrialNotFound
			}
			return err
		}

		core := trial.ToCore()
		if check := licensing.CanExtendTrial(&core); !check.Allowed {
			switch check.Reason {
			case licensing.ReasonAlreadyExtended:
				return ErrTrialAlreadyExtended
			case licensing.ReasonTrialExpired:
				return ErrTrialExpired
			default:
				return ErrTrialNotFound
			}
		}

		// One extension per account, across all trials ever linked to it.
		var extendedCount int64
		if err := tx.Model(&models.TrialLicense{}).
			Where("user_id = ? AND extended = ?", userID, true).
			Count(&extendedCount).Error; err != nil {
			return err
		}
		if extendedCount > 0 {
			return ErrTrialAlreadyExtended
		}

		now := time.Now()
		trial.Extended = true
		trial.ExpiresAt = licensing.ExtendedExpiry(trial.ExpiresAt)
		trial.UserID = &userID
		trial.Email = email
		trial.ExtendedAt = &now
		if err := tx.Save(&trial).Error; err != nil {
			return err
		}
		updated = trial
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetUserTrial retrieves a web-originated trial by user ID
func (r *trialRepository) GetUserTrial(userID uint) (*models.UserTrial, error) {
	var trial models.UserTrial
	err := r.db.Where("user_id = ?", userID).First(&trial).Error
	if err != nil {
		return nil, err
	}
	return &trial, nil
}

// CreateUserTrial inserts a web trial once per user; a second call returns
// the stored row unchanged.
func (r *trialRepository) CreateUserTrial(trial *models.UserTrial) (bool, *models.UserTrial, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(trial)
	if res.Error != nil {
		return false, nil, res.Error
	}
	var stored models.UserTrial
	if err := r.db.Where("user_id = ?", trial.UserID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return res.RowsAffected > 0, &stored, nil
}

// CountActive returns the number of currently running trials
func (r *trialRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&models.TrialLicense{}).
		Where("expires_at > ?", time.Now()).
		Count(&count).Error
	return count, err
}

// CountCreatedSince returns the number of trials activated after the given time
func (r *trialRepository) CountCreatedSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.TrialLicense{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}
