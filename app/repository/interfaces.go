package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/loglens/loglens/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
	CountCreatedSince(since time.Time) (int64, error)
}

// TrialRepository defines the interface for trial license persistence.
// CreateIfAbsent must be atomic so concurrent activations for one
// installation cannot produce duplicate rows.
type TrialRepository interface {
	GetByInstallationID(installationID string) (*models.TrialLicense, error)
	CreateIfAbsent(trial *models.TrialLicense, fingerprintHash string) (bool, *models.TrialLicense, error)
	FingerprintUsed(fingerprintHash string) (bool, error)
	// ExtendTrial re-checks the extension rules and flips the extended flag
	// in one transaction; it returns the updated row.
	ExtendTrial(installationID string, userID uint, email string) (*models.TrialLicense, error)
	GetUserTrial(userID uint) (*models.UserTrial, error)
	CreateUserTrial(trial *models.UserTrial) (bool, *models.UserTrial, error)
	CountActive() (int64, error)
	CountCreatedSince(since time.Time) (int64, error)
}

// RevocationRepository maintains per-user token revocation lists.
type RevocationRepository interface {
	Revoke(userID uint, tokenID, reason string) error
	IsRevoked(userID uint, tokenID string) (bool, error)
}

// UsageRepository persists flushed usage counters.
type UsageRepository interface {
	AddUsage(subject, day string, logs, recordings int64) error
	GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User       UserRepository
	Trial      TrialRepository
	Revocation RevocationRepository
	Usage      UsageRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Trial:      NewTrialRepository(db),
		Revocation: NewRevocationRepository(db),
		Usage:      NewUsageRepository(db),
	}
}
