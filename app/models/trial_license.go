package models

import (
	"time"

	"github.com/loglens/loglens/internal/pkg/licensing"
)

// TrialLicense persists one extension trial per installation. Rows are never
// deleted; an expired row is the permanent marker that this install already
// had its trial. The fingerprint columns are client-reported anti-abuse
// signals, not credentials.
type TrialLicense struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	InstallationID string     `gorm:"type:varchar(100);not null;uniqueIndex" json:"installation_id"`
	Browser        string     `gorm:"type:varchar(50);not null" json:"browser"`
	BrowserVersion string     `gorm:"type:varchar(50);default:''" json:"browser_version"`
	OS             string     `gorm:"type:varchar(50);not null" json:"os"`
	OSVersion      string     `gorm:"type:varchar(50);default:''" json:"os_version"`
	Timezone       string     `gorm:"type:varchar(64);default:''" json:"timezone"`
	Language       string     `gorm:"type:varchar(16);default:''" json:"language"`
	ScreenClass    string     `gorm:"type:varchar(20);default:''" json:"screen_class"`
	TokenID        string     `gorm:"type:char(36);not null" json:"token_id"`
	ExpiresAt      time.Time  `gorm:"not null;index" json:"expires_at"`
	IP             string     `gorm:"type:varchar(45);default:''" json:"-"`
	Country        string     `gorm:"type:varchar(2);default:''" json:"-"`
	Extended       bool       `gorm:"default:false" json:"extended"`
	UserID         *uint      `gorm:"index" json:"user_id,omitempty"`
	Email          string     `gorm:"type:varchar(200);default:''" json:"-"`
	ExtendedAt     *time.Time `gorm:"type:timestamp;default:null" json:"extended_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TrialFingerprint is the duplicate-device index: one row per fingerprint
// hash that has ever been granted a trial.
type TrialFingerprint struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	FingerprintHash string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"fingerprint_hash"`
	InstallationID  string    `gorm:"type:varchar(100);not null" json:"installation_id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserTrial persists a web-originated trial keyed by user account.
type UserTrial struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	TokenID   string    `gorm:"type:char(36);not null" json:"token_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewTrialLicenseModel maps a core trial value onto the persistence model.
func NewTrialLicenseModel(t licensing.TrialLicense) *TrialLicense {
	return &TrialLicense{
		InstallationID: t.InstallationID,
		Browser:        t.Fingerprint.Browser,
		BrowserVersion: t.Fingerprint.BrowserVersion,
		OS:             t.Fingerprint.OS,
		OSVersion:      t.Fingerprint.OSVersion,
		Timezone:       t.Fingerprint.Timezone,
		Language:       t.Fingerprint.Language,
		ScreenClass:    t.Fingerprint.ScreenClass,
		TokenID:        t.TokenID,
		ExpiresAt:      t.ExpiresAt,
		IP:             t.IP,
		Country:        t.Country,
	}
}

// ToCore converts the persisted row back into the core trial value consumed
// by the licensing package.
func (t *TrialLicense) ToCore() licensing.TrialLicense {
	core := licensing.TrialLicense{
		InstallationID: t.InstallationID,
		Fingerprint: licensing.DeviceFingerprint{
			InstallationID: t.InstallationID,
			Browser:        t.Browser,
			BrowserVersion: t.BrowserVersion,
			OS:             t.OS,
			OSVersion:      t.OSVersion,
			Timezone:       t.Timezone,
			Language:       t.Language,
			ScreenClass:    t.ScreenClass,
		},
		TokenID:   t.TokenID,
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
		IP:        t.IP,
		Country:   t.Country,
		Extended:  t.Extended,
		Email:     t.Email,
	}
	if t.UserID != nil {
		core.UserID = FormatUserID(*t.UserID)
	}
	return core
}
