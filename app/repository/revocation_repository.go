package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/loglens/loglens/app/models"
)

// revocationRepository implements the RevocationRepository interface
type revocationRepository struct {
	db *gorm.DB
}

// NewRevocationRepository creates a new revocation repository instance
func NewRevocationRepository(db *gorm.DB) RevocationRepository {
	return &revocationRepository{db: db}
}

// Revoke adds a token to the user's revocation list; revoking twice is a no-op
func (r *revocationRepository) Revoke(userID uint, tokenID, reason string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "token_id"}},
		DoNothing: true,
	}).Create(&models.RevokedToken{
		UserID:  userID,
		TokenID: tokenID,
		Reason:  reason,
	}).Error
}

// IsRevoked reports whether the token appears in the user's revocation list
func (r *revocationRepository) IsRevoked(userID uint, tokenID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.RevokedToken{}).
		Where("user_id = ? AND token_id = ?", userID, tokenID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
