package models

import "time"

// RevokedToken is one entry in a user's token revocation list. A token that
// passes signature and payload verification is still rejected when its token
// ID appears here.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:ux_revoked_tokens_user_token,unique,priority:1" json:"user_id"`
	TokenID   string    `gorm:"type:char(36);not null;index:ux_revoked_tokens_user_token,unique,priority:2" json:"token_id"`
	Reason    string    `gorm:"type:varchar(100);default:''" json:"reason"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Revocation reasons recorded for audit purposes.
const (
	RevocationReasonRefresh = "refresh"
	RevocationReasonLogout  = "logout"
	RevocationReasonManual  = "manual"
)
