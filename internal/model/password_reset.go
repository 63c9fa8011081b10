package model

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken is a single-use credential that authorises one password change.
type PasswordResetToken struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Token     string     `json:"-" gorm:"size:64;uniqueIndex;not null"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:char(36);not null;index"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	Used      bool       `json:"used" gorm:"not null;default:false"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// Expired reports whether the token can no longer be used at now.
func (t *PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
