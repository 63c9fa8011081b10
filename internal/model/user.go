package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enumerates who a user is to the system.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// User represents a customer or back-office account.
type User struct {
	ID           uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string         `json:"name" gorm:"size:255;not null"`
	Email        string         `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string         `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role           `json:"role" gorm:"type:varchar(16);not null;default:'client';index"`
	Active       bool           `json:"active" gorm:"not null;index"`
	Phone        *string        `json:"phone,omitempty" gorm:"size:32"`
	CPF          *string        `json:"cpf,omitempty" gorm:"size:14;uniqueIndex"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether the user may use the back-office.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
