package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"travelhub/internal/model"
)

// ErrTokenAlreadyConsumed is returned when a reset token lost the race to be used.
var ErrTokenAlreadyConsumed = errors.New("reset token already consumed")

// PasswordResetRepository defines reset token persistence operations.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *model.PasswordResetToken) error
	FindByToken(ctx context.Context, token string) (*model.PasswordResetToken, error)
	Consume(ctx context.Context, tokenID uint, userID uuid.UUID, passwordHash string, usedAt time.Time) error
}

type passwordResetRepository struct {
	db *gorm.DB
}

// NewPasswordResetRepository creates a new reset token repository.
func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

// Create stores a freshly issued token.
func (r *passwordResetRepository) Create(ctx context.Context, token *model.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindByToken finds a token by its secret value.
func (r *passwordResetRepository) FindByToken(ctx context.Context, token string) (*model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// Consume marks the token used and stores the new password hash in one
// transaction. The used=false guard makes a second consumer fail.
func (r *passwordResetRepository) Consume(ctx context.Context, tokenID uint, userID uuid.UUID, passwordHash string, usedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.PasswordResetToken{}).
			Where("id = ? AND used = ?", tokenID, false).
			Updates(map[string]interface{}{"used": true, "used_at": usedAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenAlreadyConsumed
		}

		res = tx.Model(&model.User{}).Where("id = ?", userID).Update("password_hash", passwordHash)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
