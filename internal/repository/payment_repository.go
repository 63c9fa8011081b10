package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"travelhub/internal/model"
)

// ErrStatusChanged is returned when a payment moved on before the update landed.
var ErrStatusChanged = errors.New("payment status changed concurrently")

// PaymentFilter narrows an admin listing.
type PaymentFilter struct {
	Status model.PaymentStatus
	UserID uuid.UUID
	Limit  int
	Offset int
}

// PaymentRepository defines payment persistence operations.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Payment, error)
	List(ctx context.Context, filter PaymentFilter) ([]model.Payment, error)
	UpdateStatus(ctx context.Context, payment *model.Payment, to model.PaymentStatus, changedBy uuid.UUID) error
	Logs(ctx context.Context, paymentID uuid.UUID) ([]model.PaymentLog, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a new payment record together with its first log entry.
func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		return tx.Create(&model.PaymentLog{
			PaymentID: payment.ID,
			To:        payment.Status,
			ChangedBy: payment.UserID,
		}).Error
	})
}

// FindByID finds a payment by ID.
func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByUser returns a user's payments, newest first.
func (r *paymentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// List returns payments matching filter, newest first.
func (r *paymentRepository) List(ctx context.Context, filter PaymentFilter) ([]model.Payment, error) {
	q := r.db.WithContext(ctx).Model(&model.Payment{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var payments []model.Payment
	if err := q.Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// UpdateStatus moves payment to status `to` if it is still in its loaded
// status, and appends the transition to the payment log.
func (r *paymentRepository) UpdateStatus(ctx context.Context, payment *model.Payment, to model.PaymentStatus, changedBy uuid.UUID) error {
	from := payment.Status
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Payment{}).
			Where("id = ? AND status = ?", payment.ID, from).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusChanged
		}
		return tx.Create(&model.PaymentLog{
			PaymentID: payment.ID,
			From:      from,
			To:        to,
			ChangedBy: changedBy,
		}).Error
	})
	if err != nil {
		return err
	}
	payment.Status = to
	return nil
}

// Logs returns the status history of a payment, oldest first.
func (r *paymentRepository) Logs(ctx context.Context, paymentID uuid.UUID) ([]model.PaymentLog, error) {
	var logs []model.PaymentLog
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).Order("created_at ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
