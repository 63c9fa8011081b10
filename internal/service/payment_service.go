package service

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"travelhub/internal/errors"
	"travelhub/internal/model"
	"travelhub/internal/repository"
)

// CreatePaymentInput is a traveller paying for a booking.
type CreatePaymentInput struct {
	BookingRef string
	Amount     decimal.Decimal
	Currency   string
	Method     model.PaymentMethod
	CardNumber string
	CardExpiry string
	CardCVV    string
}

// PaymentService records booking payments and their status history.
type PaymentService interface {
	Create(ctx context.Context, userID uuid.UUID, in CreatePaymentInput) (*model.Payment, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Payment, error)
	ListAll(ctx context.Context, filter repository.PaymentFilter) ([]model.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to model.PaymentStatus, changedBy uuid.UUID) (*model.Payment, error)
	History(ctx context.Context, id uuid.UUID) ([]model.PaymentLog, error)
}

type paymentService struct {
	repo      repository.PaymentRepository
	validator *CardValidator
	log       *zap.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(repo repository.PaymentRepository, log *zap.Logger) PaymentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &paymentService{
		repo:      repo,
		validator: NewCardValidator(),
		log:       log,
	}
}

// Create validates and records a pending payment. Card numbers are stored masked.
func (s *paymentService) Create(ctx context.Context, userID uuid.UUID, in CreatePaymentInput) (*model.Payment, error) {
	if !in.Amount.IsPositive() || !in.Amount.Equal(in.Amount.Round(2)) {
		return nil, errors.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if !isCurrencyCode(currency) {
		return nil, errors.ErrInvalidCurrency
	}

	payment := &model.Payment{
		UserID:     userID,
		BookingRef: strings.TrimSpace(in.BookingRef),
		Amount:     in.Amount,
		Currency:   currency,
		Method:     in.Method,
		Status:     model.PaymentStatusPending,
	}

	switch in.Method {
	case model.PaymentMethodCard:
		if err := s.validator.ValidateCard(in.CardNumber, in.CardExpiry, in.CardCVV); err != nil {
			return nil, err
		}
		payment.CardMasked = s.validator.MaskCardNumber(in.CardNumber)
	case model.PaymentMethodPix, model.PaymentMethodBankTransfer:
	default:
		return nil, errors.ErrInvalidPaymentMethod
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.log.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("currency", currency),
	)
	return payment, nil
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// ListForUser returns the caller's own payments.
func (s *paymentService) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Payment, error) {
	payments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// ListAll returns payments for the back-office.
func (s *paymentService) ListAll(ctx context.Context, filter repository.PaymentFilter) ([]model.Payment, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	payments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// UpdateStatus applies a status transition and logs who made it.
func (s *paymentService) UpdateStatus(ctx context.Context, id uuid.UUID, to model.PaymentStatus, changedBy uuid.UUID) (*model.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}

	if !payment.Status.CanTransition(to) {
		return nil, errors.ErrInvalidStatusTransition
	}

	from := payment.Status
	err = s.repo.UpdateStatus(ctx, payment, to, changedBy)
	if stdErrors.Is(err, repository.ErrStatusChanged) {
		return nil, errors.ErrInvalidStatusTransition
	}
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	s.log.Info("payment status changed",
		zap.String("payment_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("changed_by", changedBy.String()),
	)
	return payment, nil
}

// History returns the status log of a payment.
func (s *paymentService) History(ctx context.Context, id uuid.UUID) ([]model.PaymentLog, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	logs, err := s.repo.Logs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("payment history: %w", err)
	}
	return logs, nil
}
