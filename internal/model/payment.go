package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus represents the status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentMethod is how the traveller paid.
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodPix          PaymentMethod = "pix"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// CanTransition reports whether a payment may move from s to next.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusPaid || next == PaymentStatusFailed
	case PaymentStatusPaid:
		return next == PaymentStatusRefunded
	default:
		return false
	}
}

// Payment records money received against a booking.
type Payment struct {
	ID         uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	UserID     uuid.UUID       `json:"user_id" gorm:"type:char(36);not null;index"`
	BookingRef string          `json:"booking_ref" gorm:"size:64;not null;index"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	Currency   string          `json:"currency" gorm:"type:char(3);not null"`
	Method     PaymentMethod   `json:"method" gorm:"type:varchar(20);not null"`
	CardMasked string          `json:"card_masked,omitempty" gorm:"size:19"`
	Status     PaymentStatus   `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PaymentLog is one status transition of a payment.
type PaymentLog struct {
	ID        uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	PaymentID uuid.UUID     `json:"payment_id" gorm:"type:char(36);not null;index"`
	From      PaymentStatus `json:"from" gorm:"column:from_status;type:varchar(20)"`
	To        PaymentStatus `json:"to" gorm:"column:to_status;type:varchar(20);not null"`
	ChangedBy uuid.UUID     `json:"changed_by" gorm:"type:char(36)"`
	CreatedAt time.Time     `json:"created_at"`

	Payment Payment `json:"-" gorm:"foreignKey:PaymentID"`
}

// BeforeCreate sets UUID before creating the record.
func (pl *PaymentLog) BeforeCreate(tx *gorm.DB) error {
	if pl.ID == uuid.Nil {
		pl.ID = uuid.New()
	}
	return nil
}
