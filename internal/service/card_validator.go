package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"travelhub/internal/errors"
)

var (
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
	cvvPattern    = regexp.MustCompile(`^\d{3,4}$`)
)

// CardValidator validates card information.
type CardValidator struct {
	now func() time.Time
}

// NewCardValidator creates a new card validator.
func NewCardValidator() *CardValidator {
	return &CardValidator{now: time.Now}
}

// ValidateCard validates card number, expiry, and CVV.
func (v *CardValidator) ValidateCard(cardNumber, expiry, cvv string) error {
	if !luhnValid(normalizeCardNumber(cardNumber)) {
		return errors.ErrInvalidCard
	}
	if !expiryPattern.MatchString(expiry) || !v.notExpired(expiry) {
		return errors.ErrInvalidCard
	}
	if !cvvPattern.MatchString(cvv) {
		return errors.ErrInvalidCard
	}
	return nil
}

func normalizeCardNumber(cardNumber string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(cardNumber)
}

// luhnValid validates a 13 to 19 digit card number using the Luhn algorithm.
func luhnValid(number string) bool {
	if len(number) < 13 || len(number) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		digit, err := strconv.Atoi(string(number[i]))
		if err != nil {
			return false
		}
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}

// notExpired reports whether the MM/YY expiry is the current month or later.
func (v *CardValidator) notExpired(expiry string) bool {
	month, err := strconv.Atoi(expiry[:2])
	if err != nil {
		return false
	}
	year, err := strconv.Atoi(expiry[3:])
	if err != nil {
		return false
	}

	now := v.now().UTC()
	firstOfExpiry := time.Date(2000+year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return !firstOfExpiry.Before(firstOfThisMonth)
}

// MaskCardNumber masks a card number, showing only last 4 digits.
func (v *CardValidator) MaskCardNumber(cardNumber string) string {
	cardNumber = normalizeCardNumber(cardNumber)
	if len(cardNumber) < 4 {
		return "****"
	}
	return "****" + cardNumber[len(cardNumber)-4:]
}
