package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrForbiddenRole is returned when a valid identity lacks the required role.
	ErrForbiddenRole = errors.New("insufficient role")
	// ErrAccountInactive is returned when the user has been deactivated.
	ErrAccountInactive = errors.New("account is not active")
	// ErrDuplicateEmail is returned when registering an email that is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateCPF is returned when registering a cpf that is already taken.
	ErrDuplicateCPF = errors.New("cpf already registered")

	// ErrPasswordTooShort is returned when a new password has fewer than 6 characters.
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	// ErrPasswordTooLong is returned when a new password exceeds bcrypt's 72 byte input limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
	// ErrResetTokenInvalid is returned when a reset token does not exist.
	ErrResetTokenInvalid = errors.New("invalid reset token")
	// ErrResetTokenExpired is returned when a reset token is past its expiry.
	ErrResetTokenExpired = errors.New("reset token expired")
	// ErrResetTokenUsed is returned when a reset token was already consumed.
	ErrResetTokenUsed = errors.New("reset token already used")

	// ErrModuleNotFound is returned when a module id does not resolve.
	ErrModuleNotFound = errors.New("module not found")
	// ErrDuplicateModuleName is returned when another module already has the name.
	ErrDuplicateModuleName = errors.New("module name already exists")
	// ErrModuleFieldsRequired is returned when name, label or icon is missing.
	ErrModuleFieldsRequired = errors.New("name, label and icon are required")
	// ErrInvalidModuleConfig is returned when a module config fails validation.
	ErrInvalidModuleConfig = errors.New("invalid module config")

	// ErrPaymentNotFound is returned when a payment id does not resolve.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrInvalidAmount is returned when amount is invalid.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidCurrency is returned when currency is not a 3-letter code.
	ErrInvalidCurrency = errors.New("currency must be a 3-letter ISO code")
	// ErrInvalidPaymentMethod is returned for an unsupported payment method.
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	// ErrInvalidCard is returned when card validation fails.
	ErrInvalidCard = errors.New("invalid card")
	// ErrInvalidStatusTransition is returned for a disallowed payment status change.
	ErrInvalidStatusTransition = errors.New("invalid payment status transition")

	// ErrStoreUnavailable is returned when the backing store did not answer in time.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// verbatim mappings expose the wrapped message, which carries field details.
var mappings = []struct {
	err      error
	status   int
	code     string
	verbatim bool
}{
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", false},
	{ErrForbiddenRole, http.StatusForbidden, "FORBIDDEN", false},
	{ErrAccountInactive, http.StatusForbidden, "ACCOUNT_INACTIVE", false},
	{ErrDuplicateEmail, http.StatusBadRequest, "DUPLICATE_EMAIL", false},
	{ErrDuplicateCPF, http.StatusBadRequest, "DUPLICATE_CPF", false},
	{ErrPasswordTooShort, http.StatusBadRequest, "PASSWORD_TOO_SHORT", false},
	{ErrPasswordTooLong, http.StatusBadRequest, "PASSWORD_TOO_LONG", false},
	{ErrResetTokenInvalid, http.StatusBadRequest, "INVALID_RESET_TOKEN", false},
	{ErrResetTokenExpired, http.StatusBadRequest, "RESET_TOKEN_EXPIRED", false},
	{ErrResetTokenUsed, http.StatusBadRequest, "RESET_TOKEN_USED", false},
	{ErrModuleNotFound, http.StatusNotFound, "MODULE_NOT_FOUND", false},
	{ErrDuplicateModuleName, http.StatusBadRequest, "DUPLICATE_MODULE_NAME", false},
	{ErrModuleFieldsRequired, http.StatusBadRequest, "MODULE_FIELDS_REQUIRED", false},
	{ErrInvalidModuleConfig, http.StatusBadRequest, "INVALID_MODULE_CONFIG", true},
	{ErrPaymentNotFound, http.StatusNotFound, "PAYMENT_NOT_FOUND", false},
	{ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT", false},
	{ErrInvalidCurrency, http.StatusBadRequest, "INVALID_CURRENCY", false},
	{ErrInvalidPaymentMethod, http.StatusBadRequest, "INVALID_PAYMENT_METHOD", false},
	{ErrInvalidCard, http.StatusBadRequest, "INVALID_CARD", false},
	{ErrInvalidStatusTransition, http.StatusBadRequest, "INVALID_STATUS_TRANSITION", false},
	{ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", false},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors keep the
// message of the sentinel; anything unknown becomes a generic 500.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			if m.verbatim {
				return NewHTTPError(m.status, err.Error(), m.code)
			}
			return NewHTTPError(m.status, m.err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
