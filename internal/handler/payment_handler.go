package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"travelhub/internal/auth"
	"travelhub/internal/errors"
	"travelhub/internal/model"
	"travelhub/internal/repository"
	"travelhub/internal/service"
)

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePaymentRequest represents a payment against a booking.
type CreatePaymentRequest struct {
	BookingRef string `json:"booking_ref" validate:"required,max=64"`
	Amount     string `json:"amount" validate:"required"`
	Currency   string `json:"currency" validate:"required,len=3"`
	Method     string `json:"method" validate:"required,oneof=card pix bank_transfer"`
	CardNumber string `json:"card_number" validate:"required_if=Method card"`
	CardExpiry string `json:"card_expiry" validate:"required_if=Method card"`
	CardCVV    string `json:"card_cvv" validate:"required_if=Method card"`
}

// UpdatePaymentStatusRequest moves a payment through its lifecycle.
type UpdatePaymentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=paid failed refunded"`
}

// PaymentsResponse lists payments.
type PaymentsResponse struct {
	Payments []model.Payment `json:"payments"`
}

// PaymentHistoryResponse lists the status changes of one payment.
type PaymentHistoryResponse struct {
	Logs []model.PaymentLog `json:"logs"`
}

func currentUserID(c echo.Context) (uuid.UUID, error) {
	if user := auth.UserFrom(c); user != nil {
		return user.ID, nil
	}
	if claims := auth.ClaimsFrom(c); claims != nil {
		if id, err := uuid.Parse(claims.UserID); err == nil {
			return id, nil
		}
	}
	return uuid.Nil, unauthenticated()
}

func paymentID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid payment id")
	}
	return id, nil
}

// Create godoc
// @Summary Record a payment for a booking
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePaymentRequest true "Payment data"
// @Success 201 {object} model.Payment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /payments [post]
func (h *PaymentHandler) Create(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req CreatePaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return fail(errors.ErrInvalidAmount)
	}

	payment, err := h.paymentService.Create(c.Request().Context(), userID, service.CreatePaymentInput{
		BookingRef: req.BookingRef,
		Amount:     amount,
		Currency:   req.Currency,
		Method:     model.PaymentMethod(req.Method),
		CardNumber: req.CardNumber,
		CardExpiry: req.CardExpiry,
		CardCVV:    req.CardCVV,
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, payment)
}

// ListMine godoc
// @Summary List the caller's payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} PaymentsResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /payments [get]
func (h *PaymentHandler) ListMine(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	payments, err := h.paymentService.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, PaymentsResponse{Payments: payments})
}

// ListAll godoc
// @Summary List all payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param user_id query string false "Filter by user"
// @Param limit query int false "Page size (max 200)"
// @Param offset query int false "Offset"
// @Success 200 {object} PaymentsResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/payments [get]
func (h *PaymentHandler) ListAll(c echo.Context) error {
	filter := repository.PaymentFilter{Status: model.PaymentStatus(c.QueryParam("status"))}
	if raw := c.QueryParam("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest("invalid user_id")
		}
		filter.UserID = id
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest("invalid limit")
		}
		filter.Limit = n
	}
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest("invalid offset")
		}
		filter.Offset = n
	}

	payments, err := h.paymentService.ListAll(c.Request().Context(), filter)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, PaymentsResponse{Payments: payments})
}

// UpdateStatus godoc
// @Summary Change a payment status
// @Description Allowed: pending to paid or failed, paid to refunded.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param request body UpdatePaymentStatusRequest true "New status"
// @Success 200 {object} model.Payment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/payments/{id}/status [patch]
func (h *PaymentHandler) UpdateStatus(c echo.Context) error {
	id, err := paymentID(c)
	if err != nil {
		return err
	}
	adminID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req UpdatePaymentStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	payment, err := h.paymentService.UpdateStatus(c.Request().Context(), id, model.PaymentStatus(req.Status), adminID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, payment)
}

// History godoc
// @Summary Status history of a payment
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} PaymentHistoryResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/payments/{id}/logs [get]
func (h *PaymentHandler) History(c echo.Context) error {
	id, err := paymentID(c)
	if err != nil {
		return err
	}
	logs, err := h.paymentService.History(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, PaymentHistoryResponse{Logs: logs})
}
