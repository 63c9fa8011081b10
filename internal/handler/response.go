package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"travelhub/internal/errors"
)

// MessageResponse is a body carrying only a human readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

func badRequest(message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: message,
		Code:  "INVALID_REQUEST",
	})
}

func validationFailed(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: err.Error(),
		Code:  "VALIDATION_FAILED",
	})
}

// fail renders a domain error; unknown errors become a logged 500.
func fail(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	he := echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	if httpErr.StatusCode >= http.StatusInternalServerError {
		return he.SetInternal(err)
	}
	return he
}

// bindAndValidate decodes the body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return validationFailed(err)
	}
	return nil
}

func unauthenticated() error {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
		Error: "authentication required",
		Code:  "UNAUTHENTICATED",
	})
}
