package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"travelhub/internal/settings"
)

// SettingsStore reads and replaces the admin settings document.
type SettingsStore interface {
	Load(ctx context.Context) (*settings.Settings, error)
	Save(ctx context.Context, st *settings.Settings) error
}

// SettingsHandler exposes the settings file to admins.
type SettingsHandler struct {
	store SettingsStore
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// Get godoc
// @Summary Read admin settings
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} settings.Settings
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/settings [get]
func (h *SettingsHandler) Get(c echo.Context) error {
	st, err := h.store.Load(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, st)
}

// Put godoc
// @Summary Replace admin settings
// @Description The body replaces the stored document as a whole.
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body settings.Settings true "Settings"
// @Success 200 {object} settings.Settings
// @Failure 400 {object} errors.ErrorResponse
// @Router /admin/settings [put]
func (h *SettingsHandler) Put(c echo.Context) error {
	var st settings.Settings
	if err := c.Bind(&st); err != nil {
		return badRequest("invalid request body")
	}
	if err := h.store.Save(c.Request().Context(), &st); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, &st)
}
