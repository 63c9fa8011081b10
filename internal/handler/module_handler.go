package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"travelhub/internal/model"
	"travelhub/internal/service"
)

// ModuleHandler serves the feature registry.
type ModuleHandler struct {
	moduleService service.ModuleService
}

// NewModuleHandler creates a new module handler.
func NewModuleHandler(moduleService service.ModuleService) *ModuleHandler {
	return &ModuleHandler{moduleService: moduleService}
}

// CreateModuleRequest represents a new module.
type CreateModuleRequest struct {
	Name   string              `json:"name" validate:"required,max=100"`
	Label  string              `json:"label" validate:"required,max=255"`
	Icon   string              `json:"icon" validate:"required,max=100"`
	Active *bool               `json:"active"`
	Order  int                 `json:"order"`
	Config *model.ModuleConfig `json:"config" validate:"-"`
}

// UpdateModuleRequest carries only the fields to change.
type UpdateModuleRequest struct {
	Name   *string             `json:"name" validate:"omitempty,max=100"`
	Label  *string             `json:"label" validate:"omitempty,max=255"`
	Icon   *string             `json:"icon" validate:"omitempty,max=100"`
	Active *bool               `json:"active"`
	Order  *int                `json:"order"`
	Config *model.ModuleConfig `json:"config" validate:"-"`
}

// ModulesResponse lists modules in display order.
type ModulesResponse struct {
	Modules []model.Module `json:"modules"`
}

func moduleID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid module id")
	}
	return uint(id), nil
}

// ListActive godoc
// @Summary List modules the storefront should render
// @Tags modules
// @Produce json
// @Success 200 {object} ModulesResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /modules [get]
func (h *ModuleHandler) ListActive(c echo.Context) error {
	modules, err := h.moduleService.ListActive(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, ModulesResponse{Modules: modules})
}

// List godoc
// @Summary List every module, active or not
// @Tags modules
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ModulesResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/modules [get]
func (h *ModuleHandler) List(c echo.Context) error {
	modules, err := h.moduleService.List(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, ModulesResponse{Modules: modules})
}

// Create godoc
// @Summary Create a module
// @Tags modules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateModuleRequest true "Module"
// @Success 201 {object} model.Module
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /modules [post]
func (h *ModuleHandler) Create(c echo.Context) error {
	var req CreateModuleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	module, err := h.moduleService.Create(c.Request().Context(), service.ModuleInput{
		Name:   req.Name,
		Label:  req.Label,
		Icon:   req.Icon,
		Active: req.Active,
		Order:  req.Order,
		Config: req.Config,
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, module)
}

// Update godoc
// @Summary Partially update a module
// @Description Fields left out of the body keep their stored value. A supplied config replaces the stored one.
// @Tags modules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Module ID"
// @Param request body UpdateModuleRequest true "Fields to change"
// @Success 200 {object} model.Module
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /modules/{id} [put]
func (h *ModuleHandler) Update(c echo.Context) error {
	id, err := moduleID(c)
	if err != nil {
		return err
	}
	var req UpdateModuleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	module, err := h.moduleService.Update(c.Request().Context(), id, service.ModulePatch{
		Name:   req.Name,
		Label:  req.Label,
		Icon:   req.Icon,
		Active: req.Active,
		Order:  req.Order,
		Config: req.Config,
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, module)
}

// Delete godoc
// @Summary Delete a module
// @Tags modules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Module ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /modules/{id} [delete]
func (h *ModuleHandler) Delete(c echo.Context) error {
	id, err := moduleID(c)
	if err != nil {
		return err
	}
	if err := h.moduleService.Delete(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "module deleted"})
}
