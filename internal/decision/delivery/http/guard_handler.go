package http

import (
	"errors"
	"net/http"

	"golang-etf-decision/internal/decision/dto"
	"golang-etf-decision/internal/decision/service"
	"golang-etf-decision/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GuardHandler handles HTTP requests for the external risk guard.
type GuardHandler struct {
	guardService service.GuardService
	logger       *logger.Logger
}

// NewGuardHandler creates a new GuardHandler.
func NewGuardHandler(guardService service.GuardService, logger *logger.Logger) *GuardHandler {
	return &GuardHandler{guardService: guardService, logger: logger}
}

// RegisterRoutes registers the guard routes to the Echo group.
func (h *GuardHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetGuard)
	g.PUT("", h.ActivateGuard)
	g.DELETE("", h.DeactivateGuard)
}

// GetGuard godoc
// @Summary Risk guard status
// @Tags guard
// @Produce  json
// @Success 200 {object} dto.GuardResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /guard [get]
func (h *GuardHandler) GetGuard(c echo.Context) error {
	status, err := h.guardService.Status(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get risk guard", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get risk guard"})
	}
	return c.JSON(http.StatusOK, status)
}

// ActivateGuard godoc
// @Summary Activate the risk guard
// @Description Forces every RISK_ON signal to RISK_OFF until deactivated or the ttl expires
// @Tags guard
// @Accept  json
// @Produce  json
// @Param   request  body    dto.GuardRequest  true  "Reason and optional ttl (Go duration)"
// @Success 200 {object} dto.GuardResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /guard [put]
func (h *GuardHandler) ActivateGuard(c echo.Context) error {
	var req dto.GuardRequest
	if errs := readAndValidate(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, errs)
	}

	status, err := h.guardService.Activate(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to activate risk guard"})
	}
	return c.JSON(http.StatusOK, status)
}

// DeactivateGuard godoc
// @Summary Deactivate the risk guard
// @Tags guard
// @Success 204 {object} nil
// @Failure 500 {object} dto.ErrorResponse
// @Router /guard [delete]
func (h *GuardHandler) DeactivateGuard(c echo.Context) error {
	if err := h.guardService.Deactivate(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to deactivate risk guard"})
	}
	return c.NoContent(http.StatusNoContent)
}
