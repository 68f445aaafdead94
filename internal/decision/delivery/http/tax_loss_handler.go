package http

import (
	"errors"
	"net/http"

	"golang-etf-decision/internal/decision/dto"
	"golang-etf-decision/internal/decision/service"
	"golang-etf-decision/internal/taxloss"
	"golang-etf-decision/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TaxLossHandler handles HTTP requests for the tax loss ledger.
type TaxLossHandler struct {
	taxLossService service.TaxLossService
	logger         *logger.Logger
}

// NewTaxLossHandler creates a new TaxLossHandler.
func NewTaxLossHandler(taxLossService service.TaxLossService, logger *logger.Logger) *TaxLossHandler {
	return &TaxLossHandler{taxLossService: taxLossService, logger: logger}
}

// RegisterRoutes registers the tax loss routes to the Echo group.
func (h *TaxLossHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/allocations", h.Allocate)
	g.GET("/lots", h.ListLots)
}

// Allocate godoc
// @Summary Offset a realized gain
// @Description Consumes loss lots soonest-expiry first. A shortfall is reported, not an error.
// @Tags tax-loss
// @Accept  json
// @Produce  json
// @Param   request  body    dto.AllocateLossRequest  true  "Realized gain"
// @Success 200 {object} taxloss.Result
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /tax-loss/allocations [post]
func (h *TaxLossHandler) Allocate(c echo.Context) error {
	var req dto.AllocateLossRequest
	if errs := readAndValidate(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, errs)
	}

	res, err := h.taxLossService.Allocate(c.Request().Context(), req)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, service.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, taxloss.ErrConcurrentUpdate):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to allocate tax loss"})
	}
}

// ListLots godoc
// @Summary List tax loss lots
// @Tags tax-loss
// @Produce  json
// @Param   category  query   string  false  "Tax category"
// @Success 200 {array} entity.TaxLossLot
// @Failure 500 {object} dto.ErrorResponse
// @Router /tax-loss/lots [get]
func (h *TaxLossHandler) ListLots(c echo.Context) error {
	lots, err := h.taxLossService.ListLots(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list tax loss lots"})
	}
	return c.JSON(http.StatusOK, lots)
}
