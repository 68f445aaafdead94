package http

import (
	"net/http"
	"strconv"
	"strings"

	"golang-etf-decision/internal/decision/config"
	"golang-etf-decision/internal/decision/dto"
	"golang-etf-decision/internal/decision/service"
	"golang-etf-decision/pkg/logger"
	"golang-etf-decision/pkg/utils"

	"github.com/labstack/echo/v4"
)

const defaultHistoryLimit = 30

// SignalHandler handles HTTP requests for coverage dates and signals.
type SignalHandler struct {
	signalService service.SignalService
	decision      config.Decision
	logger        *logger.Logger
}

// NewSignalHandler creates a new SignalHandler. decision supplies the universe, threshold
// and venue used when a request omits them.
func NewSignalHandler(signalService service.SignalService, decision config.Decision, logger *logger.Logger) *SignalHandler {
	return &SignalHandler{signalService: signalService, decision: decision, logger: logger}
}

// RegisterRoutes registers the signal routes to the Echo group.
func (h *SignalHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/coverage-date", h.GetCoverageDate)
	g.POST("/signals/generate", h.GenerateSignals)
	g.POST("/signals/evaluate", h.EvaluateSignal)
	g.GET("/signals", h.GetSignalsByDate)
	g.GET("/signals/:symbol", h.GetSignalHistory)
}

// GetCoverageDate godoc
// @Summary Resolve the as-of date
// @Description Latest open trading day with enough price (and signal) coverage for the universe
// @Tags signals
// @Produce  json
// @Param   symbols    query   string  false  "Comma separated symbols, defaults to the configured universe"
// @Param   threshold  query   number  false  "Coverage threshold in [0,1]"
// @Param   venue      query   string  false  "Trading calendar venue"
// @Success 200 {object} dto.CoverageDateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /coverage-date [get]
func (h *SignalHandler) GetCoverageDate(c echo.Context) error {
	symbols := h.decision.Universe
	if c.QueryParams().Has("symbols") {
		symbols = splitSymbols(c.QueryParam("symbols"))
	}

	threshold := h.decision.CoverageThreshold
	if raw := c.QueryParam("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid threshold"})
		}
		threshold = v
	}

	venue := c.QueryParam("venue")
	if venue == "" {
		venue = h.decision.Venue
	}

	resp, err := h.signalService.ResolveDate(c.Request().Context(), symbols, threshold, venue)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to resolve coverage date"})
	}
	return c.JSON(http.StatusOK, resp)
}

// GenerateSignals godoc
// @Summary Generate signals
// @Description Generate and store signals for the given date, or for the resolved as-of date when omitted
// @Tags signals
// @Accept  json
// @Produce  json
// @Param   request  body    dto.GenerateSignalsRequest  false  "Optional as-of date"
// @Success 200 {object} dto.GenerationSummary
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /signals/generate [post]
func (h *SignalHandler) GenerateSignals(c echo.Context) error {
	var req dto.GenerateSignalsRequest
	if c.Request().ContentLength > 0 {
		if errs := readAndValidate(c, &req); errs != nil {
			return c.JSON(http.StatusBadRequest, errs)
		}
	}

	ctx := c.Request().Context()
	var (
		summary *dto.GenerationSummary
		err     error
	)
	if req.Date == "" {
		summary, err = h.signalService.GenerateLatest(ctx)
	} else {
		date, perr := utils.ParseDay(req.Date)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": perr.Error()})
		}
		summary, err = h.signalService.GenerateForDate(ctx, date)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to generate signals"})
	}
	return c.JSON(http.StatusOK, summary)
}

// EvaluateSignal godoc
// @Summary Evaluate a snapshot
// @Description Run the overlay pipeline on an ad-hoc indicator snapshot without storing it
// @Tags signals
// @Accept  json
// @Produce  json
// @Param   request  body    dto.EvaluateSignalRequest  true  "Indicator snapshot"
// @Success 200 {object} signal.Result
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /signals/evaluate [post]
func (h *SignalHandler) EvaluateSignal(c echo.Context) error {
	var req dto.EvaluateSignalRequest
	if errs := readAndValidate(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, errs)
	}

	res, err := h.signalService.Evaluate(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("Failed to evaluate signal", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to evaluate signal"})
	}
	return c.JSON(http.StatusOK, res)
}

// GetSignalsByDate godoc
// @Summary List signals for a date
// @Tags signals
// @Produce  json
// @Param   date  query   string  true  "As-of date (YYYY-MM-DD)"
// @Success 200 {array} entity.SignalRecord
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /signals [get]
func (h *SignalHandler) GetSignalsByDate(c echo.Context) error {
	date, err := utils.ParseDay(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	records, err := h.signalService.GetByDate(c.Request().Context(), date)
	if err != nil {
		h.logger.Error("Failed to get signals", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get signals"})
	}
	return c.JSON(http.StatusOK, records)
}

// GetSignalHistory godoc
// @Summary Signal history of a symbol
// @Tags signals
// @Produce  json
// @Param   symbol  path    string  true   "Symbol"
// @Param   limit   query   int     false  "Max records, newest first"
// @Success 200 {array} entity.SignalRecord
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /signals/{symbol} [get]
func (h *SignalHandler) GetSignalHistory(c echo.Context) error {
	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid limit"})
		}
		limit = v
	}

	records, err := h.signalService.GetHistory(c.Request().Context(), strings.ToUpper(c.Param("symbol")), limit)
	if err != nil {
		h.logger.Error("Failed to get signal history", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get signal history"})
	}
	return c.JSON(http.StatusOK, records)
}

func splitSymbols(raw string) []string {
	symbols := []string{}
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, strings.ToUpper(s))
		}
	}
	return symbols
}
