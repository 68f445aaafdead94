package dto

import (
	"time"

	"golang-etf-decision/internal/entity"
)

// CoverageDateResponse is the as-of date chosen for a universe. Date is nil when no data exists.
type CoverageDateResponse struct {
	Date           *string  `json:"date"`
	Venue          string   `json:"venue"`
	Threshold      float64  `json:"threshold"`
	MinRequired    int      `json:"min_required"`
	Symbols        []string `json:"symbols"`
	HasSignalStore bool     `json:"has_signal_store"`
}

// GenerateSignalsRequest optionally pins the as-of date (YYYY-MM-DD).
type GenerateSignalsRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// GenerationSummary reports one signal generation run.
type GenerationSummary struct {
	RunID           string                `json:"run_id,omitempty"`
	Date            *time.Time            `json:"date"`
	GuardActive     bool                  `json:"guard_active"`
	Signals         []entity.SignalRecord `json:"signals"`
	MissingSymbols  []string              `json:"missing_symbols,omitempty"`
	Warnings        map[string][]string   `json:"warnings,omitempty"`
	PublishFailures int                   `json:"publish_failures"`
}

// EvaluateSignalRequest runs the engine on an ad-hoc snapshot without persisting.
type EvaluateSignalRequest struct {
	Symbol        string   `json:"symbol" validate:"required,max=32"`
	AdjustedClose float64  `json:"adjusted_close" validate:"gt=0"`
	SMA200        *float64 `json:"sma_200"`
	Volatility20D *float64 `json:"volatility_20d"`
	DrawdownPct   *float64 `json:"drawdown_pct"`
	GuardActive   *bool    `json:"guard_active"`
}

// SignalEvent is the payload published on the signal stream.
type SignalEvent struct {
	RunID        string             `json:"run_id"`
	Date         string             `json:"date"`
	Symbol       string             `json:"symbol"`
	SignalState  entity.SignalState `json:"signal_state"`
	RiskScalar   float64            `json:"risk_scalar"`
	ExplainCode  string             `json:"explain_code"`
	RegimeFilter string             `json:"regime_filter"`
}

// GuardRequest activates the external risk guard.
type GuardRequest struct {
	Reason string `json:"reason" validate:"max=256"`
	TTL    string `json:"ttl"`
}

// GuardResponse reports the guard state.
type GuardResponse struct {
	Active bool   `json:"active"`
	Reason string `json:"reason,omitempty"`
}
