package signal

import (
	"fmt"
	"math"
	"strings"

	"golang-etf-decision/internal/entity"
)

// ExplainSeparator joins the stage tokens of an explain code.
const ExplainSeparator = "|"

const (
	TokenTrendUp     = "TREND_UP"
	TokenTrendDown   = "TREND_DOWN"
	TokenTrendFlat   = "TREND_FLAT"
	TokenNoSMA       = "NO_SMA_DATA"
	TokenHighVol     = "HIGH_VOL"
	TokenLowVol      = "LOW_VOL"
	TokenNeutral     = "NEUTRAL"
	TokenDrawdownOK  = "DD_OK"
	TokenDrawdownCut = "DD_SOFT"
	TokenDrawdownHit = "DD_STOP"
	TokenNoDrawdown  = "NO_DD_DATA"
	TokenVolSkip     = "VT_SKIP"
	TokenGuardBlock  = "GUARD_BLOCK"
	TokenGuardOK     = "GUARD_OK"
)

// Missing-data warnings. They never fail a generation.
const (
	WarnMissingSMA        = "missing_sma200"
	WarnMissingVolatility = "missing_volatility"
	WarnMissingDrawdown   = "missing_drawdown"
)

// Stage is one step of the audit trail.
type Stage struct {
	Name        string             `json:"name"`
	Token       string             `json:"token"`
	StateAfter  entity.SignalState `json:"state_after"`
	ScalarAfter float64            `json:"scalar_after"`
}

// Result is the engine output for one snapshot.
type Result struct {
	State        entity.SignalState `json:"signal_state"`
	RiskScalar   float64            `json:"risk_scalar"`
	ExplainCode  string             `json:"explain_code"`
	RegimeFilter string             `json:"regime_filter"`
	Stages       []Stage            `json:"stages"`
	Warnings     []string           `json:"warnings,omitempty"`
}

// Engine turns indicator snapshots into risk-scaled signals. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine bound to cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the thresholds in use.
func (e *Engine) Config() Config {
	return e.cfg
}

type pipeline struct {
	state    entity.SignalState
	scalar   float64
	regime   string
	stages   []Stage
	warnings []string
}

func (p *pipeline) record(name, token string) {
	p.stages = append(p.stages, Stage{Name: name, Token: token, StateAfter: p.state, ScalarAfter: p.scalar})
}

// Generate runs trend, volatility regime, drawdown protection, volatility targeting and
// the external risk guard, in that order.
func (e *Engine) Generate(snap entity.IndicatorSnapshot, guardActive bool) Result {
	p := &pipeline{}

	e.trend(p, snap)
	e.volatilityRegime(p, snap)
	e.drawdown(p, snap)
	e.volatilityTarget(p, snap)
	e.guard(p, guardActive)

	tokens := make([]string, len(p.stages))
	for i, s := range p.stages {
		tokens[i] = s.Token
	}

	return Result{
		State:        p.state,
		RiskScalar:   clamp01(round3(p.scalar)),
		ExplainCode:  strings.Join(tokens, ExplainSeparator),
		RegimeFilter: p.regime,
		Stages:       p.stages,
		Warnings:     p.warnings,
	}
}

func (e *Engine) trend(p *pipeline, snap entity.IndicatorSnapshot) {
	sma, ok := present(snap.SMA200)
	if !ok || sma <= 0 {
		p.state, p.scalar = entity.SignalHold, 1.0
		p.warnings = append(p.warnings, WarnMissingSMA)
		p.record("trend", TokenNoSMA)
		return
	}

	price := snap.AdjustedClose
	switch {
	case price > sma*(1+e.cfg.TrendBand):
		p.state, p.scalar = entity.SignalRiskOn, 1.0
		p.record("trend", TokenTrendUp)
	case price < sma*(1-e.cfg.TrendBand):
		p.state, p.scalar = entity.SignalRiskOff, 0.0
		p.record("trend", TokenTrendDown)
	default:
		p.state, p.scalar = entity.SignalHold, 0.5
		p.record("trend", TokenTrendFlat)
	}
}

func (e *Engine) volatilityRegime(p *pipeline, snap entity.IndicatorSnapshot) {
	vol, ok := present(snap.Volatility20D)
	if !ok || vol <= 0 {
		p.warnings = append(p.warnings, WarnMissingVolatility)
		p.regime = TokenNeutral
		p.record("vol_regime", TokenNeutral)
		return
	}

	switch {
	case vol > e.cfg.VolBreakerThreshold:
		p.regime = TokenHighVol
		p.scalar *= e.cfg.HighVolMultiplier
	case vol < e.cfg.LowVolThreshold:
		p.regime = TokenLowVol
		p.scalar *= e.cfg.LowVolMultiplier
	default:
		p.regime = TokenNeutral
	}
	p.record("vol_regime", p.regime)
}

func (e *Engine) drawdown(p *pipeline, snap entity.IndicatorSnapshot) {
	dd, ok := present(snap.DrawdownPct)
	if !ok {
		p.warnings = append(p.warnings, WarnMissingDrawdown)
		p.record("drawdown", TokenNoDrawdown)
		return
	}

	switch {
	case dd < e.cfg.DrawdownStop:
		p.state, p.scalar = entity.SignalRiskOff, 0.0
		p.record("drawdown", TokenDrawdownHit)
	case dd < e.cfg.DrawdownSoft && p.state == entity.SignalRiskOn:
		p.scalar *= e.cfg.DrawdownSoftMultiplier
		p.record("drawdown", TokenDrawdownCut)
	default:
		p.record("drawdown", TokenDrawdownOK)
	}
}

// volatilityTarget runs regardless of the trend and drawdown outcome.
func (e *Engine) volatilityTarget(p *pipeline, snap entity.IndicatorSnapshot) {
	vol, ok := present(snap.Volatility20D)
	if !ok || vol <= 0 {
		p.record("vol_target", TokenVolSkip)
		return
	}

	factor := math.Min(1.0, e.cfg.TargetVol/vol)
	factor = math.Max(e.cfg.RiskScalarFloor, factor)
	p.scalar *= factor
	p.record("vol_target", fmt.Sprintf("VT_%.3f", factor))
}

func (e *Engine) guard(p *pipeline, active bool) {
	if active && p.state == entity.SignalRiskOn {
		p.state, p.scalar = entity.SignalRiskOff, 0.0
		p.record("guard", TokenGuardBlock)
		return
	}
	p.record("guard", TokenGuardOK)
}

func present(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) {
		return 0, false
	}
	return *v, true
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// clamp01 runs after rounding. NaN collapses to zero.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
