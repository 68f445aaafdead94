package signal

import (
	"math"
	"strings"
	"testing"

	"golang-etf-decision/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func snapshot(close float64, sma, vol, dd *float64) entity.IndicatorSnapshot {
	return entity.IndicatorSnapshot{
		Symbol:        "VWCE",
		AdjustedClose: close,
		SMA200:        sma,
		Volatility20D: vol,
		DrawdownPct:   dd,
	}
}

func TestGenerate_EndToEndHighVol(t *testing.T) {
	e := NewEngine(DefaultConfig())

	res := e.Generate(snapshot(110, f(100), f(0.25), f(-0.05)), false)

	assert.Equal(t, entity.SignalRiskOn, res.State)
	assert.InDelta(t, 0.3, res.RiskScalar, 1e-9)
	assert.Equal(t, TokenHighVol, res.RegimeFilter)
	assert.Equal(t, "TREND_UP|HIGH_VOL|DD_OK|VT_0.600|GUARD_OK", res.ExplainCode)
	assert.Empty(t, res.Warnings)
}

func TestGenerate_TrendBand(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg)

	tests := []struct {
		name   string
		close  float64
		state  entity.SignalState
		token  string
		scalar float64
	}{
		{"above band", 103, entity.SignalRiskOn, TokenTrendUp, 1.0},
		{"below band", 97, entity.SignalRiskOff, TokenTrendDown, 0.0},
		{"inside band", 101, entity.SignalHold, TokenTrendFlat, 0.5},
		{"upper edge is flat", 102, entity.SignalHold, TokenTrendFlat, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// neutral volatility, no drawdown pressure, vol target at cap
			res := e.Generate(snapshot(tt.close, f(100), f(0.12), f(0)), false)
			assert.Equal(t, tt.state, res.State)
			assert.InDelta(t, tt.scalar, res.RiskScalar, 1e-9)
			assert.True(t, strings.HasPrefix(res.ExplainCode, tt.token+ExplainSeparator))
		})
	}
}

func TestGenerate_MissingSMAStillRunsLaterStages(t *testing.T) {
	e := NewEngine(DefaultConfig())

	res := e.Generate(snapshot(100, nil, f(0.30), f(-0.02)), false)

	assert.Equal(t, entity.SignalHold, res.State)
	// 1.0 * 0.5 (high vol) * 0.5 (0.15/0.30)
	assert.InDelta(t, 0.25, res.RiskScalar, 1e-9)
	assert.Equal(t, "NO_SMA_DATA|HIGH_VOL|DD_OK|VT_0.500|GUARD_OK", res.ExplainCode)
	assert.Contains(t, res.Warnings, WarnMissingSMA)
}

func TestGenerate_MissingEverything(t *testing.T) {
	e := NewEngine(DefaultConfig())

	res := e.Generate(snapshot(100, nil, nil, nil), false)

	assert.Equal(t, entity.SignalHold, res.State)
	assert.Equal(t, 1.0, res.RiskScalar)
	assert.Equal(t, TokenNeutral, res.RegimeFilter)
	assert.Equal(t, "NO_SMA_DATA|NEUTRAL|NO_DD_DATA|VT_SKIP|GUARD_OK", res.ExplainCode)
	assert.ElementsMatch(t, []string{WarnMissingSMA, WarnMissingVolatility, WarnMissingDrawdown}, res.Warnings)
}

func TestGenerate_DrawdownHardStopOverridesEverything(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// strong uptrend and low volatility would otherwise give full exposure
	res := e.Generate(snapshot(150, f(100), f(0.05), f(-0.20)), false)

	assert.Equal(t, entity.SignalRiskOff, res.State)
	assert.Equal(t, 0.0, res.RiskScalar)
	assert.Equal(t, TokenLowVol, res.RegimeFilter)
	assert.Contains(t, res.ExplainCode, TokenDrawdownHit)
}

func TestGenerate_DrawdownSoftOnlyForRiskOn(t *testing.T) {
	e := NewEngine(DefaultConfig())

	on := e.Generate(snapshot(110, f(100), f(0.12), f(-0.12)), false)
	assert.Equal(t, entity.SignalRiskOn, on.State)
	assert.InDelta(t, 0.7, on.RiskScalar, 1e-9)
	assert.Contains(t, on.ExplainCode, TokenDrawdownCut)

	hold := e.Generate(snapshot(100, f(100), f(0.12), f(-0.12)), false)
	assert.Equal(t, entity.SignalHold, hold.State)
	assert.InDelta(t, 0.5, hold.RiskScalar, 1e-9)
	assert.Contains(t, hold.ExplainCode, TokenDrawdownOK)

	edge := e.Generate(snapshot(110, f(100), f(0.12), f(-0.15)), false)
	assert.Equal(t, entity.SignalRiskOn, edge.State)
	assert.InDelta(t, 0.7, edge.RiskScalar, 1e-9)
}

func TestGenerate_LowVolBoostIsClamped(t *testing.T) {
	e := NewEngine(DefaultConfig())

	res := e.Generate(snapshot(110, f(100), f(0.08), f(0)), false)

	assert.Equal(t, entity.SignalRiskOn, res.State)
	assert.Equal(t, 1.0, res.RiskScalar)
	assert.Equal(t, TokenLowVol, res.RegimeFilter)
}

func TestGenerate_VolTargetFloor(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// 0.15/0.90 = 0.167 floored to 0.3, then 0.5 (high vol) * 0.3
	res := e.Generate(snapshot(110, f(100), f(0.90), f(0)), false)

	assert.InDelta(t, 0.15, res.RiskScalar, 1e-9)
	assert.Contains(t, res.ExplainCode, "VT_0.300")
}

func TestGenerate_VolTargetReducesHold(t *testing.T) {
	e := NewEngine(DefaultConfig())

	res := e.Generate(snapshot(100, f(100), f(0.18), f(0)), false)

	assert.Equal(t, entity.SignalHold, res.State)
	// 0.5 * (0.15/0.18)
	assert.InDelta(t, 0.417, res.RiskScalar, 1e-9)
}

func TestGenerate_GuardBlocksRiskOn(t *testing.T) {
	e := NewEngine(DefaultConfig())

	res := e.Generate(snapshot(110, f(100), f(0.12), f(0)), true)

	assert.Equal(t, entity.SignalRiskOff, res.State)
	assert.Equal(t, 0.0, res.RiskScalar)
	assert.True(t, strings.HasSuffix(res.ExplainCode, TokenGuardBlock))
}

func TestGenerate_GuardIgnoresHold(t *testing.T) {
	e := NewEngine(DefaultConfig())

	res := e.Generate(snapshot(100, f(100), f(0.12), f(0)), true)

	assert.Equal(t, entity.SignalHold, res.State)
	assert.InDelta(t, 0.5, res.RiskScalar, 1e-9)
	assert.True(t, strings.HasSuffix(res.ExplainCode, TokenGuardOK))
}

func TestGenerate_Deterministic(t *testing.T) {
	e := NewEngine(DefaultConfig())
	snap := snapshot(104.3, f(100.1), f(0.173), f(-0.11))

	first := e.Generate(snap, false)
	for i := 0; i < 10; i++ {
		again := e.Generate(snap, false)
		require.Equal(t, first.State, again.State)
		require.Equal(t, first.RiskScalar, again.RiskScalar)
		require.Equal(t, first.ExplainCode, again.ExplainCode)
	}
}

func TestGenerate_OutputAlwaysWellFormed(t *testing.T) {
	e := NewEngine(DefaultConfig())
	values := []*float64{nil, f(math.NaN()), f(math.Inf(1)), f(-1), f(0), f(0.05), f(0.15), f(0.25), f(3)}
	drawdowns := []*float64{nil, f(math.NaN()), f(-0.5), f(-0.12), f(0)}
	closes := []float64{0, 50, 100, 150, math.NaN()}

	for _, c := range closes {
		for _, sma := range values {
			for _, vol := range values {
				for _, dd := range drawdowns {
					for _, guard := range []bool{false, true} {
						res := e.Generate(snapshot(c, sma, vol, dd), guard)
						require.True(t, res.State.Valid())
						require.GreaterOrEqual(t, res.RiskScalar, 0.0)
						require.LessOrEqual(t, res.RiskScalar, 1.0)
						require.NotEmpty(t, res.ExplainCode)
						require.Len(t, strings.Split(res.ExplainCode, ExplainSeparator), 5)
					}
				}
			}
		}
	}
}
