package telegram

import (
	"testing"
	"time"

	"golang-etf-decision/internal/entity"
	"golang-etf-decision/internal/taxloss"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatSignalSummary(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	records := []entity.SignalRecord{
		{Symbol: "VWCE", SignalState: entity.SignalRiskOn, RiskScalar: 0.3, ExplainCode: "TREND_UP|HIGH_VOL|DD_OK|VT_0.600|GUARD_OK"},
		{Symbol: "AGGH", SignalState: entity.SignalHold, RiskScalar: 0.5, ExplainCode: "TREND_FLAT|NEUTRAL|DD_OK|VT_1.000|GUARD_OK"},
	}

	msg := FormatSignalSummary(date, records, true, []string{"EIMI"})

	assert.Contains(t, msg, "Signals 2026-03-02")
	assert.Contains(t, msg, "Risk guard <b>ACTIVE</b>")
	assert.Contains(t, msg, "🟢 <b>VWCE</b> RISK_ON · scalar <code>0.300</code>")
	assert.Contains(t, msg, "🟡 <b>AGGH</b> HOLD")
	assert.Contains(t, msg, "No indicators for: EIMI")
}

func TestFormatShortfallMessage(t *testing.T) {
	req := taxloss.Request{
		Symbol:      "SWDA",
		TaxCategory: "redditi_diversi",
		Amount:      decimal.NewFromInt(500),
		RealizeDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	res := taxloss.Result{
		Requested:   decimal.NewFromInt(500),
		Consumed:    decimal.NewFromInt(150),
		Shortfall:   decimal.NewFromInt(350),
		FlaggedLots: []taxloss.FlaggedLot{{LotID: 4, Reason: "used_amount exceeds loss capacity"}},
	}

	msg := FormatShortfallMessage(req, res, "EUR")

	assert.Contains(t, msg, "Shortfall: <b>\u20ac350.00</b>")
	assert.Contains(t, msg, "Covered: <code>\u20ac150.00</code>")
	assert.Contains(t, msg, "#4 used_amount exceeds loss capacity")
}

func TestDisplayAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		currency string
		want     string
	}{
		{"euro with thousands", decimal.RequireFromString("1250.5"), "EUR", "\u20ac1,250.50"},
		{"rounds to cents", decimal.RequireFromString("0.005"), "EUR", "\u20ac0.01"},
		{"no currency", decimal.RequireFromString("42"), "", "42.00"},
		{"unknown currency", decimal.RequireFromString("42"), "XYZ", "42.00 XYZ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, displayAmount(tt.amount, tt.currency))
		})
	}
}

func TestFormatErrorAlertMessageEscapes(t *testing.T) {
	msg := FormatErrorAlertMessage(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), "retry", "<boom>", `{"a":1}`)

	assert.Contains(t, msg, "&lt;boom&gt;")
	assert.Contains(t, msg, "{&#34;a&#34;:1}")
}
