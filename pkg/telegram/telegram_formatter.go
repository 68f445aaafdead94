package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"golang-etf-decision/internal/entity"
	"golang-etf-decision/internal/taxloss"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatSignalSummary renders the signals generated for one as-of date.
func FormatSignalSummary(date time.Time, records []entity.SignalRecord, guardActive bool, missing []string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 <b>Signals %s</b>\n", date.Format("2006-01-02")))
	if guardActive {
		sb.WriteString("🛑 Risk guard <b>ACTIVE</b>\n")
	}
	sb.WriteString("\n")

	for _, r := range records {
		sb.WriteString(fmt.Sprintf("%s <b>%s</b> %s · scalar <code>%.3f</code>\n",
			stateEmoji(r.SignalState), html.EscapeString(r.Symbol), r.SignalState, r.RiskScalar))
		sb.WriteString(fmt.Sprintf("   <code>%s</code>\n", html.EscapeString(r.ExplainCode)))
	}

	if len(missing) > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠️ No indicators for: %s\n", html.EscapeString(strings.Join(missing, ", "))))
	}
	return sb.String()
}

// FormatShortfallMessage warns that a loss usage could not be fully covered.
func FormatShortfallMessage(req taxloss.Request, res taxloss.Result, currency string) string {
	var sb strings.Builder

	sb.WriteString("⚠️ <b>Tax loss shortfall</b>\n\n")
	sb.WriteString(fmt.Sprintf("Symbol: <b>%s</b>\n", html.EscapeString(req.Symbol)))
	sb.WriteString(fmt.Sprintf("Category: <code>%s</code>\n", html.EscapeString(req.TaxCategory)))
	sb.WriteString(fmt.Sprintf("Realized on: %s\n", req.RealizeDate.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Requested: <code>%s</code>\n", displayAmount(res.Requested, currency)))
	sb.WriteString(fmt.Sprintf("Covered: <code>%s</code>\n", displayAmount(res.Consumed, currency)))
	sb.WriteString(fmt.Sprintf("Shortfall: <b>%s</b>\n", displayAmount(res.Shortfall, currency)))

	if len(res.FlaggedLots) > 0 {
		sb.WriteString("\nFlagged lots:\n")
		for _, f := range res.FlaggedLots {
			sb.WriteString(fmt.Sprintf("• #%d %s\n", f.LotID, html.EscapeString(f.Reason)))
		}
	}
	return sb.String()
}

// displayAmount formats a ledger amount in minor units of currency, e.g. "€1,250.00".
func displayAmount(amount decimal.Decimal, currency string) string {
	if currency == "" {
		return amount.StringFixed(2)
	}
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	return money.New(amount.Shift(int32(cur.Fraction)).Round(0).IntPart(), cur.Code).Display()
}

// FormatErrorAlertMessage renders an operational failure.
func FormatErrorAlertMessage(at time.Time, errType, errMsg, payload string) string {
	var sb strings.Builder

	sb.WriteString("🚨 <b>Error Alert</b>\n\n")
	sb.WriteString(fmt.Sprintf("Time: %s\n", at.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Type: <b>%s</b>\n", html.EscapeString(errType)))
	sb.WriteString(fmt.Sprintf("Error: <code>%s</code>\n", html.EscapeString(errMsg)))
	if payload != "" {
		sb.WriteString(fmt.Sprintf("\nPayload:\n<pre>%s</pre>\n", html.EscapeString(payload)))
	}
	return sb.String()
}

func stateEmoji(state entity.SignalState) string {
	switch state {
	case entity.SignalRiskOn:
		return "🟢"
	case entity.SignalRiskOff:
		return "🔴"
	default:
		return "🟡"
	}
}
