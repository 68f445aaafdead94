package dto

import "github.com/shopspring/decimal"

// AllocateLossRequest is a realized-loss usage request. RealizeDate is YYYY-MM-DD.
type AllocateLossRequest struct {
	Symbol      string          `json:"symbol" validate:"max=32"`
	TaxCategory string          `json:"tax_category" validate:"required,max=64"`
	Amount      decimal.Decimal `json:"amount" validate:"gte=0"`
	RealizeDate string          `json:"realize_date" validate:"required,datetime=2006-01-02"`
}

// LossUsageEvent is the stream payload emitted by the execution side after a taxable sale.
type LossUsageEvent struct {
	AllocateLossRequest
	TradeID string `json:"trade_id"`
}
