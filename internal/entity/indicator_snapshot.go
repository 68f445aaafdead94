package entity

import "time"

// IndicatorSnapshot holds the precomputed indicators for a symbol on a date.
// Nil pointers mean the indicator could not be computed upstream.
type IndicatorSnapshot struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Symbol        string    `gorm:"not null;uniqueIndex:idx_indicator_symbol_date" json:"symbol"`
	Date          time.Time `gorm:"type:date;not null;uniqueIndex:idx_indicator_symbol_date" json:"date"`
	AdjustedClose float64   `gorm:"not null" json:"adjusted_close"`
	SMA200        *float64  `gorm:"column:sma_200" json:"sma_200"`
	Volatility20D *float64  `gorm:"column:volatility_20d" json:"volatility_20d"`
	DrawdownPct   *float64  `gorm:"column:drawdown_pct" json:"drawdown_pct"`
}

func (IndicatorSnapshot) TableName() string {
	return "indicator_snapshots"
}
