package entity

import "time"

// PriceObservation is one end-of-day bar per symbol per trading day.
type PriceObservation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Symbol        string    `gorm:"not null;uniqueIndex:idx_price_symbol_date" json:"symbol"`
	Date          time.Time `gorm:"type:date;not null;uniqueIndex:idx_price_symbol_date" json:"date"`
	Close         float64   `gorm:"not null" json:"close"`
	AdjustedClose float64   `gorm:"not null" json:"adjusted_close"`
	Volume        int64     `gorm:"not null" json:"volume"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PriceObservation) TableName() string {
	return "price_observations"
}
