package entity

import "time"

// TradingCalendarDay marks whether a venue is open on a date.
type TradingCalendarDay struct {
	Venue  string    `gorm:"primaryKey" json:"venue"`
	Date   time.Time `gorm:"primaryKey;type:date" json:"date"`
	IsOpen bool      `gorm:"not null" json:"is_open"`
}

func (TradingCalendarDay) TableName() string {
	return "trading_calendar"
}
