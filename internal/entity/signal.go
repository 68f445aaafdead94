package entity

import (
	"time"

	"gorm.io/datatypes"
)

type SignalState string

const (
	SignalRiskOn  SignalState = "RISK_ON"
	SignalRiskOff SignalState = "RISK_OFF"
	SignalHold    SignalState = "HOLD"
)

// Valid reports whether s is one of the known states.
func (s SignalState) Valid() bool {
	switch s {
	case SignalRiskOn, SignalRiskOff, SignalHold:
		return true
	}
	return false
}

// SignalRecord is the decision for a symbol on a date. One row per (date, symbol).
type SignalRecord struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Date         time.Time      `gorm:"type:date;not null;uniqueIndex:idx_signal_date_symbol" json:"date"`
	Symbol       string         `gorm:"not null;uniqueIndex:idx_signal_date_symbol" json:"symbol"`
	SignalState  SignalState    `gorm:"type:varchar(16);not null" json:"signal_state"`
	RiskScalar   float64        `gorm:"not null" json:"risk_scalar"`
	ExplainCode  string         `gorm:"not null" json:"explain_code"`
	RegimeFilter string         `gorm:"not null" json:"regime_filter"`
	Data         datatypes.JSON `gorm:"type:jsonb" json:"data"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SignalRecord) TableName() string {
	return "signals"
}
