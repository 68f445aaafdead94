package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxLossLot is a realized capital loss that can offset future gains until it expires.
// LossAmount is negative; UsedAmount grows monotonically up to |LossAmount|.
type TaxLossLot struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TaxCategory   string          `gorm:"not null;index:idx_lot_category_expiry" json:"tax_category"`
	LossAmount    decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"loss_amount"`
	UsedAmount    decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"used_amount"`
	ExpiresAt     time.Time       `gorm:"type:date;not null;index:idx_lot_category_expiry" json:"expires_at"`
	InvalidReason *string         `json:"invalid_reason,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TaxLossLot) TableName() string {
	return "tax_loss_lots"
}

// Capacity is the absolute loss amount available for offsetting.
func (l TaxLossLot) Capacity() decimal.Decimal {
	return l.LossAmount.Abs()
}

// Available is the capacity not consumed yet.
func (l TaxLossLot) Available() decimal.Decimal {
	return l.Capacity().Sub(l.UsedAmount)
}
