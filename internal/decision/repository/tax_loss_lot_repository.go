package repository

import (
	"context"
	"time"

	"golang-etf-decision/internal/entity"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TaxLossLotRepository interface {
	OpenLots(ctx context.Context, category string, after time.Time) ([]entity.TaxLossLot, error)
	UpdateUsed(ctx context.Context, id uint, prev, next decimal.Decimal) (bool, error)
	Flag(ctx context.Context, id uint, reason string) error
	FindByCategory(ctx context.Context, category string) ([]entity.TaxLossLot, error)
}

type taxLossLotRepository struct {
	db *gorm.DB
}

func NewTaxLossLotRepository(db *gorm.DB) TaxLossLotRepository {
	return &taxLossLotRepository{db: db}
}

// OpenLots returns unflagged lots expiring after the given date, soonest first.
func (r *taxLossLotRepository) OpenLots(ctx context.Context, category string, after time.Time) ([]entity.TaxLossLot, error) {
	var lots []entity.TaxLossLot
	err := r.db.WithContext(ctx).
		Where("tax_category = ? AND expires_at > ? AND invalid_reason IS NULL", category, after).
		Order("expires_at ASC, id ASC").
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

// UpdateUsed is a single-row compare-and-set on used_amount.
func (r *taxLossLotRepository) UpdateUsed(ctx context.Context, id uint, prev, next decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.TaxLossLot{}).
		Where("id = ? AND used_amount = ?", id, prev).
		Updates(map[string]interface{}{
			"used_amount": next,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *taxLossLotRepository) Flag(ctx context.Context, id uint, reason string) error {
	return r.db.WithContext(ctx).
		Model(&entity.TaxLossLot{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"invalid_reason": reason,
			"updated_at":     time.Now().UTC(),
		}).Error
}

func (r *taxLossLotRepository) FindByCategory(ctx context.Context, category string) ([]entity.TaxLossLot, error) {
	var lots []entity.TaxLossLot
	q := r.db.WithContext(ctx)
	if category != "" {
		q = q.Where("tax_category = ?", category)
	}
	if err := q.Order("expires_at ASC, id ASC").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}
