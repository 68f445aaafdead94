package repository

import (
	"context"
	"time"

	"golang-etf-decision/internal/entity"

	"gorm.io/gorm"
)

type IndicatorRepository interface {
	FindByDate(ctx context.Context, date time.Time, symbols []string) ([]entity.IndicatorSnapshot, error)
}

type indicatorRepository struct {
	db *gorm.DB
}

func NewIndicatorRepository(db *gorm.DB) IndicatorRepository {
	return &indicatorRepository{db: db}
}

// FindByDate returns the snapshots of the given symbols on date. An empty symbol list means all symbols.
func (r *indicatorRepository) FindByDate(ctx context.Context, date time.Time, symbols []string) ([]entity.IndicatorSnapshot, error) {
	var snapshots []entity.IndicatorSnapshot
	q := r.db.WithContext(ctx).Where("date = ?", date)
	if len(symbols) > 0 {
		q = q.Where("symbol IN ?", symbols)
	}
	if err := q.Order("symbol").Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}
