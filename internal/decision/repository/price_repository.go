package repository

import (
	"context"
	"time"

	"golang-etf-decision/internal/entity"

	"gorm.io/gorm"
)

// PriceRepository reads end-of-day prices. Ingestion lives elsewhere.
type PriceRepository interface {
	PriceCoverage(ctx context.Context, symbols []string) (map[time.Time]int, error)
	MaxPriceDate(ctx context.Context) (*time.Time, error)
}

type priceRepository struct {
	db *gorm.DB
}

func NewPriceRepository(db *gorm.DB) PriceRepository {
	return &priceRepository{db: db}
}

type dateCount struct {
	Date  time.Time
	Total int
}

// PriceCoverage counts distinct symbols with a price per date.
func (r *priceRepository) PriceCoverage(ctx context.Context, symbols []string) (map[time.Time]int, error) {
	var rows []dateCount
	err := r.db.WithContext(ctx).
		Model(&entity.PriceObservation{}).
		Select("date, COUNT(DISTINCT symbol) AS total").
		Where("symbol IN ?", symbols).
		Group("date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toCoverage(rows), nil
}

// MaxPriceDate returns the latest date with any price row, or nil if there is none.
func (r *priceRepository) MaxPriceDate(ctx context.Context) (*time.Time, error) {
	var latest []entity.PriceObservation
	if err := r.db.WithContext(ctx).Order("date DESC").Limit(1).Find(&latest).Error; err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return nil, nil
	}
	d := latest[0].Date.UTC()
	return &d, nil
}

func toCoverage(rows []dateCount) map[time.Time]int {
	out := make(map[time.Time]int, len(rows))
	for _, row := range rows {
		out[row.Date.UTC()] = row.Total
	}
	return out
}
