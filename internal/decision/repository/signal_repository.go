package repository

import (
	"context"
	"time"

	"golang-etf-decision/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SignalRepository interface {
	// Available reports whether the signals table exists. Checked once at startup.
	Available(ctx context.Context) bool
	SignalCoverage(ctx context.Context, symbols []string) (map[time.Time]int, error)
	Upsert(ctx context.Context, record *entity.SignalRecord) error
	FindByDate(ctx context.Context, date time.Time) ([]entity.SignalRecord, error)
	FindLatestBySymbol(ctx context.Context, symbol string, limit int) ([]entity.SignalRecord, error)
}

type signalRepository struct {
	db *gorm.DB
}

func NewSignalRepository(db *gorm.DB) SignalRepository {
	return &signalRepository{db: db}
}

func (r *signalRepository) Available(ctx context.Context) bool {
	return r.db.WithContext(ctx).Migrator().HasTable(&entity.SignalRecord{})
}

// SignalCoverage counts distinct symbols with a signal per date.
func (r *signalRepository) SignalCoverage(ctx context.Context, symbols []string) (map[time.Time]int, error) {
	var rows []dateCount
	err := r.db.WithContext(ctx).
		Model(&entity.SignalRecord{}).
		Select("date, COUNT(DISTINCT symbol) AS total").
		Where("symbol IN ?", symbols).
		Group("date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toCoverage(rows), nil
}

// Upsert writes the record, replacing any previous decision for the same (date, symbol).
func (r *signalRepository) Upsert(ctx context.Context, record *entity.SignalRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"signal_state", "risk_scalar", "explain_code", "regime_filter", "data", "updated_at",
		}),
	}).Create(record).Error
}

func (r *signalRepository) FindByDate(ctx context.Context, date time.Time) ([]entity.SignalRecord, error) {
	var records []entity.SignalRecord
	if err := r.db.WithContext(ctx).Where("date = ?", date).Order("symbol").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *signalRepository) FindLatestBySymbol(ctx context.Context, symbol string, limit int) ([]entity.SignalRecord, error) {
	var records []entity.SignalRecord
	if limit <= 0 {
		limit = 30
	}
	if err := r.db.WithContext(ctx).Where("symbol = ?", symbol).Order("date DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
