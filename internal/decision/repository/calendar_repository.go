package repository

import (
	"context"
	"time"

	"golang-etf-decision/internal/entity"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

type CalendarRepository interface {
	OpenDays(ctx context.Context, venue string) ([]time.Time, error)
}

type calendarRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewCalendarRepository returns a calendar reader that caches open days per venue for ttl.
func NewCalendarRepository(db *gorm.DB, ttl time.Duration) CalendarRepository {
	return &calendarRepository{
		db:    db,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *calendarRepository) OpenDays(ctx context.Context, venue string) ([]time.Time, error) {
	if cached, ok := r.cache.Get(venue); ok {
		days := cached.([]time.Time)
		out := make([]time.Time, len(days))
		copy(out, days)
		return out, nil
	}

	var rows []entity.TradingCalendarDay
	if err := r.db.WithContext(ctx).Where("venue = ? AND is_open = ?", venue, true).Order("date").Find(&rows).Error; err != nil {
		return nil, err
	}

	days := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		days = append(days, row.Date.UTC())
	}
	r.cache.SetDefault(venue, days)

	out := make([]time.Time, len(days))
	copy(out, days)
	return out, nil
}
