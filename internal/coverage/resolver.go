package coverage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

// PriceSource answers price coverage questions.
type PriceSource interface {
	// PriceCoverage returns, per date, how many distinct symbols of the set have a price.
	PriceCoverage(ctx context.Context, symbols []string) (map[time.Time]int, error)
	// MaxPriceDate returns the latest date with any price, or nil when the table is empty.
	MaxPriceDate(ctx context.Context) (*time.Time, error)
}

// SignalSource answers signal coverage questions.
type SignalSource interface {
	SignalCoverage(ctx context.Context, symbols []string) (map[time.Time]int, error)
}

// CalendarSource lists open trading days for a venue.
type CalendarSource interface {
	OpenDays(ctx context.Context, venue string) ([]time.Time, error)
}

// Resolver picks the latest trading date on which enough of the universe has data.
// It is read-only and safe for concurrent use.
type Resolver struct {
	prices   PriceSource
	calendar CalendarSource
	signals  SignalSource
}

// NewResolver builds a resolver. signals may be nil when no signal store is available;
// coverage then relies on prices alone.
func NewResolver(prices PriceSource, calendar CalendarSource, signals SignalSource) *Resolver {
	return &Resolver{prices: prices, calendar: calendar, signals: signals}
}

// HasSignalStore reports whether signal coverage is part of the check.
func (r *Resolver) HasSignalStore() bool {
	return r.signals != nil
}

// MinRequired is the number of symbols that must be covered for a date to qualify.
func MinRequired(threshold float64, symbols int) int {
	threshold = ClampThreshold(threshold)
	n := int(math.Ceil(threshold * float64(symbols)))
	if n < 1 {
		return 1
	}
	return n
}

// ClampThreshold bounds a coverage threshold to [0,1]. NaN is treated as 0.
func ClampThreshold(threshold float64) float64 {
	if math.IsNaN(threshold) || threshold < 0 {
		return 0
	}
	if threshold > 1 {
		return 1
	}
	return threshold
}

// Resolve returns the as-of date for the given universe, or nil when there is no price data at all.
func (r *Resolver) Resolve(ctx context.Context, symbols []string, threshold float64, venue string) (*time.Time, error) {
	symbols = Dedupe(symbols)
	if len(symbols) == 0 {
		return r.maxPriceDate(ctx)
	}

	minRequired := MinRequired(threshold, len(symbols))

	openDays, err := r.calendar.OpenDays(ctx, venue)
	if err != nil {
		return nil, fmt.Errorf("failed to load trading calendar for %s: %w", venue, err)
	}

	priceCounts, err := r.prices.PriceCoverage(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to count price coverage: %w", err)
	}

	var signalCounts map[time.Time]int
	if r.signals != nil {
		signalCounts, err = r.signals.SignalCoverage(ctx, symbols)
		if err != nil {
			return nil, fmt.Errorf("failed to count signal coverage: %w", err)
		}
	}

	prices := byDay(priceCounts)
	signals := byDay(signalCounts)

	sort.Slice(openDays, func(i, j int) bool { return openDays[i].After(openDays[j]) })
	for _, day := range openDays {
		key := dayKey(day)
		if prices[key] < minRequired {
			continue
		}
		if r.signals != nil && signals[key] < minRequired {
			continue
		}
		found := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		return &found, nil
	}

	return r.maxPriceDate(ctx)
}

func (r *Resolver) maxPriceDate(ctx context.Context) (*time.Time, error) {
	d, err := r.prices.MaxPriceDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read max price date: %w", err)
	}
	return d, nil
}

// dayKey makes dates from different drivers and locations comparable.
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func byDay(counts map[time.Time]int) map[string]int {
	out := make(map[string]int, len(counts))
	for d, n := range counts {
		out[dayKey(d)] += n
	}
	return out
}

// Dedupe drops empty and repeated symbols, keeping first-seen order.
func Dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
