package coverage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// fakeStore keeps rows as date -> symbols.
type fakeStore struct {
	prices  map[string][]string
	signals map[string][]string
	open    []string
	err     error
}

func count(rows map[string][]string, symbols []string) map[time.Time]int {
	want := map[string]bool{}
	for _, s := range symbols {
		want[s] = true
	}
	out := map[time.Time]int{}
	for d, syms := range rows {
		seen := map[string]bool{}
		for _, s := range syms {
			if want[s] && !seen[s] {
				seen[s] = true
				out[day(d)]++
			}
		}
	}
	return out
}

func (f *fakeStore) PriceCoverage(_ context.Context, symbols []string) (map[time.Time]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return count(f.prices, symbols), nil
}

func (f *fakeStore) MaxPriceDate(_ context.Context) (*time.Time, error) {
	var max *time.Time
	for d := range f.prices {
		t := day(d)
		if max == nil || t.After(*max) {
			max = &t
		}
	}
	return max, nil
}

func (f *fakeStore) SignalCoverage(_ context.Context, symbols []string) (map[time.Time]int, error) {
	return count(f.signals, symbols), nil
}

func (f *fakeStore) OpenDays(_ context.Context, _ string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(f.open))
	for _, d := range f.open {
		out = append(out, day(d))
	}
	return out, nil
}

func TestMinRequired(t *testing.T) {
	assert.Equal(t, 2, MinRequired(0.8, 2))
	assert.Equal(t, 1, MinRequired(0, 5))
	assert.Equal(t, 1, MinRequired(-3, 5))
	assert.Equal(t, 5, MinRequired(7, 5))
	assert.Equal(t, 3, MinRequired(0.5, 5))
	assert.Equal(t, 1, MinRequired(0.5, 0))
}

func TestResolve_RequiresBothSymbols(t *testing.T) {
	store := &fakeStore{
		prices: map[string][]string{
			"2026-03-02": {"A", "B"},
			"2026-03-03": {"A", "B"},
			"2026-03-04": {"A"},
		},
		open: []string{"2026-03-02", "2026-03-03", "2026-03-04"},
	}
	r := NewResolver(store, store, nil)

	got, err := r.Resolve(context.Background(), []string{"A", "B"}, 0.8, "XMIL")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, day("2026-03-03"), *got)
}

func TestResolve_SignalCoverageRequiredWhenStoreExists(t *testing.T) {
	store := &fakeStore{
		prices: map[string][]string{
			"2026-03-02": {"A", "B"},
			"2026-03-03": {"A", "B"},
		},
		signals: map[string][]string{
			"2026-03-02": {"A", "B"},
			"2026-03-03": {"A"},
		},
		open: []string{"2026-03-02", "2026-03-03"},
	}

	withSignals := NewResolver(store, store, store)
	got, err := withSignals.Resolve(context.Background(), []string{"A", "B"}, 1, "XMIL")
	require.NoError(t, err)
	assert.Equal(t, day("2026-03-02"), *got)

	pricesOnly := NewResolver(store, store, nil)
	got, err = pricesOnly.Resolve(context.Background(), []string{"A", "B"}, 1, "XMIL")
	require.NoError(t, err)
	assert.Equal(t, day("2026-03-03"), *got)
}

func TestResolve_EmptySignalStoreFallsBackToMaxPrice(t *testing.T) {
	store := &fakeStore{
		prices: map[string][]string{
			"2026-03-02": {"A", "B"},
			"2026-03-05": {"A"},
		},
		signals: map[string][]string{},
		open:    []string{"2026-03-02", "2026-03-05"},
	}
	r := NewResolver(store, store, store)

	got, err := r.Resolve(context.Background(), []string{"A", "B"}, 1, "XMIL")

	require.NoError(t, err)
	assert.Equal(t, day("2026-03-05"), *got)
}

func TestResolve_ClosedDaysNeverQualify(t *testing.T) {
	store := &fakeStore{
		prices: map[string][]string{
			"2026-03-06": {"A", "B"},
			"2026-03-07": {"A", "B"},
		},
		open: []string{"2026-03-06"},
	}
	r := NewResolver(store, store, nil)

	got, err := r.Resolve(context.Background(), []string{"A", "B"}, 1, "XMIL")

	require.NoError(t, err)
	assert.Equal(t, day("2026-03-06"), *got)
}

func TestResolve_FallsBackToMaxPriceDate(t *testing.T) {
	store := &fakeStore{
		prices: map[string][]string{
			"2026-03-02": {"A"},
			"2026-03-09": {"B"},
		},
		open: []string{"2026-03-02"},
	}
	r := NewResolver(store, store, nil)

	got, err := r.Resolve(context.Background(), []string{"A", "B"}, 1, "XMIL")

	require.NoError(t, err)
	assert.Equal(t, day("2026-03-09"), *got)
}

func TestResolve_NoPriceDataReturnsNil(t *testing.T) {
	store := &fakeStore{open: []string{"2026-03-02"}}
	r := NewResolver(store, store, nil)

	got, err := r.Resolve(context.Background(), []string{"A"}, 0.5, "XMIL")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolve_EmptyUniverseSkipsCoverage(t *testing.T) {
	store := &fakeStore{
		prices: map[string][]string{"2026-03-09": {"Z"}},
	}
	r := NewResolver(store, store, nil)

	got, err := r.Resolve(context.Background(), nil, 0.8, "XMIL")

	require.NoError(t, err)
	assert.Equal(t, day("2026-03-09"), *got)
}

func TestResolve_ThresholdClamped(t *testing.T) {
	store := &fakeStore{
		prices: map[string][]string{
			"2026-03-02": {"A", "B"},
			"2026-03-03": {"A"},
		},
		open: []string{"2026-03-02", "2026-03-03"},
	}
	r := NewResolver(store, store, nil)

	got, err := r.Resolve(context.Background(), []string{"A", "B"}, -0.5, "XMIL")
	require.NoError(t, err)
	assert.Equal(t, day("2026-03-03"), *got)

	got, err = r.Resolve(context.Background(), []string{"A", "B"}, 4, "XMIL")
	require.NoError(t, err)
	assert.Equal(t, day("2026-03-02"), *got)
}

func TestResolve_PropagatesStoreFailure(t *testing.T) {
	boom := errors.New("connection reset")
	store := &fakeStore{err: boom, open: []string{"2026-03-02"}}
	r := NewResolver(store, store, nil)

	_, err := r.Resolve(context.Background(), []string{"A"}, 1, "XMIL")

	assert.ErrorIs(t, err, boom)
}
