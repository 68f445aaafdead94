package taxloss

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang-etf-decision/internal/entity"

	"github.com/shopspring/decimal"
)

// ErrConcurrentUpdate is returned when a lot changed between read and write.
var ErrConcurrentUpdate = errors.New("tax loss lot modified concurrently")

// DefaultEpsilon absorbs rounding noise when deciding whether a usage is fully covered.
var DefaultEpsilon = decimal.NewFromFloat(0.01)

// LotStore is the persistence the allocator needs. The allocator is the only writer of used_amount.
type LotStore interface {
	// OpenLots returns unflagged lots of the category expiring strictly after the date,
	// ordered by (expires_at, id).
	OpenLots(ctx context.Context, category string, after time.Time) ([]entity.TaxLossLot, error)
	// UpdateUsed sets used_amount to next only if it still equals prev. It reports whether a row changed.
	UpdateUsed(ctx context.Context, id uint, prev, next decimal.Decimal) (bool, error)
	// Flag excludes a lot from future allocations.
	Flag(ctx context.Context, id uint, reason string) error
}

// Request asks to offset a realized gain with available losses.
type Request struct {
	Symbol      string          `json:"symbol"`
	TaxCategory string          `json:"tax_category"`
	Amount      decimal.Decimal `json:"amount"`
	RealizeDate time.Time       `json:"realize_date"`
}

// Usage is the part of a request served by one lot.
type Usage struct {
	LotID      uint            `json:"lot_id"`
	Amount     decimal.Decimal `json:"amount"`
	UsedBefore decimal.Decimal `json:"used_before"`
	UsedAfter  decimal.Decimal `json:"used_after"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// FlaggedLot is a lot excluded because its stored amounts break the ledger invariant.
type FlaggedLot struct {
	LotID  uint   `json:"lot_id"`
	Reason string `json:"reason"`
}

// Result reports what an allocation did. A positive Shortfall is a valid outcome.
type Result struct {
	Requested   decimal.Decimal `json:"requested"`
	Consumed    decimal.Decimal `json:"consumed"`
	Shortfall   decimal.Decimal `json:"shortfall"`
	Usages      []Usage         `json:"usages"`
	FlaggedLots []FlaggedLot    `json:"flagged_lots,omitempty"`
}

// HasShortfall reports whether the request was under-covered.
func (r Result) HasShortfall() bool {
	return r.Shortfall.IsPositive()
}

// Allocator consumes loss lots soonest-expiry first.
type Allocator struct {
	store   LotStore
	epsilon decimal.Decimal

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAllocator creates an allocator. A non-positive epsilon falls back to DefaultEpsilon.
func NewAllocator(store LotStore, epsilon decimal.Decimal) *Allocator {
	if !epsilon.IsPositive() {
		epsilon = DefaultEpsilon
	}
	return &Allocator{
		store:   store,
		epsilon: epsilon,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (a *Allocator) categoryLock(category string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[category]
	if !ok {
		l = &sync.Mutex{}
		a.locks[category] = l
	}
	return l
}

// Allocate serves req from the eligible lots of its category. Allocations for the same
// category are serialized. Every lot update is committed before the next lot is read.
// A store failure stops the run and is returned together with what was already committed.
func (a *Allocator) Allocate(ctx context.Context, req Request) (Result, error) {
	res := Result{
		Requested: req.Amount,
		Consumed:  decimal.Zero,
		Shortfall: decimal.Zero,
	}
	if !req.Amount.IsPositive() {
		return res, nil
	}

	lock := a.categoryLock(req.TaxCategory)
	lock.Lock()
	defer lock.Unlock()

	lots, err := a.store.OpenLots(ctx, req.TaxCategory, req.RealizeDate)
	if err != nil {
		return res, fmt.Errorf("failed to load tax loss lots for %s: %w", req.TaxCategory, err)
	}

	remaining := req.Amount
	for _, lot := range lots {
		if !remaining.IsPositive() {
			break
		}
		if !lot.ExpiresAt.After(req.RealizeDate) {
			continue
		}

		if reason := corruption(lot); reason != "" {
			if err := a.store.Flag(ctx, lot.ID, reason); err != nil {
				return a.finish(res, remaining), fmt.Errorf("failed to flag tax loss lot %d: %w", lot.ID, err)
			}
			res.FlaggedLots = append(res.FlaggedLots, FlaggedLot{LotID: lot.ID, Reason: reason})
			continue
		}

		available := lot.Available()
		if !available.IsPositive() {
			continue
		}

		take := decimal.Min(remaining, available)
		next := lot.UsedAmount.Add(take)

		ok, err := a.store.UpdateUsed(ctx, lot.ID, lot.UsedAmount, next)
		if err != nil {
			return a.finish(res, remaining), fmt.Errorf("failed to update tax loss lot %d: %w", lot.ID, err)
		}
		if !ok {
			return a.finish(res, remaining), fmt.Errorf("lot %d: %w", lot.ID, ErrConcurrentUpdate)
		}

		res.Usages = append(res.Usages, Usage{
			LotID:      lot.ID,
			Amount:     take,
			UsedBefore: lot.UsedAmount,
			UsedAfter:  next,
			ExpiresAt:  lot.ExpiresAt,
		})
		res.Consumed = res.Consumed.Add(take)
		remaining = remaining.Sub(take)
	}

	return a.finish(res, remaining), nil
}

func (a *Allocator) finish(res Result, remaining decimal.Decimal) Result {
	if remaining.GreaterThan(a.epsilon) {
		res.Shortfall = remaining
	}
	return res
}

// corruption describes why a lot breaks the ledger invariant, or returns "".
func corruption(lot entity.TaxLossLot) string {
	switch {
	case lot.LossAmount.IsPositive():
		return "loss_amount is positive"
	case lot.UsedAmount.IsNegative():
		return "used_amount is negative"
	case lot.UsedAmount.GreaterThan(lot.Capacity()):
		return "used_amount exceeds loss capacity"
	}
	return ""
}
