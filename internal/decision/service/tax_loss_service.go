package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang-etf-decision/internal/decision/config"
	"golang-etf-decision/internal/decision/dto"
	"golang-etf-decision/internal/decision/repository"
	"golang-etf-decision/internal/entity"
	"golang-etf-decision/internal/taxloss"
	"golang-etf-decision/pkg/logger"
	"golang-etf-decision/pkg/metrics"
	"golang-etf-decision/pkg/telegram"
	"golang-etf-decision/pkg/utils"
)

// ErrInvalidRequest marks a request rejected before touching the ledger.
var ErrInvalidRequest = errors.New("invalid request")

// LossAllocator consumes tax loss lots for a realized gain.
type LossAllocator interface {
	Allocate(ctx context.Context, req taxloss.Request) (taxloss.Result, error)
}

// TaxLossService applies realized gains against carried-forward losses.
type TaxLossService interface {
	Allocate(ctx context.Context, req dto.AllocateLossRequest) (*taxloss.Result, error)
	ListLots(ctx context.Context, category string) ([]entity.TaxLossLot, error)
}

type taxLossService struct {
	cfg       *config.Config
	log       *logger.Logger
	allocator LossAllocator
	lotRepo   repository.TaxLossLotRepository
	notifier  telegram.Notifier
	metrics   *metrics.Recorder
}

func NewTaxLossService(
	cfg *config.Config,
	log *logger.Logger,
	allocator LossAllocator,
	lotRepo repository.TaxLossLotRepository,
	notifier telegram.Notifier,
	recorder *metrics.Recorder,
) TaxLossService {
	return &taxLossService{
		cfg:       cfg,
		log:       log,
		allocator: allocator,
		lotRepo:   lotRepo,
		notifier:  notifier,
		metrics:   recorder,
	}
}

// Allocate validates the request and runs the allocator. When the allocator fails after
// committing some lots, the partial result is returned together with the error.
func (s *taxLossService) Allocate(ctx context.Context, in dto.AllocateLossRequest) (*taxloss.Result, error) {
	req, err := toAllocationRequest(in)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithContext(ctx,
		logger.StringField("symbol", req.Symbol),
		logger.StringField("tax_category", req.TaxCategory),
		logger.StringField("realize_date", utils.FormatDay(req.RealizeDate)))

	started := time.Now()
	res, err := s.allocator.Allocate(ctx, req)
	s.metrics.RecordLatency("tax_loss_allocation", time.Since(started).Seconds())
	if err != nil {
		s.metrics.RecordAllocation(req.TaxCategory, metrics.OutcomeFailed, 0)
		s.log.ErrorContext(ctx, "Tax loss allocation failed",
			logger.ErrorField(err),
			logger.StringField("consumed", res.Consumed.String()))
		return &res, err
	}

	for _, f := range res.FlaggedLots {
		s.log.WarnContext(ctx, "Tax loss lot flagged", logger.Field("lot_id", f.LotID), logger.StringField("reason", f.Reason))
	}

	if res.HasShortfall() {
		s.metrics.RecordAllocation(req.TaxCategory, metrics.OutcomeShortfall, res.Shortfall.InexactFloat64())
		s.log.WarnContext(ctx, "Tax loss allocation shortfall",
			logger.StringField("requested", res.Requested.String()),
			logger.StringField("consumed", res.Consumed.String()),
			logger.StringField("shortfall", res.Shortfall.String()))
		if s.cfg.Tax.NotifyShortfall {
			if err := s.notifier.SendMessage(ctx, telegram.FormatShortfallMessage(req, res, s.cfg.Tax.Currency)); err != nil {
				s.log.ErrorContext(ctx, "Failed to send shortfall warning", logger.ErrorField(err))
			}
		}
	} else {
		s.metrics.RecordAllocation(req.TaxCategory, metrics.OutcomeCovered, 0)
		s.log.InfoContext(ctx, "Tax loss allocated",
			logger.StringField("consumed", res.Consumed.String()),
			logger.IntField("lots", len(res.Usages)))
	}

	return &res, nil
}

func (s *taxLossService) ListLots(ctx context.Context, category string) ([]entity.TaxLossLot, error) {
	lots, err := s.lotRepo.FindByCategory(ctx, strings.TrimSpace(category))
	if err != nil {
		s.log.Error("Failed to list tax loss lots", logger.ErrorField(err), logger.StringField("tax_category", category))
		return nil, err
	}
	return lots, nil
}

func toAllocationRequest(in dto.AllocateLossRequest) (taxloss.Request, error) {
	category := strings.TrimSpace(in.TaxCategory)
	if category == "" {
		return taxloss.Request{}, fmt.Errorf("%w: tax_category is required", ErrInvalidRequest)
	}
	realized, err := utils.ParseDay(in.RealizeDate)
	if err != nil {
		return taxloss.Request{}, fmt.Errorf("%w: realize_date: %v", ErrInvalidRequest, err)
	}
	// lots are booked in cents
	return taxloss.Request{
		Symbol:      strings.TrimSpace(in.Symbol),
		TaxCategory: category,
		Amount:      in.Amount.Round(2),
		RealizeDate: realized,
	}, nil
}
