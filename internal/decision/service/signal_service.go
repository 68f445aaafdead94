package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang-etf-decision/internal/coverage"
	"golang-etf-decision/internal/decision/config"
	"golang-etf-decision/internal/decision/dto"
	"golang-etf-decision/internal/decision/repository"
	"golang-etf-decision/internal/entity"
	"golang-etf-decision/internal/signal"
	"golang-etf-decision/pkg/common"
	"golang-etf-decision/pkg/logger"
	"golang-etf-decision/pkg/metrics"
	"golang-etf-decision/pkg/telegram"
	"golang-etf-decision/pkg/utils"

	"github.com/google/uuid"
)

// DateResolver picks the as-of date for a universe.
type DateResolver interface {
	Resolve(ctx context.Context, symbols []string, threshold float64, venue string) (*time.Time, error)
	HasSignalStore() bool
}

// SignalService generates, stores and reads trading signals.
type SignalService interface {
	ResolveDate(ctx context.Context, symbols []string, threshold float64, venue string) (*dto.CoverageDateResponse, error)
	GenerateLatest(ctx context.Context) (*dto.GenerationSummary, error)
	GenerateForDate(ctx context.Context, date time.Time) (*dto.GenerationSummary, error)
	Evaluate(ctx context.Context, req dto.EvaluateSignalRequest) (*signal.Result, error)
	GetByDate(ctx context.Context, date time.Time) ([]entity.SignalRecord, error)
	GetHistory(ctx context.Context, symbol string, limit int) ([]entity.SignalRecord, error)
}

type signalService struct {
	cfg           *config.Config
	log           *logger.Logger
	resolver      DateResolver
	pending       DateResolver
	engine        *signal.Engine
	indicatorRepo repository.IndicatorRepository
	signalRepo    repository.SignalRepository
	guardRepo     repository.GuardRepository
	eventRepo     repository.EventRepository
	notifier      telegram.Notifier
	metrics       *metrics.Recorder
}

// NewSignalService builds the service. resolver answers coverage queries for decision consumers and
// requires signal coverage when a signal store exists. pending picks the next date to generate and must
// rely on prices alone, otherwise a day without signals could never be selected.
func NewSignalService(
	cfg *config.Config,
	log *logger.Logger,
	resolver DateResolver,
	pending DateResolver,
	engine *signal.Engine,
	indicatorRepo repository.IndicatorRepository,
	signalRepo repository.SignalRepository,
	guardRepo repository.GuardRepository,
	eventRepo repository.EventRepository,
	notifier telegram.Notifier,
	recorder *metrics.Recorder,
) SignalService {
	return &signalService{
		cfg:           cfg,
		log:           log,
		resolver:      resolver,
		pending:       pending,
		engine:        engine,
		indicatorRepo: indicatorRepo,
		signalRepo:    signalRepo,
		guardRepo:     guardRepo,
		eventRepo:     eventRepo,
		notifier:      notifier,
		metrics:       recorder,
	}
}

func (s *signalService) ResolveDate(ctx context.Context, symbols []string, threshold float64, venue string) (*dto.CoverageDateResponse, error) {
	if venue == "" {
		venue = s.cfg.Decision.Venue
	}
	threshold = coverage.ClampThreshold(threshold)
	symbols = coverage.Dedupe(symbols)

	date, err := s.resolver.Resolve(ctx, symbols, threshold, venue)
	if err != nil {
		s.log.Error("Failed to resolve coverage date", logger.ErrorField(err), logger.StringField("venue", venue))
		return nil, err
	}

	resp := &dto.CoverageDateResponse{
		Venue:          venue,
		Threshold:      threshold,
		Symbols:        symbols,
		HasSignalStore: s.resolver.HasSignalStore(),
	}
	// an empty universe skips coverage and takes the latest price date
	if len(symbols) > 0 {
		resp.MinRequired = coverage.MinRequired(threshold, len(symbols))
	}
	if date != nil {
		formatted := utils.FormatDay(*date)
		resp.Date = &formatted
	}
	return resp, nil
}

// GenerateLatest generates signals for the latest date on which the configured universe has prices.
// When no date can be resolved the summary carries a nil Date and nothing is written.
func (s *signalService) GenerateLatest(ctx context.Context) (*dto.GenerationSummary, error) {
	date, err := s.pending.Resolve(ctx, s.cfg.Decision.Universe, s.cfg.Decision.CoverageThreshold, s.cfg.Decision.Venue)
	if err != nil {
		s.log.Error("Failed to resolve coverage date", logger.ErrorField(err))
		return nil, err
	}
	if date == nil {
		s.log.Warn("No valid decision date, skipping signal generation",
			logger.StringField("venue", s.cfg.Decision.Venue),
			logger.IntField("universe_size", len(s.cfg.Decision.Universe)))
		return &dto.GenerationSummary{}, nil
	}
	return s.GenerateForDate(ctx, *date)
}

func (s *signalService) GenerateForDate(ctx context.Context, date time.Time) (*dto.GenerationSummary, error) {
	date = utils.Day(date)
	runID := uuid.NewString()
	ctx = logger.WithContext(ctx,
		logger.StringField("as_of", utils.FormatDay(date)),
		logger.StringField("run_id", runID))

	started := time.Now()
	defer func() { s.metrics.RecordLatency("signal_generation", time.Since(started).Seconds()) }()

	snapshots, err := s.indicatorRepo.FindByDate(ctx, date, s.cfg.Decision.Universe)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load indicator snapshots", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to load indicator snapshots: %w", err)
	}

	// read once so every symbol of the run sees the same guard state
	guardActive, err := s.guardRepo.IsActive(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to read risk guard", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to read risk guard: %w", err)
	}

	summary := &dto.GenerationSummary{
		RunID:       runID,
		Date:        &date,
		GuardActive: guardActive,
		Warnings:    map[string][]string{},
	}

	seen := make(map[string]bool, len(snapshots))
	for _, snap := range snapshots {
		seen[snap.Symbol] = true
		res := s.engine.Generate(snap, guardActive)

		if len(res.Warnings) > 0 {
			summary.Warnings[snap.Symbol] = res.Warnings
			for _, w := range res.Warnings {
				s.metrics.RecordMissingData(w)
			}
			s.log.WarnContext(ctx, "Missing indicator data", logger.StringField("symbol", snap.Symbol), logger.Field("warnings", res.Warnings))
		}

		record, err := toRecord(date, snap, s.engine.Config(), res)
		if err != nil {
			return nil, err
		}
		if err := s.signalRepo.Upsert(ctx, record); err != nil {
			s.log.ErrorContext(ctx, "Failed to store signal", logger.ErrorField(err), logger.StringField("symbol", snap.Symbol))
			return nil, fmt.Errorf("failed to store signal for %s: %w", snap.Symbol, err)
		}
		summary.Signals = append(summary.Signals, *record)
		s.metrics.RecordSignal(string(res.State))

		if _, err := s.eventRepo.Publish(ctx, common.RedisStreamSignalGenerated, toEvent(runID, record)); err != nil {
			summary.PublishFailures++
			s.metrics.RecordPublishFailure()
			s.log.ErrorContext(ctx, "Failed to publish signal event", logger.ErrorField(err), logger.StringField("symbol", snap.Symbol))
		}

		s.log.DebugContext(ctx, "Signal generated",
			logger.StringField("symbol", snap.Symbol),
			logger.StringField("state", string(res.State)),
			logger.FloatField("risk_scalar", res.RiskScalar),
			logger.StringField("explain", res.ExplainCode))
	}

	for _, symbol := range s.cfg.Decision.Universe {
		if !seen[symbol] {
			summary.MissingSymbols = append(summary.MissingSymbols, symbol)
			s.metrics.RecordMissingData("snapshot")
		}
	}
	if len(summary.MissingSymbols) > 0 {
		s.log.WarnContext(ctx, "No indicator snapshot for symbols", logger.Field("symbols", summary.MissingSymbols))
	}

	if len(summary.Signals) > 0 {
		msg := telegram.FormatSignalSummary(date, summary.Signals, guardActive, summary.MissingSymbols)
		if err := s.notifier.SendMessage(ctx, msg); err != nil {
			s.log.ErrorContext(ctx, "Failed to send signal summary", logger.ErrorField(err))
		}
	}

	s.log.InfoContext(ctx, "Signal generation completed",
		logger.IntField("signals", len(summary.Signals)),
		logger.IntField("missing", len(summary.MissingSymbols)),
		logger.Field("guard_active", guardActive))
	return summary, nil
}

func (s *signalService) Evaluate(ctx context.Context, req dto.EvaluateSignalRequest) (*signal.Result, error) {
	guardActive := false
	if req.GuardActive != nil {
		guardActive = *req.GuardActive
	} else {
		active, err := s.guardRepo.IsActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read risk guard: %w", err)
		}
		guardActive = active
	}

	res := s.engine.Generate(entity.IndicatorSnapshot{
		Symbol:        req.Symbol,
		AdjustedClose: req.AdjustedClose,
		SMA200:        req.SMA200,
		Volatility20D: req.Volatility20D,
		DrawdownPct:   req.DrawdownPct,
	}, guardActive)
	return &res, nil
}

func (s *signalService) GetByDate(ctx context.Context, date time.Time) ([]entity.SignalRecord, error) {
	return s.signalRepo.FindByDate(ctx, utils.Day(date))
}

func (s *signalService) GetHistory(ctx context.Context, symbol string, limit int) ([]entity.SignalRecord, error) {
	return s.signalRepo.FindLatestBySymbol(ctx, symbol, limit)
}

type signalAudit struct {
	Inputs entity.IndicatorSnapshot `json:"inputs"`
	Config signal.Config            `json:"config"`
	Stages []signal.Stage           `json:"stages"`
}

func toRecord(date time.Time, snap entity.IndicatorSnapshot, cfg signal.Config, res signal.Result) (*entity.SignalRecord, error) {
	snap.ID = 0
	data, err := json.Marshal(signalAudit{Inputs: snap, Config: cfg, Stages: res.Stages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signal audit for %s: %w", snap.Symbol, err)
	}
	return &entity.SignalRecord{
		Date:         date,
		Symbol:       snap.Symbol,
		SignalState:  res.State,
		RiskScalar:   res.RiskScalar,
		ExplainCode:  res.ExplainCode,
		RegimeFilter: res.RegimeFilter,
		Data:         data,
	}, nil
}

func toEvent(runID string, r *entity.SignalRecord) dto.SignalEvent {
	return dto.SignalEvent{
		RunID:        runID,
		Date:         utils.FormatDay(r.Date),
		Symbol:       r.Symbol,
		SignalState:  r.SignalState,
		RiskScalar:   r.RiskScalar,
		ExplainCode:  r.ExplainCode,
		RegimeFilter: r.RegimeFilter,
	}
}
