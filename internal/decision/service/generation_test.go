package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"golang-etf-decision/internal/coverage"
	"golang-etf-decision/internal/decision/repository"
	"golang-etf-decision/internal/entity"
	"golang-etf-decision/internal/signal"
	"golang-etf-decision/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newGenerationDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entity.PriceObservation{},
		&entity.IndicatorSnapshot{},
		&entity.SignalRecord{},
		&entity.TradingCalendarDay{},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestGenerateLatest_AdvancesAcrossTradingDays(t *testing.T) {
	db := newGenerationDB(t)
	ctx := context.Background()

	cfg := testConfig()
	cfg.Decision.Universe = []string{"VWCE", "AGGH"}
	cfg.Decision.CoverageThreshold = 1

	days := []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05"}
	for _, d := range days {
		require.NoError(t, db.Create(&entity.TradingCalendarDay{Venue: cfg.Decision.Venue, Date: day(d), IsOpen: true}).Error)
	}

	priceRepo := repository.NewPriceRepository(db)
	calendarRepo := repository.NewCalendarRepository(db, time.Hour)
	signalRepo := repository.NewSignalRepository(db)
	resolver := coverage.NewResolver(priceRepo, calendarRepo, signalRepo)
	pending := coverage.NewResolver(priceRepo, calendarRepo, nil)

	svc := NewSignalService(cfg, logger.NewNop(), resolver, pending, signal.NewEngine(cfg.Signal),
		repository.NewIndicatorRepository(db), signalRepo, &fakeGuard{}, &fakeEvents{}, &fakeNotifier{}, testRecorder())

	for _, d := range days {
		for _, symbol := range cfg.Decision.Universe {
			require.NoError(t, db.Create(&entity.PriceObservation{Symbol: symbol, Date: day(d), Close: 110, AdjustedClose: 110, Volume: 1000}).Error)
			require.NoError(t, db.Create(&entity.IndicatorSnapshot{
				Symbol: symbol, Date: day(d), AdjustedClose: 110,
				SMA200: f(100), Volatility20D: f(0.15), DrawdownPct: f(-0.05),
			}).Error)
		}

		summary, err := svc.GenerateLatest(ctx)
		require.NoError(t, err, d)
		require.NotNil(t, summary.Date, d)
		assert.Equal(t, d, summary.Date.Format("2006-01-02"))
		assert.Len(t, summary.Signals, 2, d)

		resolved, err := svc.ResolveDate(ctx, cfg.Decision.Universe, 1, "")
		require.NoError(t, err, d)
		require.NotNil(t, resolved.Date, d)
		assert.Equal(t, d, *resolved.Date, "decision date follows the freshly generated signals")
	}

	stored, err := signalRepo.FindByDate(ctx, day(days[len(days)-1]))
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestGenerateLatest_SkipsDayWithIncompletePrices(t *testing.T) {
	db := newGenerationDB(t)
	ctx := context.Background()

	cfg := testConfig()
	cfg.Decision.Universe = []string{"VWCE", "AGGH"}
	cfg.Decision.CoverageThreshold = 1

	require.NoError(t, db.Create(&[]entity.TradingCalendarDay{
		{Venue: cfg.Decision.Venue, Date: day("2026-03-02"), IsOpen: true},
		{Venue: cfg.Decision.Venue, Date: day("2026-03-03"), IsOpen: true},
	}).Error)
	require.NoError(t, db.Create(&[]entity.PriceObservation{
		{Symbol: "VWCE", Date: day("2026-03-02"), Close: 1, AdjustedClose: 1},
		{Symbol: "AGGH", Date: day("2026-03-02"), Close: 1, AdjustedClose: 1},
		{Symbol: "VWCE", Date: day("2026-03-03"), Close: 1, AdjustedClose: 1},
	}).Error)

	priceRepo := repository.NewPriceRepository(db)
	calendarRepo := repository.NewCalendarRepository(db, time.Hour)
	signalRepo := repository.NewSignalRepository(db)

	svc := NewSignalService(cfg, logger.NewNop(),
		coverage.NewResolver(priceRepo, calendarRepo, signalRepo),
		coverage.NewResolver(priceRepo, calendarRepo, nil),
		signal.NewEngine(cfg.Signal), repository.NewIndicatorRepository(db), signalRepo,
		&fakeGuard{}, &fakeEvents{}, &fakeNotifier{}, testRecorder())

	summary, err := svc.GenerateLatest(ctx)

	require.NoError(t, err)
	require.NotNil(t, summary.Date)
	assert.Equal(t, "2026-03-02", summary.Date.Format("2006-01-02"))
}
