package main

import (
	"context"
	"fmt"

	"golang-etf-decision/internal/coverage"
	"golang-etf-decision/internal/decision/config"
	"golang-etf-decision/internal/decision/repository"
	"golang-etf-decision/internal/decision/service"
	"golang-etf-decision/internal/signal"
	"golang-etf-decision/internal/taxloss"
	"golang-etf-decision/pkg/logger"
	"golang-etf-decision/pkg/metrics"
	"golang-etf-decision/pkg/postgres"
	"golang-etf-decision/pkg/redis"
	"golang-etf-decision/pkg/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *postgres.DB
	redisClient *redis.Client
	notifier    telegram.Notifier
	metrics     *metrics.Recorder

	signalService    service.SignalService
	taxLossService   service.TaxLossService
	guardService     service.GuardService
	lossUsageService service.LossUsageService
}

func newApp(ctx context.Context, path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := postgres.NewDB(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	notifier := telegram.NewNopNotifier()
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxMessagesPerMinute)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telegram: %w", err)
		}
	}

	recorder := metrics.New(prometheus.DefaultRegisterer)

	// Repositories
	priceRepo := repository.NewPriceRepository(db.DB)
	indicatorRepo := repository.NewIndicatorRepository(db.DB)
	signalRepo := repository.NewSignalRepository(db.DB)
	calendarRepo := repository.NewCalendarRepository(db.DB, cfg.Decision.CalendarCacheTTL)
	lotRepo := repository.NewTaxLossLotRepository(db.DB)
	guardRepo := repository.NewGuardRepository(redisClient.Client)
	eventRepo := repository.NewEventRepository(redisClient.Client, cfg.Redis.StreamMaxLen)
	progressRepo := repository.NewUsageProgressRepository(redisClient.Client, cfg.Consumer.TaxLossUsageProgressTTL)

	// The signal store is probed once. Without it coverage relies on prices alone.
	var signalSource coverage.SignalSource
	if signalRepo.Available(ctx) {
		signalSource = signalRepo
	} else {
		appLogger.Warn("Signal store not available, coverage uses prices only")
	}
	resolver := coverage.NewResolver(priceRepo, calendarRepo, signalSource)
	pendingResolver := coverage.NewResolver(priceRepo, calendarRepo, nil)

	engine := signal.NewEngine(cfg.Signal)
	allocator := taxloss.NewAllocator(lotRepo, decimal.NewFromFloat(cfg.Tax.ShortfallEpsilon))

	signalService := service.NewSignalService(cfg, appLogger, resolver, pendingResolver, engine, indicatorRepo, signalRepo, guardRepo, eventRepo, notifier, recorder)
	taxLossService := service.NewTaxLossService(cfg, appLogger, allocator, lotRepo, notifier, recorder)

	return &app{
		cfg:              cfg,
		log:              appLogger,
		db:               db,
		redisClient:      redisClient,
		notifier:         notifier,
		metrics:          recorder,
		signalService:    signalService,
		taxLossService:   taxLossService,
		guardService:     service.NewGuardService(appLogger, guardRepo),
		lossUsageService: service.NewLossUsageService(cfg, appLogger, redisClient, taxLossService, progressRepo, notifier, recorder),
	}, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.redisClient.Close()
	_ = a.log.Sync()
}
