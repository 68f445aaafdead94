package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang-etf-decision/internal/decision/delivery/consumer"
	delivery "golang-etf-decision/internal/decision/delivery/http"
	"golang-etf-decision/internal/decision/dto"
	"golang-etf-decision/internal/decision/scheduler"
	"golang-etf-decision/internal/decision/strategy"
	"golang-etf-decision/pkg/common"
	"golang-etf-decision/pkg/logger"
	"golang-etf-decision/pkg/metrics"
	"golang-etf-decision/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	configPath string

	resolveSymbols   string
	resolveThreshold float64
	resolveVenue     string

	generateDate string

	allocateSymbol   string
	allocateCategory string
	allocateAmount   string
	allocateDate     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the decision service (HTTP API, scheduler and stream consumer)",
	Run:   runServe,
}

var resolveDateCmd = &cobra.Command{
	Use:   "resolve-date",
	Short: "Prints the as-of date for the universe",
	Run:   runResolveDate,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generates and stores signals once",
	Run:   runGenerate,
}

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Offsets a realized gain against tax loss lots",
	Run:   runAllocate,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, configPath)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	appLogger := a.log
	appLogger.Info("Starting Decision Service", logger.Field("name", a.cfg.App.Name))

	if err := a.redisClient.EnsureGroup(ctx, common.RedisStreamTaxLossUsage, common.RedisStreamGroup); err != nil {
		appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
	}

	// Scheduler
	sched, err := scheduler.NewScheduler(a.cfg.Scheduler, appLogger, a.metrics, []strategy.JobExecutionStrategy{
		strategy.NewSignalGenerationStrategy(appLogger, a.signalService),
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize scheduler", logger.ErrorField(err))
	}
	sched.Start()

	// Stream consumer
	redisConsumer := consumer.NewRedisConsumer(a.cfg, a.lossUsageService, appLogger)
	redisConsumer.Start(ctx)

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(metrics.EchoMiddleware(a.metrics))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiV1 := e.Group("/api/v1")
	delivery.NewSignalHandler(a.signalService, a.cfg.Decision, appLogger).RegisterRoutes(apiV1)
	delivery.NewGuardHandler(a.guardService, appLogger).RegisterRoutes(apiV1.Group("/guard"))
	delivery.NewTaxLossHandler(a.taxLossService, appLogger).RegisterRoutes(apiV1.Group("/tax-loss"))

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%d", a.cfg.API.Host, a.cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisConsumer.Stop()
	sched.Stop(shutdownCtx)
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func runResolveDate(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a, err := newApp(ctx, configPath)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	symbols := a.cfg.Decision.Universe
	if cmd.Flags().Changed("symbols") {
		symbols = nil
		for _, s := range strings.Split(resolveSymbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, strings.ToUpper(s))
			}
		}
	}
	threshold := a.cfg.Decision.CoverageThreshold
	if cmd.Flags().Changed("threshold") {
		threshold = resolveThreshold
	}

	resp, err := a.signalService.ResolveDate(ctx, symbols, threshold, resolveVenue)
	if err != nil {
		a.log.Fatal("Failed to resolve coverage date", logger.ErrorField(err))
	}
	printJSON(resp)
}

func runGenerate(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a, err := newApp(ctx, configPath)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	var summary *dto.GenerationSummary
	if generateDate == "" {
		summary, err = a.signalService.GenerateLatest(ctx)
	} else {
		date, perr := utils.ParseDay(generateDate)
		if perr != nil {
			a.log.Fatal("Invalid date", logger.ErrorField(perr))
		}
		summary, err = a.signalService.GenerateForDate(ctx, date)
	}
	if err != nil {
		a.log.Fatal("Failed to generate signals", logger.ErrorField(err))
	}
	printJSON(summary)
}

func runAllocate(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a, err := newApp(ctx, configPath)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	amount, err := decimal.NewFromString(allocateAmount)
	if err != nil {
		a.log.Fatal("Invalid amount", logger.ErrorField(err))
	}
	if allocateDate == "" {
		allocateDate = utils.FormatDay(utils.TimeNowIn(a.cfg.Scheduler.Location))
	}

	res, err := a.taxLossService.Allocate(ctx, dto.AllocateLossRequest{
		Symbol:      allocateSymbol,
		TaxCategory: allocateCategory,
		Amount:      amount,
		RealizeDate: allocateDate,
	})
	if err != nil {
		a.log.Fatal("Failed to allocate tax loss", logger.ErrorField(err))
	}
	printJSON(res)
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to render output: %v", err)
	}
	fmt.Println(string(out))
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "decision-service",
		Short: "ETF decision and fiscal-consistency engine",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-decision.yaml", "Path to the configuration file")

	resolveDateCmd.Flags().StringVar(&resolveSymbols, "symbols", "", "Comma separated symbols, defaults to the configured universe")
	resolveDateCmd.Flags().Float64Var(&resolveThreshold, "threshold", 0.8, "Coverage threshold in [0,1]")
	resolveDateCmd.Flags().StringVar(&resolveVenue, "venue", "", "Trading calendar venue")

	generateCmd.Flags().StringVar(&generateDate, "date", "", "As-of date (YYYY-MM-DD), resolved when empty")

	allocateCmd.Flags().StringVar(&allocateSymbol, "symbol", "", "Symbol sold")
	allocateCmd.Flags().StringVar(&allocateCategory, "category", "", "Tax category")
	allocateCmd.Flags().StringVar(&allocateAmount, "amount", "", "Realized gain to offset")
	allocateCmd.Flags().StringVar(&allocateDate, "date", "", "Realization date (YYYY-MM-DD), today when empty")
	_ = allocateCmd.MarkFlagRequired("category")
	_ = allocateCmd.MarkFlagRequired("amount")

	rootCmd.AddCommand(serveCmd, resolveDateCmd, generateCmd, allocateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing decision-service CLI: %s\n", err)
		os.Exit(1)
	}
}
