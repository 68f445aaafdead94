package consumer

import (
	"context"
	"sync"
	"time"

	"golang-etf-decision/internal/decision/config"
	"golang-etf-decision/internal/decision/service"
	"golang-etf-decision/pkg/common"
	"golang-etf-decision/pkg/logger"
	"golang-etf-decision/pkg/utils"
)

// panicBackoff is the pause after a handler panic before the loop runs it again.
const panicBackoff = time.Second

// RedisConsumer manages the consumption of events from Redis streams.
type RedisConsumer struct {
	cfg              *config.Config
	lossUsageService service.LossUsageService
	logger           *logger.Logger
	backoff          time.Duration
	stopChan         chan struct{}
	stopOnce         sync.Once
	wg               sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(cfg *config.Config, lossUsageService service.LossUsageService, log *logger.Logger) *RedisConsumer {
	return &RedisConsumer{
		cfg:              cfg,
		lossUsageService: lossUsageService,
		logger:           log,
		backoff:          panicBackoff,
		stopChan:         make(chan struct{}),
	}
}

// Start begins the consumer's processing loops.
func (c *RedisConsumer) Start(ctx context.Context) {
	c.logger.Info("Redis consumer started")
	c.RegisterStreamHandler(ctx, c.lossUsageService.ProcessTask, common.RedisStreamTaxLossUsage, c.cfg.Consumer.TaxLossUsageTimeout)
	c.RegisterTickerHandler(ctx, c.lossUsageService.ProcessRetries, c.cfg.Consumer.TaxLossUsageRetryInterval, c.cfg.Consumer.TaxLossUsageTimeout, common.RedisStreamTaxLossUsage+"-retry")
}

func (c *RedisConsumer) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), streamName string, timeout time.Duration) {
	c.logger.Info("Registering stream handler", logger.Field("stream", streamName))
	c.wg.Add(1)
	utils.GoSafe(c.logger, func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Redis consumer stopping due to context cancellation")
				return
			case <-c.stopChan:
				c.logger.Info("Redis consumer stopping")
				return
			default:
				if c.run(ctx, fn, timeout) {
					c.logger.Error("Stream handler panicked, restarting", logger.Field("stream", streamName))
					c.pause(ctx)
				}
			}
		}
	})
}

func (c *RedisConsumer) RegisterTickerHandler(ctx context.Context, fn func(ctx context.Context), interval time.Duration, timeout time.Duration, name string) {
	c.logger.Info("Registering ticker handler",
		logger.Field("name", name),
		logger.Field("interval", interval),
		logger.Field("timeout", timeout))
	c.wg.Add(1)
	utils.GoSafe(c.logger, func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if c.run(ctx, fn, timeout) {
					c.logger.Error("Ticker handler panicked", logger.Field("name", name))
				}
			case <-ctx.Done():
				c.logger.Info("Ticker handler stopping due to context cancellation", logger.Field("name", name))
				return
			case <-c.stopChan:
				c.logger.Info("Ticker handler stopping", logger.Field("name", name))
				return
			}
		}
	})
}

// run calls fn once under timeout and reports whether it panicked.
func (c *RedisConsumer) run(ctx context.Context, fn func(ctx context.Context), timeout time.Duration) bool {
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return utils.RunSafe(c.logger, func() { fn(ctxTimeout) })
}

func (c *RedisConsumer) pause(ctx context.Context) {
	select {
	case <-time.After(c.backoff):
	case <-ctx.Done():
	case <-c.stopChan:
	}
}

// Stop gracefully shuts down the consumer.
func (c *RedisConsumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
	c.logger.Info("Redis consumer stopped")
}
