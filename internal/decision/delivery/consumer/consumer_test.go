package consumer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"golang-etf-decision/internal/decision/config"
	"golang-etf-decision/internal/decision/dto"
	"golang-etf-decision/pkg/logger"

	"github.com/stretchr/testify/assert"
)

type countingService struct {
	tasks       atomic.Int32
	retries     atomic.Int32
	taskPanics  int32
	retryPanics int32
}

func (s *countingService) ProcessTask(ctx context.Context) {
	if s.tasks.Add(1) <= s.taskPanics {
		panic("decode exploded")
	}
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Millisecond):
	}
}

func (s *countingService) ProcessRetries(context.Context) {
	if s.retries.Add(1) <= s.retryPanics {
		panic("claim exploded")
	}
}

func (s *countingService) Handle(context.Context, dto.LossUsageEvent, string) error { return nil }

func TestRedisConsumer_StartStop(t *testing.T) {
	cfg := &config.Config{Consumer: config.Consumer{
		TaxLossUsageTimeout:       time.Second,
		TaxLossUsageRetryInterval: 10 * time.Millisecond,
	}}
	svc := &countingService{}
	c := NewRedisConsumer(cfg, svc, logger.NewNop())

	c.Start(context.Background())
	assert.Eventually(t, func() bool {
		return svc.tasks.Load() > 0 && svc.retries.Load() > 0
	}, time.Second, 5*time.Millisecond)

	c.Stop()
	c.Stop()

	tasks := svc.tasks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, tasks, svc.tasks.Load(), "no work after stop")
}

func TestRedisConsumer_StopsOnContextCancel(t *testing.T) {
	cfg := &config.Config{Consumer: config.Consumer{
		TaxLossUsageTimeout:       time.Second,
		TaxLossUsageRetryInterval: time.Hour,
	}}
	svc := &countingService{}
	c := NewRedisConsumer(cfg, svc, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop on context cancellation")
	}
}

func TestRedisConsumer_SurvivesHandlerPanics(t *testing.T) {
	tests := []struct {
		name        string
		taskPanics  int32
		retryPanics int32
	}{
		{name: "stream handler", taskPanics: 2},
		{name: "ticker handler", retryPanics: 2},
		{name: "both", taskPanics: 1, retryPanics: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Consumer: config.Consumer{
				TaxLossUsageTimeout:       time.Second,
				TaxLossUsageRetryInterval: 5 * time.Millisecond,
			}}
			svc := &countingService{taskPanics: tt.taskPanics, retryPanics: tt.retryPanics}
			c := NewRedisConsumer(cfg, svc, logger.NewNop())
			c.backoff = time.Millisecond

			c.Start(context.Background())
			assert.Eventually(t, func() bool {
				return svc.tasks.Load() > tt.taskPanics+1 && svc.retries.Load() > tt.retryPanics+1
			}, time.Second, 5*time.Millisecond, "loops keep running after a panic")

			c.Stop()
		})
	}
}
