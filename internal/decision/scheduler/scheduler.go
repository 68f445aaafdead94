package scheduler

import (
	"context"
	"fmt"
	"time"

	"golang-etf-decision/internal/decision/config"
	"golang-etf-decision/internal/decision/strategy"
	"golang-etf-decision/pkg/logger"
	"golang-etf-decision/pkg/metrics"

	"github.com/robfig/cron/v3"
)

const defaultJobTimeout = 5 * time.Minute

// Scheduler runs job strategies on their cron expressions.
type Scheduler struct {
	cron       *cron.Cron
	logger     *logger.Logger
	metrics    *metrics.Recorder
	strategies map[strategy.JobType]strategy.JobExecutionStrategy
	timeouts   map[strategy.JobType]time.Duration
}

// NewScheduler registers every configured job. Unknown job types and bad cron expressions fail fast.
func NewScheduler(cfg config.Scheduler, log *logger.Logger, recorder *metrics.Recorder, strategies []strategy.JobExecutionStrategy) (*Scheduler, error) {
	loc := time.UTC
	if cfg.Location != "" {
		l, err := time.LoadLocation(cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to load scheduler location %q: %w", cfg.Location, err)
		}
		loc = l
	}

	cl := &cronLogger{log: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
			cron.WithLogger(cl),
		),
		logger:     log,
		metrics:    recorder,
		strategies: make(map[strategy.JobType]strategy.JobExecutionStrategy),
		timeouts:   make(map[strategy.JobType]time.Duration),
	}
	for _, st := range strategies {
		s.strategies[st.GetType()] = st
	}

	for _, job := range cfg.Jobs {
		jobType := strategy.JobType(job.Type)
		if _, ok := s.strategies[jobType]; !ok {
			return nil, fmt.Errorf("no executor strategy found for job type: %s", job.Type)
		}
		s.timeouts[jobType] = job.Timeout

		if _, err := s.cron.AddFunc(job.CronExpression, func() {
			_, _ = s.RunJob(context.Background(), jobType)
		}); err != nil {
			return nil, fmt.Errorf("invalid cron expression %q for job %s: %w", job.CronExpression, job.Type, err)
		}
		s.logger.Info("Job scheduled", logger.StringField("type", job.Type), logger.StringField("cron", job.CronExpression))
	}

	return s, nil
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("Next execution", logger.Field("entry_id", e.ID), logger.Field("next", e.Next))
	}
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with jobs still running")
	}
}

// RunJob executes a job immediately under its configured timeout.
func (s *Scheduler) RunJob(ctx context.Context, jobType strategy.JobType) (string, error) {
	st, ok := s.strategies[jobType]
	if !ok {
		err := fmt.Errorf("no executor strategy found for job type: %s", jobType)
		s.logger.Error("Job execution failed", logger.ErrorField(err))
		return "", err
	}

	timeout := s.timeouts[jobType]
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	s.logger.Info("Processing job", logger.StringField("type", string(jobType)))

	output, err := st.Execute(execCtx)
	s.metrics.RecordLatency("job_"+string(jobType), time.Since(started).Seconds())
	if err != nil {
		s.logger.Error("Job execution failed", logger.ErrorField(err), logger.StringField("type", string(jobType)))
		return output, err
	}

	s.logger.Info("Job executed successfully",
		logger.StringField("type", string(jobType)),
		logger.StringField("duration", time.Since(started).String()),
		logger.StringField("output", output))
	return output, nil
}

// cronLogger routes cron's internal logs to zap.
type cronLogger struct {
	log *logger.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
