package strategy

import "context"

// JobType identifies a scheduled job.
type JobType string

const (
	JobTypeSignalGeneration JobType = "signal_generation"
)

// JobExecutionStrategy defines the interface for different job execution strategies.
type JobExecutionStrategy interface {
	Execute(ctx context.Context) (string, error)
	GetType() JobType
}
