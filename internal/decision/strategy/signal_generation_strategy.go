package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"golang-etf-decision/internal/decision/service"
	"golang-etf-decision/pkg/logger"
	"golang-etf-decision/pkg/utils"
)

type SignalGenerationStrategy struct {
	logger        *logger.Logger
	signalService service.SignalService
}

type SignalGenerationResult struct {
	Date            string   `json:"date,omitempty"`
	Signals         int      `json:"signals"`
	GuardActive     bool     `json:"guard_active"`
	MissingSymbols  []string `json:"missing_symbols,omitempty"`
	PublishFailures int      `json:"publish_failures"`
}

func NewSignalGenerationStrategy(log *logger.Logger, signalService service.SignalService) JobExecutionStrategy {
	return &SignalGenerationStrategy{logger: log, signalService: signalService}
}

func (s *SignalGenerationStrategy) GetType() JobType {
	return JobTypeSignalGeneration
}

// Execute generates signals for the latest covered date and returns a JSON summary.
func (s *SignalGenerationStrategy) Execute(ctx context.Context) (string, error) {
	summary, err := s.signalService.GenerateLatest(ctx)
	if err != nil {
		s.logger.Error("Failed to generate signals", logger.ErrorField(err))
		return "", fmt.Errorf("failed to generate signals: %w", err)
	}

	result := SignalGenerationResult{
		Signals:         len(summary.Signals),
		GuardActive:     summary.GuardActive,
		MissingSymbols:  summary.MissingSymbols,
		PublishFailures: summary.PublishFailures,
	}
	if summary.Date != nil {
		result.Date = utils.FormatDay(*summary.Date)
	}

	output, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	return string(output), nil
}
