package service

import (
	"context"
	"fmt"
	"time"

	"golang-etf-decision/internal/decision/dto"
	"golang-etf-decision/internal/decision/repository"
	"golang-etf-decision/pkg/logger"
)

// GuardService toggles the external risk guard that forces RISK_ON signals off.
type GuardService interface {
	Status(ctx context.Context) (*dto.GuardResponse, error)
	IsActive(ctx context.Context) (bool, error)
	Activate(ctx context.Context, req dto.GuardRequest) (*dto.GuardResponse, error)
	Deactivate(ctx context.Context) error
}

type guardService struct {
	log       *logger.Logger
	guardRepo repository.GuardRepository
}

func NewGuardService(log *logger.Logger, guardRepo repository.GuardRepository) GuardService {
	return &guardService{log: log, guardRepo: guardRepo}
}

func (s *guardService) IsActive(ctx context.Context) (bool, error) {
	return s.guardRepo.IsActive(ctx)
}

func (s *guardService) Status(ctx context.Context) (*dto.GuardResponse, error) {
	active, err := s.guardRepo.IsActive(ctx)
	if err != nil {
		return nil, err
	}
	resp := &dto.GuardResponse{Active: active}
	if active {
		if resp.Reason, err = s.guardRepo.Reason(ctx); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (s *guardService) Activate(ctx context.Context, req dto.GuardRequest) (*dto.GuardResponse, error) {
	var ttl time.Duration
	if req.TTL != "" {
		d, err := time.ParseDuration(req.TTL)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("%w: ttl %q", ErrInvalidRequest, req.TTL)
		}
		ttl = d
	}

	if err := s.guardRepo.Activate(ctx, req.Reason, ttl); err != nil {
		s.log.Error("Failed to activate risk guard", logger.ErrorField(err))
		return nil, err
	}
	s.log.Warn("Risk guard activated", logger.StringField("reason", req.Reason), logger.StringField("ttl", ttl.String()))
	return s.Status(ctx)
}

func (s *guardService) Deactivate(ctx context.Context) error {
	if err := s.guardRepo.Deactivate(ctx); err != nil {
		s.log.Error("Failed to deactivate risk guard", logger.ErrorField(err))
		return err
	}
	s.log.Info("Risk guard deactivated")
	return nil
}
