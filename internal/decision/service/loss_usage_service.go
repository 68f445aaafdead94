package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang-etf-decision/internal/decision/config"
	"golang-etf-decision/internal/decision/dto"
	"golang-etf-decision/internal/decision/repository"
	"golang-etf-decision/pkg/common"
	"golang-etf-decision/pkg/logger"
	"golang-etf-decision/pkg/metrics"
	"golang-etf-decision/pkg/redis"
	"golang-etf-decision/pkg/telegram"
	"golang-etf-decision/pkg/utils"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var errMalformedEvent = errors.New("malformed loss usage event")

// LossUsageService consumes realized-gain events from the execution side and applies them
// to the tax loss ledger.
type LossUsageService interface {
	ProcessTask(ctx context.Context)
	ProcessRetries(ctx context.Context)
	Handle(ctx context.Context, event dto.LossUsageEvent, key string) error
}

type lossUsageService struct {
	cfg            *config.Config
	log            *logger.Logger
	redisClient    *redis.Client
	taxLossService TaxLossService
	progressRepo   repository.UsageProgressRepository
	telegramBot    telegram.Notifier
	metrics        *metrics.Recorder
}

func NewLossUsageService(
	cfg *config.Config,
	log *logger.Logger,
	redisClient *redis.Client,
	taxLossService TaxLossService,
	progressRepo repository.UsageProgressRepository,
	telegramBot telegram.Notifier,
	recorder *metrics.Recorder,
) LossUsageService {
	return &lossUsageService{
		cfg:            cfg,
		log:            log,
		redisClient:    redisClient,
		taxLossService: taxLossService,
		progressRepo:   progressRepo,
		telegramBot:    telegramBot,
		metrics:        recorder,
	}
}

func (s *lossUsageService) ProcessTask(ctx context.Context) {
	streams, err := s.redisClient.XReadGroup(ctx, &goRedis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamTaxLossUsage, ">"},
		Count:    1,
		Block:    2 * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, goRedis.Nil) {
			return
		}
		s.log.Error("Failed to read from stream", logger.ErrorField(err))
		return
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		s.log.Debug("No messages found", logger.StringField("stream", common.RedisStreamTaxLossUsage))
		return
	}

	message := streams[0].Messages[0]
	event, err := decodeLossUsage(message)
	if err != nil {
		s.drop(ctx, message, err)
		return
	}

	fields := eventFields(message.ID, event)
	s.log.Debug("Processing loss usage event", fields...)

	if err := s.Handle(ctx, event, usageKey(message.ID, event)); err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			s.drop(ctx, message, err)
			return
		}
		s.log.Error("Failed to process loss usage event, left pending for retry", append(fields, logger.ErrorField(err))...)
		return
	}

	if err := s.redisClient.AckNDel(ctx, common.RedisStreamTaxLossUsage, common.RedisStreamGroup, message.ID); err != nil {
		s.log.Error("Failed to acknowledge and delete loss usage event", append(fields, logger.ErrorField(err))...)
		return
	}
	s.log.Debug("Loss usage event processed successfully", fields...)
}

func (s *lossUsageService) ProcessRetries(ctx context.Context) {
	msgs, _, err := s.redisClient.XAutoClaim(ctx, &goRedis.XAutoClaimArgs{
		Stream:   common.RedisStreamTaxLossUsage,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer + "-retry",
		MinIdle:  s.cfg.Consumer.TaxLossUsageMaxIdleDuration,
		Start:    "0",
		Count:    1,
	}).Result()
	if err != nil {
		s.log.Error("Failed to claim loss usage event on retry", logger.ErrorField(err))
		return
	}

	if len(msgs) == 0 {
		s.log.Debug("Retry no pending messages found", logger.StringField("stream", common.RedisStreamTaxLossUsage))
		return
	}

	msg := msgs[0]
	pendingInfo, err := s.redisClient.XPendingExt(ctx, &goRedis.XPendingExtArgs{
		Stream: common.RedisStreamTaxLossUsage,
		Group:  common.RedisStreamGroup,
		Start:  msg.ID,
		End:    msg.ID,
		Count:  1,
	}).Result()
	if err != nil {
		s.log.Error("Failed to get pending info", logger.ErrorField(err))
		return
	}
	if len(pendingInfo) == 0 {
		s.log.Warn("pending msg not found, but exist on xautoclaim",
			logger.StringField("stream", common.RedisStreamTaxLossUsage),
			logger.StringField("message_id", msg.ID))
		return
	}

	event, err := decodeLossUsage(msg)
	if err != nil {
		s.drop(ctx, msg, err)
		return
	}

	fields := eventFields(msg.ID, event)
	if err := s.Handle(ctx, event, usageKey(msg.ID, event)); err != nil {
		retryCount := pendingInfo[0].RetryCount + 1
		fields = append(fields, logger.ErrorField(err), logger.IntField("retry_count", int(retryCount)))

		if errors.Is(err, ErrInvalidRequest) || retryCount >= int64(s.cfg.Consumer.TaxLossUsageMaxRetry) {
			s.log.Error("pending msg retry count exceeded", append(fields, logger.IntField("max_retry", s.cfg.Consumer.TaxLossUsageMaxRetry))...)
			s.drop(ctx, msg, err)
			return
		}
		s.log.Error("Failed to process loss usage event on retry", fields...)
		return
	}

	if err := s.redisClient.AckNDel(ctx, common.RedisStreamTaxLossUsage, common.RedisStreamGroup, msg.ID); err != nil {
		s.log.Error("Failed to acknowledge and delete loss usage event", append(fields, logger.ErrorField(err))...)
		return
	}
	s.log.Info("Loss usage event processed on retry", fields...)
}

// Handle allocates the part of the event not committed by an earlier delivery.
func (s *lossUsageService) Handle(ctx context.Context, event dto.LossUsageEvent, key string) error {
	done, err := s.progressRepo.IsDone(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read usage progress: %w", err)
	}
	if done {
		s.log.Info("Loss usage event already applied", logger.StringField("key", key))
		return nil
	}

	committed, err := s.progressRepo.Committed(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read usage progress: %w", err)
	}

	req := event.AllocateLossRequest
	req.Amount = req.Amount.Sub(committed)

	if req.Amount.IsPositive() {
		res, err := s.taxLossService.Allocate(ctx, req)
		if err != nil {
			if res != nil && res.Consumed.IsPositive() {
				if perr := s.progressRepo.AddCommitted(ctx, key, res.Consumed); perr != nil {
					s.log.Error("Failed to record partial usage", logger.ErrorField(perr), logger.StringField("key", key))
				}
			}
			return err
		}
		// a shortfall is settled by this attempt, so the whole remainder counts as committed
		if err := s.progressRepo.AddCommitted(ctx, key, req.Amount); err != nil {
			s.log.Error("Failed to record usage", logger.ErrorField(err), logger.StringField("key", key),
				logger.StringField("consumed", res.Consumed.StringFixed(2)))
			return fmt.Errorf("failed to record usage progress: %w", err)
		}
	}

	if err := s.progressRepo.MarkDone(ctx, key); err != nil {
		return fmt.Errorf("failed to mark usage done: %w", err)
	}
	return nil
}

// drop acknowledges a message that can never succeed and raises an alert.
func (s *lossUsageService) drop(ctx context.Context, msg goRedis.XMessage, cause error) {
	s.metrics.RecordDrop(common.RedisStreamTaxLossUsage)
	payload, _ := msg.Values["payload"].(string)

	errType := fmt.Sprintf("Dropped event %s", common.RedisStreamTaxLossUsage)
	alert := telegram.FormatErrorAlertMessage(utils.TimeNowIn(s.cfg.Scheduler.Location), errType, cause.Error(), payload)
	if err := s.telegramBot.SendMessage(ctx, alert); err != nil {
		s.log.Error("Failed to send telegram alert", logger.ErrorField(err), logger.StringField("message_id", msg.ID))
	}

	if err := s.redisClient.AckNDel(ctx, common.RedisStreamTaxLossUsage, common.RedisStreamGroup, msg.ID); err != nil {
		s.log.Error("Failed to acknowledge and delete loss usage event", logger.ErrorField(err), logger.StringField("message_id", msg.ID))
		return
	}
	s.log.Warn("Loss usage event dropped", logger.ErrorField(cause), logger.StringField("message_id", msg.ID))
}

func decodeLossUsage(msg goRedis.XMessage) (dto.LossUsageEvent, error) {
	var event dto.LossUsageEvent

	raw, ok := msg.Values["payload"].(string)
	if !ok {
		return event, fmt.Errorf("%w: field 'payload' not found or not a string", errMalformedEvent)
	}
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return event, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	return event, nil
}

// usageKey prefers the trade id so a re-published trade is applied once.
func usageKey(messageID string, event dto.LossUsageEvent) string {
	if event.TradeID != "" {
		return "trade:" + event.TradeID
	}
	return "msg:" + messageID
}

func eventFields(messageID string, event dto.LossUsageEvent) []zap.Field {
	return []zap.Field{
		logger.StringField("message_id", messageID),
		logger.StringField("trade_id", event.TradeID),
		logger.StringField("symbol", event.Symbol),
		logger.StringField("tax_category", event.TaxCategory),
		logger.StringField("amount", event.Amount.String()),
	}
}
