package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/skillstream/progression-engine/internal/application/orchestrator"
	"github.com/skillstream/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING EVENT CONSUMER
// ══════════════════════════════════════════════════════════════════════════════

// DefaultLearningChannel is where upstream learning services publish the
// events that drive progression.
const DefaultLearningChannel = "learning:events"

// Inbound event types understood by the consumer.
const (
	InboundModuleCompleted   = "learning.module_completed"
	InboundCampaignCompleted = "learning.campaign_completed"
	InboundAssessmentScored  = "learning.assessment_video_scored"
)

// ErrUnknownInboundType is returned for envelope types the consumer does
// not understand.
var ErrUnknownInboundType = errors.New("messaging: unknown inbound event type")

// learningEnvelope is the inbound wire format shared with upstream services.
type learningEnvelope struct {
	EventID        string          `json:"event_id"`
	EventType      string          `json:"event_type"`
	UserID         string          `json:"user_id"`
	OrganizationID string          `json:"organization_id"`
	Payload        json.RawMessage `json:"payload"`
}

type moduleCompletedPayload struct {
	ModuleCount int `json:"module_count"`
}

type campaignCompletedPayload struct {
	CampaignID string `json:"campaign_id"`
}

type assessmentScoredPayload struct {
	VideoID           string `json:"video_id"`
	CompetencyID      string `json:"competency_id"`
	SkillID           string `json:"skill_id"`
	PerQuestionScores []int  `json:"per_question_scores"`
}

// DuplicateFilter is an optional fast path for spotting redelivered events
// before they reach the store. A negative answer is not authoritative; the
// transactional event ledger remains the source of truth.
type DuplicateFilter interface {
	WasEventSeen(ctx context.Context, userID, eventID string) (bool, error)
	MarkEventSeen(ctx context.Context, userID, eventID string) (bool, error)
}

// Consumer subscribes to the learning event channel and drives the
// orchestrator. Malformed and unknown messages are logged and dropped;
// duplicates are absorbed by the orchestrator's event ledger, with an
// optional cache fast path in front of it. Redelivery after a processing
// failure is the publisher's responsibility.
type Consumer struct {
	client  RedisClient
	orch    *orchestrator.Orchestrator
	filter  DuplicateFilter
	channel string
	workers int
	logger  *slog.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool

	processed int64
	dropped   int64
	failed    int64
}

// ConsumerConfig contains configuration for the Consumer.
type ConsumerConfig struct {
	// Client is the Redis subscription transport (required).
	Client RedisClient

	// Orchestrator processes decoded commands (required).
	Orchestrator *orchestrator.Orchestrator

	// Filter short-circuits events already seen recently. Optional.
	Filter DuplicateFilter

	// Channel is the inbound channel name. Defaults to
	// DefaultLearningChannel.
	Channel string

	// Workers is the number of concurrent command processors. Per-user
	// ordering is enforced by the optimistic version check downstream, not
	// here.
	Workers int

	// Logger for structured logging.
	Logger *slog.Logger
}

// NewConsumer creates a learning event consumer.
func NewConsumer(config ConsumerConfig) (*Consumer, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if config.Channel == "" {
		config.Channel = DefaultLearningChannel
	}
	if config.Workers <= 0 {
		config.Workers = 8
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Consumer{
		client:  config.Client,
		orch:    config.Orchestrator,
		filter:  config.Filter,
		channel: config.Channel,
		workers: config.Workers,
		logger:  config.Logger.With(slog.String("component", "consumer")),
	}, nil
}

// Start subscribes to the learning channel and begins processing. It
// returns once the subscription is established.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return errors.New("consumer already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	messages, err := c.client.Subscribe(ctx, c.channel)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", c.channel, err)
	}

	c.cancel = cancel
	c.started = true

	jobs := make(chan learningEnvelope, c.workers*2)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for env := range jobs {
				c.dispatch(ctx, env)
			}
		}()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(jobs)
		c.receiveLoop(ctx, messages, jobs)
	}()

	c.logger.Info("consumer started",
		slog.String("channel", c.channel),
		slog.Int("workers", c.workers),
	)
	return nil
}

// Stop cancels the subscription and waits for in-flight commands.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.wg.Wait()

	c.logger.Info("consumer stopped",
		slog.Int64("processed", atomic.LoadInt64(&c.processed)),
		slog.Int64("dropped", atomic.LoadInt64(&c.dropped)),
		slog.Int64("failed", atomic.LoadInt64(&c.failed)),
	)
}

func (c *Consumer) receiveLoop(ctx context.Context, messages <-chan RedisMessage, jobs chan<- learningEnvelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg.Err != nil {
				c.logger.Error("subscription error", slog.String("error", msg.Err.Error()))
				continue
			}

			var env learningEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				atomic.AddInt64(&c.dropped, 1)
				c.logger.Warn("malformed inbound event dropped", slog.String("error", err.Error()))
				continue
			}

			select {
			case <-ctx.Done():
				return
			case jobs <- env:
			}
		}
	}
}

// dispatch routes one envelope to the matching orchestrator operation.
func (c *Consumer) dispatch(ctx context.Context, env learningEnvelope) {
	log := c.logger.With(
		slog.String("event_id", env.EventID),
		slog.String("event_type", env.EventType),
		slog.String("user_id", env.UserID),
	)

	if c.isRecentDuplicate(ctx, env) {
		atomic.AddInt64(&c.processed, 1)
		log.Debug("recently seen event skipped")
		return
	}

	err := c.apply(ctx, env)
	switch {
	case err == nil:
		atomic.AddInt64(&c.processed, 1)
		c.markSeen(ctx, env)

	case errors.Is(err, ErrUnknownInboundType), shared.IsValidation(err):
		// Bad input never becomes good on redelivery.
		atomic.AddInt64(&c.dropped, 1)
		log.Warn("inbound event dropped", slog.String("error", err.Error()))

	default:
		atomic.AddInt64(&c.failed, 1)
		log.Error("inbound event failed", slog.String("error", err.Error()))
	}
}

// isRecentDuplicate consults the optional fast path. Filter failures are
// ignored; the durable ledger catches what the cache misses.
func (c *Consumer) isRecentDuplicate(ctx context.Context, env learningEnvelope) bool {
	if c.filter == nil || env.UserID == "" || env.EventID == "" {
		return false
	}
	seen, err := c.filter.WasEventSeen(ctx, env.UserID, env.EventID)
	if err != nil {
		return false
	}
	return seen
}

func (c *Consumer) markSeen(ctx context.Context, env learningEnvelope) {
	if c.filter == nil || env.UserID == "" || env.EventID == "" {
		return
	}
	if _, err := c.filter.MarkEventSeen(ctx, env.UserID, env.EventID); err != nil {
		c.logger.Debug("event fast path mark failed", slog.String("error", err.Error()))
	}
}

func (c *Consumer) apply(ctx context.Context, env learningEnvelope) error {
	switch env.EventType {
	case InboundModuleCompleted:
		var p moduleCompletedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownInboundType, err)
		}
		_, err := c.orch.OnModuleCompleted(ctx, orchestrator.ModuleCompletedCommand{
			EventID:        env.EventID,
			UserID:         env.UserID,
			OrganizationID: env.OrganizationID,
			ModuleCount:    p.ModuleCount,
		})
		return err

	case InboundCampaignCompleted:
		var p campaignCompletedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownInboundType, err)
		}
		_, err := c.orch.OnCampaignCompleted(ctx, orchestrator.CampaignCompletedCommand{
			EventID:        env.EventID,
			UserID:         env.UserID,
			OrganizationID: env.OrganizationID,
			CampaignID:     p.CampaignID,
		})
		return err

	case InboundAssessmentScored:
		var p assessmentScoredPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownInboundType, err)
		}
		_, err := c.orch.OnAssessmentVideoScored(ctx, orchestrator.AssessmentScoredCommand{
			EventID:           env.EventID,
			UserID:            env.UserID,
			OrganizationID:    env.OrganizationID,
			VideoID:           p.VideoID,
			CompetencyID:      p.CompetencyID,
			SkillID:           p.SkillID,
			PerQuestionScores: p.PerQuestionScores,
		})
		return err

	default:
		return fmt.Errorf("%w: %s", ErrUnknownInboundType, env.EventType)
	}
}

// Stats returns the consumer's lifetime counters.
func (c *Consumer) Stats() (processed, dropped, failed int64) {
	return atomic.LoadInt64(&c.processed),
		atomic.LoadInt64(&c.dropped),
		atomic.LoadInt64(&c.failed)
}
