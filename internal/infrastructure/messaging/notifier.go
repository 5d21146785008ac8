package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/skillstream/progression-engine/internal/domain/shared"
	"github.com/skillstream/progression-engine/pkg/circuitbreaker"
	"github.com/skillstream/progression-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// Publisher is the outbound channel the notifier delivers to, normally
// Redis Pub/Sub.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// ChannelFunc maps an event type to an outbound channel name.
type ChannelFunc func(eventType shared.EventType) string

// Notifier forwards progression events from the bus to an external channel
// so notification and feed services can react to level-ups, streak
// milestones and badge awards. Delivery is best effort: failures are
// retried, then parked in a bounded dead letter buffer, and never block
// or fail event processing.
type Notifier struct {
	publisher  Publisher
	channelFor ChannelFunc
	breaker    *circuitbreaker.CircuitBreaker
	retrier    *retry.Retrier
	timeout    time.Duration
	deadLetter *DeadLetterBuffer
	logger     *slog.Logger
}

// NotifierConfig contains configuration for the Notifier.
type NotifierConfig struct {
	// Publisher is the outbound transport (required).
	Publisher Publisher

	// ChannelFor maps event types to channel names. Defaults to a single
	// "progression:notifications" channel.
	ChannelFor ChannelFunc

	// PublishTimeout bounds a single delivery attempt.
	PublishTimeout time.Duration

	// DeadLetterSize is the capacity of the failed-delivery buffer.
	DeadLetterSize int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultNotifierChannel is the channel used when no ChannelFor is set.
const DefaultNotifierChannel = "progression:notifications"

// NewNotifier creates a notifier. Delivery failures trip a circuit breaker
// so a dead Redis does not stall handler workers.
func NewNotifier(config NotifierConfig) (*Notifier, error) {
	if config.Publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if config.ChannelFor == nil {
		config.ChannelFor = func(shared.EventType) string { return DefaultNotifierChannel }
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 5 * time.Second
	}
	if config.DeadLetterSize <= 0 {
		config.DeadLetterSize = 1000
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	logger := config.Logger
	breaker := circuitbreaker.NotificationBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state change",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	})

	return &Notifier{
		publisher:  config.Publisher,
		channelFor: config.ChannelFor,
		breaker:    breaker,
		retrier:    retry.NotificationRetrier(),
		timeout:    config.PublishTimeout,
		deadLetter: NewDeadLetterBuffer(config.DeadLetterSize),
		logger:     logger,
	}, nil
}

// Start subscribes the notifier to every event on the bus.
func (n *Notifier) Start(bus shared.EventBus) error {
	return bus.SubscribeAll(func(event shared.Event) error {
		n.deliver(event)
		return nil
	})
}

// notification is the wire shape delivered to subscribers.
type notification struct {
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

func (n *Notifier) deliver(event shared.Event) {
	msg := notification{
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("failed to marshal notification",
			"event_type", event.EventType(),
			"error", err,
		)
		return
	}

	channel := n.channelFor(event.EventType())

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	err = n.retrier.Do(ctx, func(ctx context.Context) error {
		err := n.breaker.Execute(ctx, func(ctx context.Context) error {
			return n.publisher.Publish(ctx, channel, string(data))
		})
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			// Transport is known down, retrying now only burns the backoff budget.
			return retry.Permanent(err)
		}
		return retry.Retryable(err)
	})
	if err != nil {
		n.deadLetter.Add(FailedNotification{
			Channel:   channel,
			EventType: event.EventType(),
			UserID:    event.AggregateID(),
			Payload:   data,
			Error:     err,
			FailedAt:  time.Now(),
		})
		n.logger.Warn("notification delivery failed",
			"event_type", event.EventType(),
			"channel", channel,
			"error", err,
		)
	}
}

// Redeliver drains the dead letter buffer, attempting each entry once.
// Entries that fail again go back on the buffer.
func (n *Notifier) Redeliver(ctx context.Context) (delivered, failed int) {
	for {
		entry, ok := n.deadLetter.Pop()
		if !ok {
			return delivered, failed
		}

		err := n.breaker.Execute(ctx, func(ctx context.Context) error {
			return n.publisher.Publish(ctx, entry.Channel, string(entry.Payload))
		})
		if err != nil {
			entry.Error = err
			n.deadLetter.Add(entry)
			failed++
			// Breaker is open or transport is still down, stop draining.
			return delivered, failed
		}
		delivered++
	}
}

// DeadLetterSize reports how many notifications are parked.
func (n *Notifier) DeadLetterSize() int {
	return n.deadLetter.Size()
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER BUFFER
// ══════════════════════════════════════════════════════════════════════════════

// FailedNotification is a notification that exhausted delivery attempts.
type FailedNotification struct {
	Channel   string
	EventType shared.EventType
	UserID    string
	Payload   []byte
	Error     error
	FailedAt  time.Time
}

// DeadLetterBuffer is a bounded FIFO of failed notifications. When full,
// the oldest entry is dropped.
type DeadLetterBuffer struct {
	mu      sync.Mutex
	entries []FailedNotification
	maxSize int
}

// NewDeadLetterBuffer creates a buffer with the given capacity.
func NewDeadLetterBuffer(maxSize int) *DeadLetterBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &DeadLetterBuffer{
		entries: make([]FailedNotification, 0),
		maxSize: maxSize,
	}
}

// Add appends an entry, evicting the oldest when at capacity.
func (b *DeadLetterBuffer) Add(entry FailedNotification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) >= b.maxSize {
		b.entries = b.entries[1:]
	}
	b.entries = append(b.entries, entry)
}

// Pop removes and returns the oldest entry.
func (b *DeadLetterBuffer) Pop() (FailedNotification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) == 0 {
		return FailedNotification{}, false
	}
	entry := b.entries[0]
	b.entries = b.entries[1:]
	return entry, true
}

// Size returns the current number of parked entries.
func (b *DeadLetterBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Entries returns a copy of all parked entries.
func (b *DeadLetterBuffer) Entries() []FailedNotification {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]FailedNotification, len(b.entries))
	copy(out, b.entries)
	return out
}
