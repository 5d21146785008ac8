package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillstream/progression-engine/internal/domain/shared"
)

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishedMessage
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.calls = append(p.calls, publishedMessage{channel: channel, payload: message.(string)})
	return nil
}

func (p *fakePublisher) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakePublisher) sent() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedMessage, len(p.calls))
	copy(out, p.calls)
	return out
}

func TestNotifier_DeliversBusEvents(t *testing.T) {
	pub := &fakePublisher{}
	n, err := NewNotifier(NotifierConfig{Publisher: pub, Logger: discardLogger()})
	require.NoError(t, err)

	bus := NewInMemoryEventBus(syncBusConfig())
	defer bus.Close()
	require.NoError(t, n.Start(bus))

	require.NoError(t, bus.Publish(testEvent("user-1")))

	sent := pub.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, DefaultNotifierChannel, sent[0].channel)

	var msg notification
	require.NoError(t, json.Unmarshal([]byte(sent[0].payload), &msg))
	assert.Equal(t, shared.EventXPAwarded, msg.EventType)
	assert.Equal(t, "user-1", msg.AggregateID)
	assert.Equal(t, float64(25), msg.Payload["xp_earned"])
}

func TestNotifier_CustomChannelMapping(t *testing.T) {
	pub := &fakePublisher{}
	n, err := NewNotifier(NotifierConfig{
		Publisher: pub,
		ChannelFor: func(eventType shared.EventType) string {
			return "notify:" + string(eventType)
		},
		Logger: discardLogger(),
	})
	require.NoError(t, err)

	bus := NewInMemoryEventBus(syncBusConfig())
	defer bus.Close()
	require.NoError(t, n.Start(bus))
	require.NoError(t, bus.Publish(testEvent("user-1")))

	sent := pub.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "notify:progression.xp_awarded", sent[0].channel)
}

func TestNotifier_FailedDeliveryParksInDeadLetter(t *testing.T) {
	pub := &fakePublisher{}
	pub.setErr(errors.New("broker down"))

	n, err := NewNotifier(NotifierConfig{
		Publisher:      pub,
		PublishTimeout: 20 * time.Millisecond,
		Logger:         discardLogger(),
	})
	require.NoError(t, err)

	bus := NewInMemoryEventBus(syncBusConfig())
	defer bus.Close()
	require.NoError(t, n.Start(bus))

	// Publishing never fails even though delivery does.
	require.NoError(t, bus.Publish(testEvent("user-1")))
	assert.Equal(t, 1, n.DeadLetterSize())
}

func TestNotifier_RedeliverDrainsDeadLetter(t *testing.T) {
	pub := &fakePublisher{}
	pub.setErr(errors.New("broker down"))

	n, err := NewNotifier(NotifierConfig{
		Publisher:      pub,
		PublishTimeout: 20 * time.Millisecond,
		Logger:         discardLogger(),
	})
	require.NoError(t, err)

	bus := NewInMemoryEventBus(syncBusConfig())
	defer bus.Close()
	require.NoError(t, n.Start(bus))

	require.NoError(t, bus.Publish(testEvent("user-1")))
	require.NoError(t, bus.Publish(testEvent("user-2")))
	require.Equal(t, 2, n.DeadLetterSize())

	pub.setErr(nil)
	delivered, failed := n.Redeliver(context.Background())
	assert.Equal(t, 2, delivered)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 0, n.DeadLetterSize())
	assert.Len(t, pub.sent(), 2)
}

func TestNotifier_RequiresPublisher(t *testing.T) {
	_, err := NewNotifier(NotifierConfig{})
	assert.Error(t, err)
}

func TestDeadLetterBuffer_EvictsOldestWhenFull(t *testing.T) {
	buf := NewDeadLetterBuffer(2)

	buf.Add(FailedNotification{UserID: "a"})
	buf.Add(FailedNotification{UserID: "b"})
	buf.Add(FailedNotification{UserID: "c"})

	require.Equal(t, 2, buf.Size())

	entry, ok := buf.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", entry.UserID)

	entry, ok = buf.Pop()
	require.True(t, ok)
	assert.Equal(t, "c", entry.UserID)

	_, ok = buf.Pop()
	assert.False(t, ok)
}
