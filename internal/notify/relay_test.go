package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/feed"
)

type recordingSink struct {
	received []Notification
}

func (s *recordingSink) Notify(n Notification) {
	s.received = append(s.received, n)
}

func newTestRelay(warmup, ttl time.Duration, max int, sink Sink) *Relay {
	r := NewRelay(warmup, ttl, max, sink, zap.NewNop())
	r.started = time.Unix(1000, 0)
	r.now = func() time.Time { return time.Unix(1000, 0).Add(warmup) }
	return r
}

func TestHandleEvent_OrderCreated(t *testing.T) {
	sink := &recordingSink{}
	r := newTestRelay(0, time.Minute, 50, sink)

	err := r.HandleEvent(context.Background(), feed.Event{
		Type:    feed.EventOrderCreated,
		OrderID: "order-1",
	})
	require.NoError(t, err)

	entries := r.Recent()
	require.Len(t, entries, 1)
	assert.Equal(t, "order-1", entries[0].OrderID)
	assert.Equal(t, "New order", entries[0].Title)
	assert.True(t, entries[0].Chime)
	assert.NotEmpty(t, entries[0].ID)

	require.Len(t, sink.received, 1)
	assert.Equal(t, "order-1", sink.received[0].OrderID)
}

func TestHandleEvent_UpdateAlertsOnlyOnPending(t *testing.T) {
	r := newTestRelay(0, time.Minute, 50, nil)

	// Items added: the order dropped back to pending.
	require.NoError(t, r.HandleEvent(context.Background(), feed.Event{
		Type:    feed.EventOrderUpdated,
		OrderID: "order-1",
		Status:  domain.OrderStatusPending,
	}))

	// Plain status progress stays silent.
	require.NoError(t, r.HandleEvent(context.Background(), feed.Event{
		Type:    feed.EventOrderUpdated,
		OrderID: "order-1",
		Status:  domain.OrderStatusPreparing,
	}))

	entries := r.Recent()
	require.Len(t, entries, 1)
	assert.Equal(t, "Items added to order", entries[0].Message)
}

func TestHandleEvent_IgnoresOtherEvents(t *testing.T) {
	r := newTestRelay(0, time.Minute, 50, nil)

	require.NoError(t, r.HandleEvent(context.Background(), feed.Event{Type: feed.EventMenuUpdated}))
	require.NoError(t, r.HandleEvent(context.Background(), feed.Event{Type: feed.EventSettingsUpdated}))

	assert.Empty(t, r.Recent())
}

func TestHandleEvent_WarmupSuppression(t *testing.T) {
	r := NewRelay(time.Minute, time.Minute, 50, nil, zap.NewNop())
	r.started = time.Unix(1000, 0)
	r.now = func() time.Time { return time.Unix(1030, 0) } // 30s in, still warming up

	require.NoError(t, r.HandleEvent(context.Background(), feed.Event{
		Type:    feed.EventOrderCreated,
		OrderID: "order-1",
	}))
	assert.Empty(t, r.Recent())

	r.now = func() time.Time { return time.Unix(1061, 0) } // past warm-up
	require.NoError(t, r.HandleEvent(context.Background(), feed.Event{
		Type:    feed.EventOrderCreated,
		OrderID: "order-2",
	}))
	assert.Len(t, r.Recent(), 1)
}

func TestRecent_NewestFirst(t *testing.T) {
	r := newTestRelay(0, time.Minute, 50, nil)

	clock := time.Unix(2000, 0)
	r.now = func() time.Time { return clock }

	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, r.HandleEvent(context.Background(), feed.Event{
			Type:    feed.EventOrderCreated,
			OrderID: id,
		}))
		clock = clock.Add(time.Second)
	}

	entries := r.Recent()
	require.Len(t, entries, 3)
	assert.Equal(t, "third", entries[0].OrderID)
	assert.Equal(t, "first", entries[2].OrderID)
}

func TestPrune_TTL(t *testing.T) {
	r := newTestRelay(0, 30*time.Second, 50, nil)

	clock := time.Unix(2000, 0)
	r.now = func() time.Time { return clock }

	require.NoError(t, r.HandleEvent(context.Background(), feed.Event{
		Type:    feed.EventOrderCreated,
		OrderID: "old",
	}))

	clock = clock.Add(31 * time.Second)
	require.NoError(t, r.HandleEvent(context.Background(), feed.Event{
		Type:    feed.EventOrderCreated,
		OrderID: "fresh",
	}))

	entries := r.Recent()
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].OrderID)
}

func TestPrune_Cap(t *testing.T) {
	r := newTestRelay(0, time.Hour, 5, nil)

	clock := time.Unix(2000, 0)
	r.now = func() time.Time { return clock }

	for i := 0; i < 10; i++ {
		require.NoError(t, r.HandleEvent(context.Background(), feed.Event{
			Type:    feed.EventOrderCreated,
			OrderID: "order",
		}))
		clock = clock.Add(time.Second)
	}

	assert.Len(t, r.Recent(), 5)
}
