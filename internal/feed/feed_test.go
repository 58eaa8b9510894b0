package feed

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDispatch_DeliversToAllHandlers(t *testing.T) {
	s := NewSubscriber(nil, zap.NewNop())

	var got []string
	s.Register(func(ctx context.Context, ev Event) error {
		got = append(got, "first:"+ev.Type)
		return nil
	})
	s.Register(func(ctx context.Context, ev Event) error {
		got = append(got, "second:"+ev.Type)
		return nil
	})

	s.Dispatch(context.Background(), Event{Type: EventOrderCreated, OrderID: "order-1"})

	assert.Equal(t, []string{"first:order.created", "second:order.created"}, got)
}

func TestDispatch_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	s := NewSubscriber(nil, zap.NewNop())

	delivered := false
	s.Register(func(ctx context.Context, ev Event) error {
		return fmt.Errorf("boom")
	})
	s.Register(func(ctx context.Context, ev Event) error {
		delivered = true
		return nil
	})

	s.Dispatch(context.Background(), Event{Type: EventOrderUpdated})

	assert.True(t, delivered)
}
