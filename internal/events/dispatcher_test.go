package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDispatcher_DeliversToSubscribersOnly(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var got []EventType
	d.Subscribe(EventRequestCreated, func(_ context.Context, e Event) error {
		got = append(got, e.Type)
		return errors.New("handler failure")
	})
	d.Subscribe(EventRequestCreated, func(_ context.Context, e Event) error {
		got = append(got, e.Type)
		return nil
	})

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventRequestCreated}))
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventRequestClosed}))

	assert.Equal(t, []EventType{EventRequestCreated, EventRequestCreated}, got)
}
