package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smsline/smsline/internal/model"
)

func TestStreamFanout(t *testing.T) {
	s := NewStream()
	a, cancelA := s.Subscribe(4)
	defer cancelA()
	b, cancelB := s.Subscribe(4)
	defer cancelB()

	ev := Event{VerificationID: "v1", Type: model.EventTypeNewCode, Code: "123456"}
	s.Publish(context.Background(), ev)

	require.Equal(t, ev, <-a)
	require.Equal(t, ev, <-b)
}

func TestStreamDropsWhenBufferFull(t *testing.T) {
	s := NewStream()
	slow, cancel := s.Subscribe(1)
	defer cancel()

	s.Publish(context.Background(), Event{VerificationID: "v1"})
	s.Publish(context.Background(), Event{VerificationID: "v2"}) // dropped

	require.Equal(t, "v1", (<-slow).VerificationID)
	select {
	case ev := <-slow:
		t.Fatalf("unexpected event %q", ev.VerificationID)
	default:
	}
}

func TestStreamCancelStopsDelivery(t *testing.T) {
	s := NewStream()
	ch, cancel := s.Subscribe(4)
	cancel()

	// Channel is closed on cancel and receives nothing further.
	_, open := <-ch
	require.False(t, open)
	s.Publish(context.Background(), Event{VerificationID: "v1"})
}
