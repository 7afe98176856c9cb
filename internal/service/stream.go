package service

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/smsline/smsline/internal/model"
)

// Event is one observer notification. Events for a single verification
// are published in occurrence order; there is no cross-verification
// ordering guarantee.
type Event struct {
	VerificationID string       `json:"verification_id"`
	CorrelationID  string       `json:"correlation_id"`
	PhoneNumber    string       `json:"phone_number"`
	Type           string       `json:"type"` // model.EventTypeNewCode or model.EventTypeTerminal
	Code           string       `json:"code,omitempty"`
	Status         model.Status `json:"status"`
	At             int64        `json:"at_ms"`
}

// Stream fans events out to any number of subscribers. Slow subscribers
// with a full buffer lose events rather than blocking a poller.
type Stream struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

func NewStream() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a new observer. The returned cancel func must be
// called to release the subscription.
func (s *Stream) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()
	cancel := func() {
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Stream) Publish(ctx context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			logutil.GetLogger(ctx).Warn("observer buffer full, dropping event",
				zap.Int("subscriber", id),
				zap.String("verification_id", ev.VerificationID),
				zap.String("type", ev.Type),
			)
		}
	}
}
