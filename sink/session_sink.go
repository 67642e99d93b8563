package sink

import (
	"context"
	"sync/atomic"

	"chat-backend/contract"
	"chat-backend/domain/event"
	"chat-backend/errors"
)

// SessionSink bridges the broadcast path to one connection's write pump.
// Consume never blocks: when the buffer is full the event is dropped,
// counted, and reported, so one slow reader cannot stall a room's fan-out
// while the loss stays visible to the broadcaster.
type SessionSink struct {
	events  chan event.DomainEvent
	dropped atomic.Int64
}

var _ contract.EventSink = (*SessionSink)(nil)

func NewSessionSink(capacity int) *SessionSink {
	return &SessionSink{
		events: make(chan event.DomainEvent, capacity),
	}
}

func (s *SessionSink) Consume(_ context.Context, e event.DomainEvent) error {
	select {
	case s.events <- e:
		return nil
	default:
		s.dropped.Add(1)
		return errors.ErrSessionBufferFull
	}
}

// Events is drained by the connection's write pump.
func (s *SessionSink) Events() <-chan event.DomainEvent {
	return s.events
}

func (s *SessionSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close releases the write pump. Call only after the session has been
// removed from the registry, so no Consume can race the close.
func (s *SessionSink) Close() {
	close(s.events)
}
