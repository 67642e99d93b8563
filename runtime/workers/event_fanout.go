package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-backend/contract"
	"chat-backend/domain/event"
)

// Ensure *EventFanout implements the contract.Worker interface at compile time.
var _ contract.Worker = (*EventFanout)(nil)

// EventFanout broadcasts domain events to the permanent in-process consumers
// (timeline projection, search index) and tees a telemetry copy.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering, durability, or retries. It is intended for projections and side
// effects, not for member delivery: that happens in the registry, before the
// event ever reaches this worker.
type EventFanout struct {
	log         *slog.Logger
	domainEvent chan event.DomainEvent
	telemetry   chan event.Event
	sinks       []contract.EventSink
}

func NewEventFanout(log *slog.Logger, domainEvent chan event.DomainEvent,
	telemetry chan event.Event, sinks ...contract.EventSink) *EventFanout {
	return &EventFanout{log: log, domainEvent: domainEvent, telemetry: telemetry, sinks: sinks}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt, ok := <-w.domainEvent:
			if !ok {
				return nil
			}
			w.Fanout(ctx, evt)
			select {
			case w.telemetry <- event.Event{Type: event.DomainType, CreatedAt: time.Now().UTC(), Payload: evt}:
			default:
				w.log.Debug("Observability telemetry event lost")
			}
		}
	}
}

// Fanout delivers one event to each sink; a failing sink never stops the rest.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		if err := sink.Consume(ctx, evt); err != nil {
			w.log.Debug("Sink rejected event", "error", err)
		}
	}
}
