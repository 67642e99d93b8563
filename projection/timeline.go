// Package projection builds local read models from observed events.
// Handles ordering and bounded retention.
// Does not emit events or interact with transports directly.
package projection

import (
	"context"
	"sync"

	"chat-backend/contract"
	"chat-backend/domain"
	"chat-backend/domain/event"
)

// Timeline keeps the most recent messages per room, newest last.
// It trails the durable history and only serves fast in-memory reads.
type Timeline struct {
	mu       sync.RWMutex
	perRoom  map[domain.RoomID][]domain.Message
	capacity int
}

var _ contract.EventSink = (*Timeline)(nil)

func NewTimeline(capacity int) *Timeline {
	return &Timeline{
		perRoom:  make(map[domain.RoomID][]domain.Message),
		capacity: capacity,
	}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.MessageReceived)
	if !ok {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	room := e.RoomID()
	messages := append(t.perRoom[room], fromEvent(evt))
	if len(messages) > t.capacity {
		messages = messages[len(messages)-t.capacity:]
	}
	t.perRoom[room] = messages
	return nil
}

// Recent returns a copy of the room's retained messages, oldest first.
func (t *Timeline) Recent(room domain.RoomID) []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	messages := t.perRoom[room]
	out := make([]domain.Message, len(messages))
	copy(out, messages)
	return out
}

func fromEvent(evt event.MessageReceived) domain.Message {
	return domain.Message{
		ID:        evt.ID,
		Room:      domain.RoomID(evt.Room),
		SenderID:  evt.UserID,
		Content:   evt.Content,
		CreatedAt: evt.At,
	}
}
