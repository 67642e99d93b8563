package sink

import (
	"context"
	"log/slog"

	"chat-backend/contract"
	"chat-backend/domain"
	"chat-backend/domain/event"
	"chat-backend/repositories"
)

// SearchSink feeds delivered messages into the full-text index. It sits
// on the global event pipeline, so indexing lag never delays delivery.
type SearchSink struct {
	repository repositories.ISearchRepository
	log        *slog.Logger
}

var _ contract.EventSink = (*SearchSink)(nil)

func NewSearchSink(repository repositories.ISearchRepository, log *slog.Logger) *SearchSink {
	return &SearchSink{repository: repository, log: log}
}

func (s *SearchSink) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.MessageReceived)
	if !ok {
		return nil
	}

	err := s.repository.Index(domain.Message{
		ID:        evt.ID,
		Room:      domain.RoomID(evt.Room),
		SenderID:  evt.UserID,
		Content:   evt.Content,
		CreatedAt: evt.At,
	})
	if err != nil {
		// Indexing is best-effort; the message is already on disk.
		s.log.Error("Error while indexing message", "message", evt.ID, "err", err)
	}
	return nil
}
