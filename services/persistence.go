package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-backend/contract"
	"chat-backend/domain"
	"chat-backend/errors"
	"chat-backend/repositories"

	"github.com/google/uuid"
)

// PersistenceService backs the gateway's durability and identity needs
// with the badger repositories. CreateMessage commits before the gateway
// broadcasts, so a message a recipient sees is always already on disk.
type PersistenceService struct {
	log      *slog.Logger
	users    repositories.IUserRepository
	rooms    repositories.IRoomRepository
	messages repositories.IMessageRepository
}

var _ contract.IPersistence = (*PersistenceService)(nil)

func NewPersistenceService(log *slog.Logger,
	users repositories.IUserRepository,
	rooms repositories.IRoomRepository,
	messages repositories.IMessageRepository) *PersistenceService {
	return &PersistenceService{
		log:      log,
		users:    users,
		rooms:    rooms,
		messages: messages,
	}
}

func (p *PersistenceService) CreateMessage(ctx context.Context, content, userID string,
	roomID domain.RoomID) (domain.Message, error) {
	if _, err := p.ResolveUser(ctx, userID); err != nil {
		return domain.Message{}, err
	}
	if _, err := p.ResolveRoom(ctx, roomID); err != nil {
		return domain.Message{}, err
	}

	now := time.Now().UTC()
	msg := domain.Message{
		ID:        uuid.New(),
		Room:      roomID,
		SenderID:  userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.messages.StoreMessage(msg); err != nil {
		p.log.Error("Error while storing message", "room", roomID, "err", err)
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistenceUnavailable, err)
	}
	return msg, nil
}

func (p *PersistenceService) ResolveUser(ctx context.Context, userID string) (domain.User, error) {
	record, err := p.users.GetUserByID(userID)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: record.ID, Email: record.Email}, nil
}

func (p *PersistenceService) ResolveRoom(ctx context.Context, roomID domain.RoomID) (domain.Room, error) {
	return p.rooms.GetRoom(roomID)
}
