package services

import (
	"context"

	"chat-backend/domain"
	"chat-backend/repositories"
)

// IChatService is the read/administration surface exposed over REST.
// The live messaging path goes through the gateway, not through here;
// the durable roster managed below is independent of live registry
// membership, which a session still acquires by joining over its socket.
type IChatService interface {
	CreateRoom(name string) (domain.Room, error)
	GetRoom(id domain.RoomID) (domain.Room, error)
	ListRooms() ([]domain.Room, error)
	AddRoomMember(room domain.RoomID, userID string) error
	RemoveRoomMember(room domain.RoomID, userID string) error
	ListRoomMembers(room domain.RoomID) ([]string, error)
	GetMessages(room domain.RoomID, cursor string, limit *int) ([]domain.Message, string, error)
	SearchMessages(ctx context.Context, room domain.RoomID, query string, limit int) ([]repositories.SearchHit, error)
}

type ChatService struct {
	rooms    repositories.IRoomRepository
	messages repositories.IMessageRepository
	search   repositories.ISearchRepository
	users    repositories.IUserRepository
}

func NewChatService(rooms repositories.IRoomRepository,
	messages repositories.IMessageRepository,
	search repositories.ISearchRepository,
	users repositories.IUserRepository) *ChatService {
	return &ChatService{rooms: rooms, messages: messages, search: search, users: users}
}

func (s *ChatService) CreateRoom(name string) (domain.Room, error) {
	return s.rooms.CreateRoom(name)
}

func (s *ChatService) GetRoom(id domain.RoomID) (domain.Room, error) {
	return s.rooms.GetRoom(id)
}

func (s *ChatService) ListRooms() ([]domain.Room, error) {
	return s.rooms.ListRooms()
}

// AddRoomMember puts a user on the room's durable roster. Both sides must
// exist; the write itself is idempotent.
func (s *ChatService) AddRoomMember(room domain.RoomID, userID string) error {
	if _, err := s.rooms.GetRoom(room); err != nil {
		return err
	}
	if _, err := s.users.GetUserByID(userID); err != nil {
		return err
	}
	return s.rooms.AddRoomMember(room, userID)
}

func (s *ChatService) RemoveRoomMember(room domain.RoomID, userID string) error {
	if _, err := s.rooms.GetRoom(room); err != nil {
		return err
	}
	return s.rooms.RemoveRoomMember(room, userID)
}

func (s *ChatService) ListRoomMembers(room domain.RoomID) ([]string, error) {
	if _, err := s.rooms.GetRoom(room); err != nil {
		return nil, err
	}
	return s.rooms.ListRoomMembers(room)
}

func (s *ChatService) GetMessages(room domain.RoomID, cursor string, limit *int) ([]domain.Message, string, error) {
	if _, err := s.rooms.GetRoom(room); err != nil {
		return nil, "", err
	}
	return s.messages.GetMessages(room, cursor, limit)
}

func (s *ChatService) SearchMessages(ctx context.Context, room domain.RoomID,
	query string, limit int) ([]repositories.SearchHit, error) {
	if _, err := s.rooms.GetRoom(room); err != nil {
		return nil, err
	}
	return s.search.Search(ctx, room, query, limit)
}
