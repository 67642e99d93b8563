package event

import (
	"time"

	"chat-backend/domain"

	"github.com/google/uuid"
)

// DomainEvent is the tagged variant delivered to room members.
// Each kind has a fixed payload shape; payloads are validated at the
// transport boundary before dispatch ever reaches the core.
type DomainEvent interface {
	RoomID() domain.RoomID
}

// UserJoined announces a new member to the other members of the room.
type UserJoined struct {
	UserID string
	Room   int
}

func (e UserJoined) RoomID() domain.RoomID { return domain.RoomID(e.Room) }

// UserLeft announces a departure, explicit or by disconnect.
type UserLeft struct {
	UserID string
	Room   int
}

func (e UserLeft) RoomID() domain.RoomID { return domain.RoomID(e.Room) }

// MessageReceived carries a durably persisted message. ID and At come from
// the persistence layer, never from the sender.
type MessageReceived struct {
	ID      uuid.UUID
	Room    int
	UserID  string
	Content string
	At      time.Time
}

func (m MessageReceived) RoomID() domain.RoomID { return domain.RoomID(m.Room) }

// OperationFailed is delivered only to the session whose action failed.
// Other members observe nothing for a failed action.
type OperationFailed struct {
	Op     string
	Room   int
	Reason string
}

func (e OperationFailed) RoomID() domain.RoomID { return domain.RoomID(e.Room) }
