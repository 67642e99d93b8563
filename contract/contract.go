//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-backend/domain"
	"chat-backend/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives one event. Implementations must be non-blocking:
// a saturated consumer drops rather than stalls the producer.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the authoritative live view of who is in which room.
// All operations are idempotent local mutations; unknown ids are safe no-ops.
type IRegistry interface {
	Register(sessionID string, sink EventSink)
	Join(sessionID string, roomID domain.RoomID) bool
	Leave(sessionID string, roomID domain.RoomID) bool
	IsMember(sessionID string, roomID domain.RoomID) bool
	MembersOf(roomID domain.RoomID) []string
	Fanout(ctx context.Context, roomID domain.RoomID, excludeSessionID string, e event.DomainEvent) (delivered, dropped int)
	RemoveSession(sessionID string) []domain.RoomID
}

// IPersistence is the external collaborator for durability and identity
// lookups. The core calls it synchronously but never inside a room lock.
type IPersistence interface {
	CreateMessage(ctx context.Context, content, userID string, roomID domain.RoomID) (domain.Message, error)
	ResolveUser(ctx context.Context, userID string) (domain.User, error)
	ResolveRoom(ctx context.Context, roomID domain.RoomID) (domain.Room, error)
}

// IGateway orchestrates the per-connection protocol state machine.
type IGateway interface {
	Connect(sessionID, userID string, sink EventSink)
	Join(ctx context.Context, sessionID, userID string, roomID domain.RoomID) error
	Leave(ctx context.Context, sessionID, userID string, roomID domain.RoomID) error
	Send(ctx context.Context, sessionID, userID string, roomID domain.RoomID, content string) (domain.Message, error)
	Disconnect(ctx context.Context, sessionID, userID string)
}
