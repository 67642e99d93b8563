package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-backend/domain"
	"chat-backend/errors"

	"github.com/dgraph-io/badger/v4"
)

type IRoomRepository interface {
	CreateRoom(name string) (domain.Room, error)
	GetRoom(id domain.RoomID) (domain.Room, error)
	ListRooms() ([]domain.Room, error)
	AddRoomMember(id domain.RoomID, userID string) error
	RemoveRoomMember(id domain.RoomID, userID string) error
	ListRoomMembers(id domain.RoomID) ([]string, error)
	Close() error
}

type RoomRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewRoomRepository(db *badger.DB) (IRoomRepository, error) {
	// Room identifiers come from a monotonic badger sequence so they stay
	// small integers, matching what clients send on joinRoom.
	seq, err := db.GetSequence([]byte("seq:room"), 100)
	if err != nil {
		return nil, err
	}
	return &RoomRepository{db: db, seq: seq}, nil
}

func (r RoomRepository) CreateRoom(name string) (domain.Room, error) {
	next, err := r.seq.Next()
	if err != nil {
		return domain.Room{}, err
	}

	room := domain.Room{
		ID:        domain.RoomID(next + 1),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(room)
	if err != nil {
		return domain.Room{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roomKey(room.ID), data)
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (r RoomRepository) GetRoom(id domain.RoomID) (domain.Room, error) {
	var room domain.Room

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &room)
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return domain.Room{}, errors.ErrRoomNotFound
		}
		return domain.Room{}, err
	}
	return room, nil
}

// ListRooms returns every room in ascending id order. The fixed-width key
// encoding makes badger's lexicographic iteration numeric.
func (r RoomRepository) ListRooms() ([]domain.Room, error) {
	var rooms []domain.Room

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("room:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var room domain.Room
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &room)
			})
			if err != nil {
				return err
			}
			rooms = append(rooms, room)
		}
		return nil
	})
	return rooms, err
}

// AddRoomMember records the user on the room's durable roster. Adding an
// existing member is an idempotent overwrite.
func (r RoomRepository) AddRoomMember(id domain.RoomID, userID string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roomMemberKey(id, userID), []byte(time.Now().UTC().Format(time.RFC3339Nano)))
	})
}

// RemoveRoomMember deletes the roster entry. Removing a user who was never
// on the roster is a no-op.
func (r RoomRepository) RemoveRoomMember(id domain.RoomID, userID string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(roomMemberKey(id, userID))
	})
}

// ListRoomMembers returns the user ids on the room's durable roster.
// This is the persisted roster, not the live registry membership.
func (r RoomRepository) ListRoomMembers(id domain.RoomID) ([]string, error) {
	prefix := roomMemberPrefix(id)
	var members []string

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			members = append(members, string(key[len(prefix):]))
		}
		return nil
	})
	return members, err
}

// Close releases the id sequence, returning unused ids to the store.
func (r RoomRepository) Close() error {
	return r.seq.Release()
}

func roomKey(id domain.RoomID) []byte {
	return fmt.Appendf(nil, "room:%010d", int(id))
}

func roomMemberKey(id domain.RoomID, userID string) []byte {
	return append(roomMemberPrefix(id), userID...)
}

func roomMemberPrefix(id domain.RoomID) []byte {
	return fmt.Appendf(nil, "room_member:%010d:", int(id))
}
