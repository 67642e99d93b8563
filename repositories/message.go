package repositories

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"chat-backend/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const defaultMessageLimit = 50

type IMessageRepository interface {
	StoreMessage(msg domain.Message) error
	GetMessages(room domain.RoomID, cursor string, limit *int) ([]domain.Message, string, error)
}

type MessageRepository struct {
	db *badger.DB
}

func NewMessageRepository(db *badger.DB) IMessageRepository {
	return &MessageRepository{db: db}
}

// DiskMessage is the stored shape of a message. It is decoupled from
// domain.Message so the on-disk layout can evolve independently.
type DiskMessage struct {
	ID        string    `json:"id"`
	Room      int       `json:"room"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m MessageRepository) StoreMessage(msg domain.Message) error {
	record := DiskMessage{
		ID:        msg.ID.String(),
		Room:      int(msg.Room),
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: msg.UpdatedAt,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg.Room, msg.CreatedAt, record.ID), data)
	})
}

// GetMessages pages through a room's history from newest to oldest.
// The cursor is the last returned key, base64-encoded; an empty cursor
// starts from the most recent message. An empty next-cursor means the
// history is exhausted.
func (m MessageRepository) GetMessages(room domain.RoomID, cursor string, limit *int) ([]domain.Message, string, error) {
	pageSize := defaultMessageLimit
	if limit != nil && *limit > 0 {
		pageSize = *limit
	}

	prefix := fmt.Appendf(nil, "msg:%d:", int(room))

	var start []byte
	if cursor != "" {
		decoded, err := base64.StdEncoding.DecodeString(cursor)
		if err != nil || !bytes.HasPrefix(decoded, prefix) {
			return nil, "", fmt.Errorf("invalid cursor")
		}
		start = decoded
	}

	var messages []domain.Message
	var lastKey []byte

	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		if start == nil {
			// 0xFF sorts after every timestamp digit, so seeking to it
			// lands on the newest entry under the prefix.
			it.Seek(append(bytes.Clone(prefix), 0xFF))
		} else {
			it.Seek(start)
			// The cursor key was already returned on the previous page.
			if it.Valid() && bytes.Equal(it.Item().Key(), start) {
				it.Next()
			}
		}

		for ; it.Valid() && len(messages) < pageSize; it.Next() {
			var record DiskMessage
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			msg, err := record.toDomain()
			if err != nil {
				return err
			}
			messages = append(messages, msg)
			lastKey = it.Item().KeyCopy(lastKey)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	var next string
	if len(messages) == pageSize {
		next = base64.StdEncoding.EncodeToString(lastKey)
	}
	return messages, next, nil
}

func (d DiskMessage) toDomain() (domain.Message, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("corrupt message id %q: %w", d.ID, err)
	}
	return domain.Message{
		ID:        id,
		Room:      domain.RoomID(d.Room),
		SenderID:  d.SenderID,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

// messageKey orders entries by room, then creation time, then id as a
// tiebreaker for messages sharing a nanosecond.
func messageKey(room domain.RoomID, at time.Time, id string) []byte {
	return fmt.Appendf(nil, "msg:%d:%019d:%s", int(room), at.UnixNano(), id)
}
