package repositories

import (
	"fmt"
	"testing"
	"time"

	"chat-backend/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_Store_And_Get(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	repo := NewMessageRepository(db)
	now := time.Now().UTC()
	room := domain.RoomID(7)

	original := domain.Message{
		ID:        uuid.New(),
		Room:      room,
		SenderID:  "user-abc",
		Content:   "hello from the test suite",
		CreatedAt: now,
		UpdatedAt: now,
	}

	req.NoError(repo.StoreMessage(original))

	fetched, cursor, err := repo.GetMessages(room, "", nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Empty(cursor)
	req.Equal(original.ID, fetched[0].ID)
	req.Equal(original.Content, fetched[0].Content)
	req.Equal(original.SenderID, fetched[0].SenderID)
	req.WithinDuration(original.CreatedAt, fetched[0].CreatedAt, time.Millisecond)
}

func TestMessageRepository_Pagination(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	repo := NewMessageRepository(db)
	room := domain.RoomID(1)
	now := time.Now().UTC()

	for i := 1; i <= 5; i++ {
		at := now.Add(time.Duration(i) * time.Minute)
		err := repo.StoreMessage(domain.Message{
			ID:        uuid.New(),
			Room:      room,
			SenderID:  "user-abc",
			Content:   fmt.Sprintf("Message %d", i),
			CreatedAt: at,
			UpdatedAt: at,
		})
		req.NoError(err)
	}

	// --- PAGE 1 ---
	list1, cursor1, err := repo.GetMessages(room, "", lo.ToPtr(2))
	req.NoError(err)
	req.Len(list1, 2)
	req.Equal("Message 5", list1[0].Content)
	req.Equal("Message 4", list1[1].Content)
	req.NotEmpty(cursor1)

	// --- PAGE 2 ---
	list2, cursor2, err := repo.GetMessages(room, cursor1, lo.ToPtr(2))
	req.NoError(err)
	req.Len(list2, 2)
	req.Equal("Message 3", list2[0].Content)
	req.Equal("Message 2", list2[1].Content)
	req.NotEmpty(cursor2)

	// --- PAGE 3 ---
	list3, _, err := repo.GetMessages(room, cursor2, lo.ToPtr(2))
	req.NoError(err)
	req.Len(list3, 1)
	req.Equal("Message 1", list3[0].Content)
}

func TestMessageRepository_Rooms_Are_Isolated(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	repo := NewMessageRepository(db)
	now := time.Now().UTC()

	// Given messages spread over two rooms
	for i, room := range []domain.RoomID{1, 11, 1} {
		at := now.Add(time.Duration(i) * time.Second)
		req.NoError(repo.StoreMessage(domain.Message{
			ID:        uuid.New(),
			Room:      room,
			SenderID:  "user-abc",
			Content:   fmt.Sprintf("Message %d", i),
			CreatedAt: at,
			UpdatedAt: at,
		}))
	}

	// When reading room 1 (whose prefix is also a prefix of room 11)
	fetched, _, err := repo.GetMessages(domain.RoomID(1), "", nil)

	// Then only room 1 messages come back
	req.NoError(err)
	req.Len(fetched, 2)
	for _, msg := range fetched {
		req.Equal(domain.RoomID(1), msg.Room)
	}
}

func TestMessageRepository_Invalid_Cursor(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	repo := NewMessageRepository(db)

	_, _, err = repo.GetMessages(domain.RoomID(1), "not-base64!!", nil)
	req.Error(err)
}
