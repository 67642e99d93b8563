package repositories

import (
	"testing"

	"chat-backend/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create_And_Lookup(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	repo := NewUserRepository(db)

	// Given a created user
	id, err := repo.CreateUser("alice@example.com", "$argon2id$fake-hash")
	req.NoError(err)
	req.NotEmpty(id)

	// Then both lookup paths resolve the same record
	byEmail, err := repo.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(id, byEmail.ID)
	req.Equal("alice@example.com", byEmail.Email)
	req.Equal([]string{"user"}, byEmail.Roles)

	byID, err := repo.GetUserByID(id)
	req.NoError(err)
	req.Equal(byEmail, byID)
}

func TestUserRepository_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	repo := NewUserRepository(db)

	_, err = repo.CreateUser("bob@example.com", "hash-1")
	req.NoError(err)

	// When registering the same email again
	_, err = repo.CreateUser("bob@example.com", "hash-2")

	// Then the first record wins
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_Unknown_User(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	repo := NewUserRepository(db)

	_, err = repo.GetUserByEmail("nobody@example.com")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repo.GetUserByID("missing-id")
	req.ErrorIs(err, errors.ErrUserNotFound)
}
