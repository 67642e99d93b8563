// Messages are immutable once persisted; the id and update time are
// assigned by the persistence layer and are the canonical broadcast fields.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID        uuid.UUID
	Room      RoomID
	SenderID  string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
