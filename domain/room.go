// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type RoomID int

// Room is the durable named channel connections join to receive broadcasts.
// The live member list is not part of the entity; it belongs to the registry.
type Room struct {
	ID        RoomID
	Name      string
	CreatedAt time.Time
}
