package httpapi

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-backend/domain/event"
)

// envelope is the wire shape for every WebSocket frame, both directions:
// a discriminant plus a payload whose shape is fixed per event kind.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const (
	eventJoinRoom    = "joinRoom"
	eventLeaveRoom   = "leaveRoom"
	eventSendMessage = "sendMessage"

	eventUserJoined      = "userJoined"
	eventUserLeft        = "userLeft"
	eventMessageReceived = "messageReceived"
	eventError           = "error"
)

type joinRoomPayload struct {
	RoomID int `json:"roomId" validate:"required,min=1"`
}

type leaveRoomPayload struct {
	RoomID int `json:"roomId" validate:"required,min=1"`
}

type sendMessagePayload struct {
	RoomID  int    `json:"roomId" validate:"required,min=1"`
	Content string `json:"content" validate:"required,max=4096"`
}

type userJoinedPayload struct {
	UserID string `json:"userId"`
	RoomID int    `json:"roomId"`
}

type userLeftPayload struct {
	UserID string `json:"userId"`
	RoomID int    `json:"roomId"`
}

type messageReceivedPayload struct {
	MessageID string `json:"messageId"`
	RoomID    int    `json:"roomId"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type errorPayload struct {
	Op     string `json:"op"`
	RoomID int    `json:"roomId,omitempty"`
	Reason string `json:"reason"`
}

// encodeEvent maps a domain event to its outbound frame.
func encodeEvent(e event.DomainEvent) ([]byte, error) {
	var name string
	var payload any

	switch evt := e.(type) {
	case event.UserJoined:
		name = eventUserJoined
		payload = userJoinedPayload{UserID: evt.UserID, RoomID: evt.Room}
	case event.UserLeft:
		name = eventUserLeft
		payload = userLeftPayload{UserID: evt.UserID, RoomID: evt.Room}
	case event.MessageReceived:
		name = eventMessageReceived
		payload = messageReceivedPayload{
			MessageID: evt.ID.String(),
			RoomID:    evt.Room,
			UserID:    evt.UserID,
			Content:   evt.Content,
			Timestamp: evt.At.UTC().Format(time.RFC3339Nano),
		}
	case event.OperationFailed:
		name = eventError
		payload = errorPayload{Op: evt.Op, RoomID: evt.Room, Reason: evt.Reason}
	default:
		return nil, fmt.Errorf("unknown event type %T", e)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: name, Data: data})
}
