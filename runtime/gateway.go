// Package runtime hosts the real-time core: the room registry, the messaging
// gateway, and the supervised workers around them. It orchestrates the system
// without containing business logic or domain rules.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"chat-backend/contract"
	"chat-backend/domain"
	"chat-backend/domain/event"
	"chat-backend/errors"
	"chat-backend/moderation"
	"chat-backend/observability"
)

// Gateway mediates between connection sessions, the room registry, and the
// persistence service.
//
// The contract per operation: registry mutation first, fan-out second, and for
// sends the durable write happens strictly before any fan-out, outside every
// room lock. A failed persistence call therefore never leaks a partial
// broadcast; the error goes back to the requesting session only.
type Gateway struct {
	log       *slog.Logger
	registry  contract.IRegistry
	persist   contract.IPersistence
	moderator *moderation.Moderator
	events    chan event.DomainEvent
	monitor   *observability.Monitor
}

func NewGateway(
	log *slog.Logger,
	registry contract.IRegistry,
	persist contract.IPersistence,
	moderator *moderation.Moderator,
	events chan event.DomainEvent,
	monitor *observability.Monitor,
) *Gateway {
	return &Gateway{
		log:       log,
		registry:  registry,
		persist:   persist,
		moderator: moderator,
		events:    events,
		monitor:   monitor,
	}
}

// Connect binds a freshly identified session to its outbound sink.
func (g *Gateway) Connect(sessionID, userID string, sink contract.EventSink) {
	g.registry.Register(sessionID, sink)
	g.monitor.ConnOpened()
	g.log.Info("session connected", "session_id", sessionID, "user_id", userID)
}

// Join verifies the user and room exist, registers the membership, and
// announces the newcomer to the other members. A repeated join is accepted
// silently: membership did not change, so nobody is notified twice.
func (g *Gateway) Join(ctx context.Context, sessionID, userID string, roomID domain.RoomID) error {
	if _, err := g.persist.ResolveUser(ctx, userID); err != nil {
		return fmt.Errorf("join room %d: %w", roomID, err)
	}
	if _, err := g.persist.ResolveRoom(ctx, roomID); err != nil {
		return fmt.Errorf("join room %d: %w", roomID, err)
	}

	if !g.registry.Join(sessionID, roomID) {
		return nil
	}
	delivered, dropped := g.registry.Fanout(ctx, roomID, sessionID,
		event.UserJoined{UserID: userID, Room: int(roomID)})
	g.monitor.AddBroadcast(delivered, dropped)
	g.log.Debug("user joined room", "user_id", userID, "room_id", roomID, "notified", delivered)
	return nil
}

// Leave mirrors Join. Leaving a room never joined is accepted and produces
// neither a broadcast nor an error.
func (g *Gateway) Leave(ctx context.Context, sessionID, userID string, roomID domain.RoomID) error {
	if !g.registry.Leave(sessionID, roomID) {
		return nil
	}
	delivered, dropped := g.registry.Fanout(ctx, roomID, sessionID,
		event.UserLeft{UserID: userID, Room: int(roomID)})
	g.monitor.AddBroadcast(delivered, dropped)
	g.log.Debug("user left room", "user_id", userID, "room_id", roomID, "notified", delivered)
	return nil
}

// Send runs the persist-then-broadcast sequence. The message must be durable
// before it is announced, so the id and timestamp peers receive match what a
// later history query returns. The sender never receives its own echo.
func (g *Gateway) Send(ctx context.Context, sessionID, userID string, roomID domain.RoomID, content string) (domain.Message, error) {
	if !g.registry.IsMember(sessionID, roomID) {
		return domain.Message{}, fmt.Errorf("send to room %d: %w", roomID, errors.ErrNotRoomMember)
	}

	sanitized, flagged := g.moderator.Censor(content)
	if len(flagged) > 0 {
		g.monitor.AddModerationHit()
		g.log.Warn("message censored",
			"user_id", userID,
			"room_id", roomID,
			"lang", moderation.DetectLanguage(content),
			"words", len(flagged))
	}

	// Blocking I/O happens here, before any room lock is taken.
	message, err := g.persist.CreateMessage(ctx, sanitized, userID, roomID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("send to room %d: %w", roomID, err)
	}
	g.monitor.AddMessage()

	evt := event.MessageReceived{
		ID:      message.ID,
		Room:    int(roomID),
		UserID:  userID,
		Content: message.Content,
		At:      message.UpdatedAt,
	}
	delivered, dropped := g.registry.Fanout(ctx, roomID, sessionID, evt)
	g.monitor.AddBroadcast(delivered, dropped)
	g.publish(evt)
	return message, nil
}

// Disconnect is unconditional, fire-and-forget cleanup: it cannot fail and
// cannot be rejected. Remaining members of each room are told the user left,
// exactly as if an explicit leaveRoom had been sent.
func (g *Gateway) Disconnect(ctx context.Context, sessionID, userID string) {
	left := g.registry.RemoveSession(sessionID)
	for _, roomID := range left {
		delivered, dropped := g.registry.Fanout(ctx, roomID, sessionID,
			event.UserLeft{UserID: userID, Room: int(roomID)})
		g.monitor.AddBroadcast(delivered, dropped)
	}
	g.monitor.ConnClosed()
	g.log.Info("session disconnected", "session_id", sessionID, "user_id", userID, "rooms_left", len(left))
}

// publish hands the event to the permanent sink pipeline (timeline, search
// index). Best-effort: the pipeline is observability, not delivery.
func (g *Gateway) publish(e event.DomainEvent) {
	select {
	case g.events <- e:
	default:
		g.log.Debug("event pipeline full, dropping event")
	}
}
