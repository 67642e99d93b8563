package runtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-backend/domain"
	"chat-backend/domain/event"
	"chat-backend/errors"
	"chat-backend/mocks"
	"chat-backend/moderation"
	"chat-backend/observability"
	"chat-backend/sink"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type gatewayFixture struct {
	gateway  *Gateway
	registry *Registry
	persist  *mocks.MockIPersistence
	events   chan event.DomainEvent
	monitor  *observability.Monitor
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	ctrl := gomock.NewController(t)
	persist := mocks.NewMockIPersistence(ctrl)
	registry := NewRegistry()
	log := logs.GetLoggerFromLevel(slog.LevelError)

	moderator, err := moderation.NewModerator([]string{"badword"}, '*', log)
	require.NoError(t, err)

	events := make(chan event.DomainEvent, 100)
	monitor := observability.NewMonitor()
	gateway := NewGateway(log, registry, persist, &moderator, events, monitor)
	return &gatewayFixture{gateway: gateway, registry: registry, persist: persist, events: events, monitor: monitor}
}

// connect registers a session bound to a capture sink and joins it to the room.
func (f *gatewayFixture) connect(t *testing.T, userID string, roomID domain.RoomID) (string, *captureSink) {
	ctx := context.Background()
	sessionID := uuid.NewString()
	sink := &captureSink{}
	f.gateway.Connect(sessionID, userID, sink)

	f.persist.EXPECT().ResolveUser(gomock.Any(), userID).
		Return(domain.User{ID: userID}, nil)
	f.persist.EXPECT().ResolveRoom(gomock.Any(), roomID).
		Return(domain.Room{ID: roomID}, nil)
	require.NoError(t, f.gateway.Join(ctx, sessionID, userID, roomID))
	return sessionID, sink
}

func TestGateway_Send_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGatewayFixture(t)
	roomID := domain.RoomID(1)

	aliceSession, aliceSink := f.connect(t, "alice", roomID)
	_, bobSink := f.connect(t, "bob", roomID)

	stored := domain.Message{
		ID:        uuid.New(),
		Room:      roomID,
		SenderID:  "alice",
		Content:   "hello",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	f.persist.EXPECT().
		CreateMessage(gomock.Any(), "hello", "alice", roomID).
		Return(stored, nil).
		Times(1)

	// When Alice sends
	msg, err := f.gateway.Send(ctx, aliceSession, "alice", roomID, "hello")
	req.NoError(err)
	req.Equal(stored.ID, msg.ID)

	// Then Bob receives the persisted id and content, Alice gets no echo
	bobEvents := bobSink.Events()
	req.Len(bobEvents, 1)

	received, ok := bobEvents[0].(event.MessageReceived)
	req.True(ok)
	req.Equal(stored.ID, received.ID)
	req.Equal("hello", received.Content)

	for _, e := range aliceSink.Events() {
		_, isMessage := e.(event.MessageReceived)
		req.False(isMessage, "sender must not receive its own message")
	}
}

func TestGateway_Send_Requires_Membership(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGatewayFixture(t)
	roomID := domain.RoomID(1)

	sessionID := uuid.NewString()
	f.gateway.Connect(sessionID, "alice", &captureSink{})

	// Persistence must never be touched for a rejected send
	f.persist.EXPECT().CreateMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := f.gateway.Send(ctx, sessionID, "alice", roomID, "hello")

	req.ErrorIs(err, errors.ErrNotRoomMember)
}

func TestGateway_Persistence_Failure_Blocks_Broadcast(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGatewayFixture(t)
	roomID := domain.RoomID(1)

	aliceSession, _ := f.connect(t, "alice", roomID)
	_, bobSink := f.connect(t, "bob", roomID)
	before := len(bobSink.Events())

	f.persist.EXPECT().
		CreateMessage(gomock.Any(), "hello", "alice", roomID).
		Return(domain.Message{}, errors.ErrPersistenceUnavailable).
		Times(1)

	// When the durable write fails
	_, err := f.gateway.Send(ctx, aliceSession, "alice", roomID, "hello")

	// Then the sender gets the error and nobody observes anything
	req.ErrorIs(err, errors.ErrPersistenceUnavailable)
	req.Len(bobSink.Events(), before)
}

func TestGateway_Join_Notifies_Existing_Members_Only(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	roomID := domain.RoomID(1)

	_, aliceSink := f.connect(t, "alice", roomID)
	_, bobSink := f.connect(t, "bob", roomID)

	// Alice, already present, observes Bob's arrival
	aliceEvents := aliceSink.Events()
	req.Len(aliceEvents, 1)
	joined, ok := aliceEvents[0].(event.UserJoined)
	req.True(ok)
	req.Equal("bob", joined.UserID)
	req.Equal(int(roomID), joined.Room)

	// The joiner receives no notification about itself
	req.Empty(bobSink.Events())
}

func TestGateway_Duplicate_Join_Is_Silent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGatewayFixture(t)
	roomID := domain.RoomID(1)

	aliceSession, aliceSink := f.connect(t, "alice", roomID)
	_, bobSink := f.connect(t, "bob", roomID)
	before := len(bobSink.Events())

	f.persist.EXPECT().ResolveUser(gomock.Any(), "alice").
		Return(domain.User{ID: "alice"}, nil)
	f.persist.EXPECT().ResolveRoom(gomock.Any(), roomID).
		Return(domain.Room{ID: roomID}, nil)

	// When Alice joins the same room again
	req.NoError(f.gateway.Join(ctx, aliceSession, "alice", roomID))

	// Then nobody is notified twice
	req.Len(bobSink.Events(), before)
	req.Len(aliceSink.Events(), 1) // only Bob's original arrival
}

func TestGateway_Leave_Never_Joined_Is_NoOp(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGatewayFixture(t)
	roomID := domain.RoomID(1)

	_, aliceSink := f.connect(t, "alice", roomID)

	bobSession := uuid.NewString()
	f.gateway.Connect(bobSession, "bob", &captureSink{})

	// When Bob leaves a room he never joined
	req.NoError(f.gateway.Leave(ctx, bobSession, "bob", roomID))

	// Then no departure is announced
	req.Empty(aliceSink.Events())
}

func TestGateway_Disconnect_Broadcasts_Departure(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGatewayFixture(t)
	room1 := domain.RoomID(1)
	room2 := domain.RoomID(2)

	_, aliceSink := f.connect(t, "alice", room1)
	_, claraSink := f.connect(t, "clara", room2)

	// Bob is in both rooms
	bobSession := uuid.NewString()
	f.gateway.Connect(bobSession, "bob", &captureSink{})
	for _, roomID := range []domain.RoomID{room1, room2} {
		f.persist.EXPECT().ResolveUser(gomock.Any(), "bob").
			Return(domain.User{ID: "bob"}, nil)
		f.persist.EXPECT().ResolveRoom(gomock.Any(), roomID).
			Return(domain.Room{ID: roomID}, nil)
		req.NoError(f.gateway.Join(ctx, bobSession, "bob", roomID))
	}

	// When Bob's connection drops
	f.gateway.Disconnect(ctx, bobSession, "bob")

	// Then each room's remaining members observe exactly one departure
	for _, memberSink := range []*captureSink{aliceSink, claraSink} {
		var lefts []event.UserLeft
		for _, e := range memberSink.Events() {
			if left, ok := e.(event.UserLeft); ok {
				lefts = append(lefts, left)
			}
		}
		req.Len(lefts, 1)
		req.Equal("bob", lefts[0].UserID)
	}

	// And the session is fully gone
	req.NotContains(f.registry.MembersOf(room1), bobSession)
	req.NotContains(f.registry.MembersOf(room2), bobSession)
}

func TestGateway_Send_Censors_Content(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGatewayFixture(t)
	roomID := domain.RoomID(1)

	aliceSession, _ := f.connect(t, "alice", roomID)

	// The persisted content must already be censored
	f.persist.EXPECT().
		CreateMessage(gomock.Any(), "this is *******", "alice", roomID).
		Return(domain.Message{ID: uuid.New(), Room: roomID, Content: "this is *******"}, nil).
		Times(1)

	_, err := f.gateway.Send(ctx, aliceSession, "alice", roomID, "this is badword")
	req.NoError(err)
}

func TestGateway_Send_Counts_Dropped_Deliveries(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGatewayFixture(t)
	roomID := domain.RoomID(1)

	aliceSession, _ := f.connect(t, "alice", roomID)

	// Bob's outbound buffer refuses every delivery
	bobSession := uuid.NewString()
	f.gateway.Connect(bobSession, "bob", sink.NewSessionSink(0))
	f.persist.EXPECT().ResolveUser(gomock.Any(), "bob").
		Return(domain.User{ID: "bob"}, nil)
	f.persist.EXPECT().ResolveRoom(gomock.Any(), roomID).
		Return(domain.Room{ID: roomID}, nil)
	req.NoError(f.gateway.Join(ctx, bobSession, "bob", roomID))

	f.persist.EXPECT().
		CreateMessage(gomock.Any(), "hello", "alice", roomID).
		Return(domain.Message{ID: uuid.New(), Room: roomID, Content: "hello"}, nil).
		Times(1)

	before := f.monitor.Snapshot()

	// When Alice sends into the room
	_, err := f.gateway.Send(ctx, aliceSession, "alice", roomID, "hello")
	req.NoError(err)

	// Then the refused delivery shows up as a drop, not a broadcast
	after := f.monitor.Snapshot()
	req.Equal(before.DeliveriesDropped+1, after.DeliveriesDropped)
	req.Equal(before.EventsBroadcast, after.EventsBroadcast)
	req.Equal(before.MessagesPersisted+1, after.MessagesPersisted)
}
