package runtime

import (
	"context"
	"sync"
	"testing"

	"chat-backend/domain"
	"chat-backend/domain/event"
	"chat-backend/sink"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// captureSink records everything it consumes, for fan-out assertions.
type captureSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *captureSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) Events() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.DomainEvent, len(s.events))
	copy(out, s.events)
	return out
}

func TestRegistry_Join_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.NewString()
	roomID := domain.RoomID(1)
	registry.Register(sessionID, &captureSink{})

	// When a session joins the same room twice
	changed := registry.Join(sessionID, roomID)
	again := registry.Join(sessionID, roomID)

	// Then only the first join changes membership
	req.True(changed)
	req.False(again)
	req.Equal([]string{sessionID}, registry.MembersOf(roomID))
	req.True(registry.IsMember(sessionID, roomID))
}

func TestRegistry_Join_Unknown_Session_Is_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// When an unregistered session joins
	changed := registry.Join(uuid.NewString(), domain.RoomID(1))

	// Then nothing happens and no room entry is created
	req.False(changed)
	req.Empty(registry.MembersOf(domain.RoomID(1)))
}

func TestRegistry_Leave_Never_Joined_Is_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.NewString()
	registry.Register(sessionID, &captureSink{})

	// When leaving a room the session never joined
	changed := registry.Leave(sessionID, domain.RoomID(7))

	// Then it is accepted without effect
	req.False(changed)
	req.False(registry.IsMember(sessionID, domain.RoomID(7)))
}

func TestRegistry_Leave_Then_Leave_Again(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.NewString()
	roomID := domain.RoomID(1)
	registry.Register(sessionID, &captureSink{})
	registry.Join(sessionID, roomID)

	// When leaving twice
	first := registry.Leave(sessionID, roomID)
	second := registry.Leave(sessionID, roomID)

	// Then the net effect is a single leave
	req.True(first)
	req.False(second)
	req.Empty(registry.MembersOf(roomID))
}

func TestRegistry_Empty_Room_Is_Pruned(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.NewString()
	roomID := domain.RoomID(1)
	registry.Register(sessionID, &captureSink{})
	registry.Join(sessionID, roomID)

	// When the last member leaves
	registry.Leave(sessionID, roomID)

	// Then the room entry is gone and can be recreated on demand
	registry.mu.RLock()
	_, exists := registry.rooms[roomID]
	registry.mu.RUnlock()
	req.False(exists)

	req.True(registry.Join(sessionID, roomID))
	req.Equal([]string{sessionID}, registry.MembersOf(roomID))
}

func TestRegistry_RemoveSession_Cleans_All_Rooms(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	leaving := uuid.NewString()
	staying := uuid.NewString()
	registry.Register(leaving, &captureSink{})
	registry.Register(staying, &captureSink{})

	rooms := []domain.RoomID{1, 2, 3}
	for _, r := range rooms {
		registry.Join(leaving, r)
	}
	registry.Join(staying, rooms[0])

	// When the session disconnects
	left := registry.RemoveSession(leaving)

	// Then it is removed from every room it had joined
	req.ElementsMatch(rooms, left)
	for _, r := range rooms {
		req.NotContains(registry.MembersOf(r), leaving)
	}
	// And unrelated members are untouched
	req.Equal([]string{staying}, registry.MembersOf(rooms[0]))

	// And removing again is a safe no-op
	req.Empty(registry.RemoveSession(leaving))
}

func TestRegistry_Fanout_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sender := uuid.NewString()
	receiver := uuid.NewString()
	senderSink := &captureSink{}
	receiverSink := &captureSink{}
	roomID := domain.RoomID(1)

	registry.Register(sender, senderSink)
	registry.Register(receiver, receiverSink)
	registry.Join(sender, roomID)
	registry.Join(receiver, roomID)

	// When fanning out on behalf of the sender
	evt := event.MessageReceived{Room: int(roomID), UserID: "alice", Content: "hello"}
	delivered, dropped := registry.Fanout(context.Background(), roomID, sender, evt)

	// Then only the other member receives it
	req.Equal(1, delivered)
	req.Zero(dropped)
	req.Empty(senderSink.Events())
	req.Equal([]event.DomainEvent{evt}, receiverSink.Events())
}

func TestRegistry_Fanout_After_Leave_Reaches_No_One(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	ghost := uuid.NewString()
	ghostSink := &captureSink{}
	sender := uuid.NewString()
	roomID := domain.RoomID(1)

	registry.Register(ghost, ghostSink)
	registry.Join(ghost, roomID)
	registry.RemoveSession(ghost)

	registry.Register(sender, &captureSink{})
	registry.Join(sender, roomID)

	// When broadcasting after the other member is gone
	delivered, dropped := registry.Fanout(context.Background(), roomID,
		sender, event.MessageReceived{Room: int(roomID), Content: "anyone?"})

	// Then the send succeeds but reaches no one
	req.Zero(delivered)
	req.Zero(dropped)
	req.Empty(ghostSink.Events())
}

func TestRegistry_Fanout_Counts_Saturated_Sink_As_Drop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sender := uuid.NewString()
	healthy := uuid.NewString()
	saturated := uuid.NewString()
	healthySink := &captureSink{}
	roomID := domain.RoomID(1)

	registry.Register(sender, &captureSink{})
	registry.Register(healthy, healthySink)
	// A zero-capacity sink refuses every delivery.
	registry.Register(saturated, sink.NewSessionSink(0))
	registry.Join(sender, roomID)
	registry.Join(healthy, roomID)
	registry.Join(saturated, roomID)

	// When broadcasting to one healthy and one saturated member
	evt := event.MessageReceived{Room: int(roomID), UserID: "alice", Content: "hello"}
	delivered, dropped := registry.Fanout(context.Background(), roomID, sender, evt)

	// Then the drop is reported, not silently counted as a delivery
	req.Equal(1, delivered)
	req.Equal(1, dropped)
	req.Equal([]event.DomainEvent{evt}, healthySink.Events())
}

func TestRegistry_Concurrent_Join_And_Remove_Stay_Consistent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roomID := domain.RoomID(1)

	anchor := uuid.NewString()
	registry.Register(anchor, &captureSink{})
	registry.Join(anchor, roomID)

	// A join racing a disconnect must never leave a removed session behind
	// as a stale room member.
	for i := 0; i < 200; i++ {
		sessionID := uuid.NewString()
		registry.Register(sessionID, &captureSink{})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.Join(sessionID, roomID)
		}()
		go func() {
			defer wg.Done()
			registry.RemoveSession(sessionID)
		}()
		wg.Wait()
		registry.RemoveSession(sessionID)

		req.NotContains(registry.MembersOf(roomID), sessionID)
		req.False(registry.IsMember(sessionID, roomID))
	}
	req.Contains(registry.MembersOf(roomID), anchor)
}
