package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"chat-backend/auth"
	"chat-backend/domain"
	"chat-backend/domain/event"
	"chat-backend/sink"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// handleWS upgrades the connection and runs the session until the peer
// goes away. Identity is resolved from the JWT before any session state
// exists; an anonymous upgrade is refused outright.
func (a *API) handleWS(c *gin.Context) {
	token := auth.TokenFromRequest(c.Request)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			gin.H{"error": "authorization token is missing"})
		return
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.log.Error("Error while upgrading connection", "err", err)
		return
	}

	session := domain.Session{ID: uuid.New().String(), UserID: claims.UserID}
	sessionSink := sink.NewSessionSink(a.connBufferSize)
	a.gateway.Connect(session.ID, session.UserID, sessionSink)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Single-writer rule: only the write pump touches the connection's
	// write side. Errors for this session travel through the same sink.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		a.writePump(conn, sessionSink)
	}()

	a.readLoop(ctx, conn, session, sessionSink)

	// Remove from the registry first so no fan-out can race the close.
	a.gateway.Disconnect(ctx, session.ID, session.UserID)
	sessionSink.Close()
	<-writeDone
	_ = conn.Close()
}

func (a *API) readLoop(ctx context.Context, conn *websocket.Conn,
	session domain.Session, sessionSink *sink.SessionSink) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				a.log.Debug("Unexpected close", "session_id", session.ID, "err", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			a.reject(ctx, sessionSink, "", 0, "malformed frame")
			continue
		}

		switch env.Event {
		case eventJoinRoom:
			var p joinRoomPayload
			if !a.decode(ctx, sessionSink, env, &p) {
				continue
			}
			if err := a.gateway.Join(ctx, session.ID, session.UserID, domain.RoomID(p.RoomID)); err != nil {
				a.reject(ctx, sessionSink, env.Event, p.RoomID, err.Error())
			}
		case eventLeaveRoom:
			var p leaveRoomPayload
			if !a.decode(ctx, sessionSink, env, &p) {
				continue
			}
			if err := a.gateway.Leave(ctx, session.ID, session.UserID, domain.RoomID(p.RoomID)); err != nil {
				a.reject(ctx, sessionSink, env.Event, p.RoomID, err.Error())
			}
		case eventSendMessage:
			var p sendMessagePayload
			if !a.decode(ctx, sessionSink, env, &p) {
				continue
			}
			if _, err := a.gateway.Send(ctx, session.ID, session.UserID, domain.RoomID(p.RoomID), p.Content); err != nil {
				a.reject(ctx, sessionSink, env.Event, p.RoomID, err.Error())
			}
		default:
			a.reject(ctx, sessionSink, env.Event, 0, "unknown event")
		}
	}
}

// decode unmarshals and validates an inbound payload. A frame that fails
// either step is answered with an error event and otherwise ignored.
func (a *API) decode(ctx context.Context, sessionSink *sink.SessionSink,
	env envelope, out any) bool {
	if err := json.Unmarshal(env.Data, out); err != nil {
		a.reject(ctx, sessionSink, env.Event, 0, "malformed payload")
		return false
	}
	if err := a.validate.Struct(out); err != nil {
		a.reject(ctx, sessionSink, env.Event, 0, "invalid payload")
		return false
	}
	return true
}

// reject delivers a failure to the requesting session only.
func (a *API) reject(ctx context.Context, sessionSink *sink.SessionSink,
	op string, roomID int, reason string) {
	_ = sessionSink.Consume(ctx, event.OperationFailed{Op: op, Room: roomID, Reason: reason})
}

func (a *API) writePump(conn *websocket.Conn, sessionSink *sink.SessionSink) {
	for e := range sessionSink.Events() {
		frame, err := encodeEvent(e)
		if err != nil {
			a.log.Error("Error while encoding event", "err", err)
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(a.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			a.log.Debug("Write failed, draining remaining events", "err", err)
			// Keep draining so Close never blocks the broadcaster.
			for range sessionSink.Events() {
			}
			return
		}
	}
}
