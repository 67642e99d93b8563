package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"chat-backend/domain"
	"chat-backend/errors"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createRoomRequest struct {
	Name string `json:"name" binding:"required,min=1,max=128"`
}

func (a *API) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := a.authService.Register(req.Email, req.Password)
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (a *API) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := a.authService.Login(req.Email, req.Password)
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (a *API) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := a.chatService.CreateRoom(req.Name)
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (a *API) handleListRooms(c *gin.Context) {
	rooms, err := a.chatService.ListRooms()
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (a *API) handleGetRoom(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	room, err := a.chatService.GetRoom(roomID)
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, room)
}

func (a *API) handleAddRoomMember(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	if err := a.chatService.AddRoomMember(roomID, c.Param("userId")); err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleRemoveRoomMember(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	if err := a.chatService.RemoveRoomMember(roomID, c.Param("userId")); err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleListRoomMembers(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	members, err := a.chatService.ListRoomMembers(roomID)
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": members})
}

func (a *API) handleGetMessages(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	limit := a.messageLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = lo.ToPtr(n)
	}

	messages, cursor, err := a.chatService.GetMessages(roomID, c.Query("cursor"), limit)
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	out := make([]messageReceivedPayload, 0, len(messages))
	for _, msg := range messages {
		out = append(out, messageReceivedPayload{
			MessageID: msg.ID.String(),
			RoomID:    int(msg.Room),
			UserID:    msg.SenderID,
			Content:   msg.Content,
			Timestamp: msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out, "cursor": cursor})
}

// handleTimeline serves the in-memory recent-messages projection: a fast
// read that trails the durable history but never touches the disk.
func (a *API) handleTimeline(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	if _, err := a.chatService.GetRoom(roomID); err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	recent := a.timeline.Recent(roomID)
	out := make([]messageReceivedPayload, 0, len(recent))
	for _, msg := range recent {
		out = append(out, messageReceivedPayload{
			MessageID: msg.ID.String(),
			RoomID:    int(msg.Room),
			UserID:    msg.SenderID,
			Content:   msg.Content,
			Timestamp: msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (a *API) handleSearchMessages(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	hits, err := a.chatService.SearchMessages(c.Request.Context(), roomID, query, a.searchLimit)
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hits": hits})
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, a.monitor.Snapshot())
}

func roomParam(c *gin.Context) (domain.RoomID, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return 0, false
	}
	return domain.RoomID(id), true
}
