package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"chat-backend/auth"
	"chat-backend/contract"
	"chat-backend/observability"
	"chat-backend/projection"
	"chat-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

// API wires the REST surface and the WebSocket endpoint onto one router.
type API struct {
	log            *slog.Logger
	authService    services.IAuthService
	chatService    services.IChatService
	gateway        contract.IGateway
	timeline       *projection.Timeline
	monitor        *observability.Monitor
	validate       *validator.Validate
	upgrader       websocket.Upgrader
	connBufferSize int
	writeTimeout   time.Duration
	messageLimit   *int
	searchLimit    int
}

type Options struct {
	ConnBufferSize int
	WriteTimeout   time.Duration
	MessageLimit   *int
	SearchLimit    int
}

func NewAPI(log *slog.Logger,
	authService services.IAuthService,
	chatService services.IChatService,
	gateway contract.IGateway,
	timeline *projection.Timeline,
	monitor *observability.Monitor,
	opts Options) *API {
	return &API{
		log:         log,
		authService: authService,
		chatService: chatService,
		gateway:     gateway,
		timeline:    timeline,
		monitor:     monitor,
		validate:    validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from arbitrary origins in development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		connBufferSize: opts.ConnBufferSize,
		writeTimeout:   opts.WriteTimeout,
		messageLimit:   opts.MessageLimit,
		searchLimit:    opts.SearchLimit,
	}
}

// Router assembles the gin engine. Auth endpoints are public; everything
// else requires a valid bearer token.
func (a *API) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	api.POST("/auth/register", a.handleRegister)
	api.POST("/auth/login", a.handleLogin)
	api.GET("/health", a.handleHealth)
	api.GET("/ws", a.handleWS)

	protected := api.Group("", auth.Middleware())
	protected.POST("/rooms", a.handleCreateRoom)
	protected.GET("/rooms", a.handleListRooms)
	protected.GET("/rooms/:id", a.handleGetRoom)
	protected.GET("/rooms/:id/users", a.handleListRoomMembers)
	protected.POST("/rooms/:id/users/:userId", a.handleAddRoomMember)
	protected.DELETE("/rooms/:id/users/:userId", a.handleRemoveRoomMember)
	protected.GET("/rooms/:id/messages", a.handleGetMessages)
	protected.GET("/rooms/:id/timeline", a.handleTimeline)
	protected.GET("/rooms/:id/search", a.handleSearchMessages)

	return router
}
