// Package httpapi implements the thin HTTP surface of §4.7: room creation,
// room join, and a health check. All three are handlers over a shared
// *registry.Registry; the websocket upgrade route lives in internal/transport
// but is wired into the same router by Router.
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/astralgames/doomdeal/internal/codec"
	"github.com/astralgames/doomdeal/internal/logging"
	"github.com/astralgames/doomdeal/internal/ratelimit"
	"github.com/astralgames/doomdeal/internal/registry"
	"github.com/astralgames/doomdeal/internal/transport"
	"github.com/astralgames/doomdeal/internal/types"
)

type createRoomRequest struct {
	HostName  string `json:"hostName"`
	AvatarID  int    `json:"avatarId"`
	SessionID string `json:"sessionId"`
}

type createRoomResponse struct {
	RoomID   string `json:"roomId"`
	JoinCode string `json:"joinCode"`
	Token    string `json:"token"`
}

type joinRoomRequest struct {
	JoinCode  string `json:"joinCode"`
	Name      string `json:"name"`
	AvatarID  int    `json:"avatarId"`
	SessionID string `json:"sessionId"`
}

type joinRoomResponse struct {
	RoomID string `json:"roomId"`
	Token  string `json:"token"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handlers wires the registry into gin handler funcs.
type Handlers struct {
	registry *registry.Registry
}

func NewHandlers(reg *registry.Registry) *Handlers {
	return &Handlers{registry: reg}
}

func (h *Handlers) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, types.ErrInvalidRequest, "malformed request body")
		return
	}
	if !codec.IsPrintableName(req.HostName) {
		writeError(c, http.StatusBadRequest, types.ErrInvalidRequest, "hostName must be 1-20 printable characters")
		return
	}

	roomID, joinCode, token, err := h.registry.CreateRoom(req.HostName, req.AvatarID, types.SessionID(req.SessionID))
	if err != nil {
		writeCodedError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createRoomResponse{
		RoomID:   string(roomID),
		JoinCode: string(joinCode),
		Token:    string(token),
	})
}

func (h *Handlers) JoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, types.ErrInvalidRequest, "malformed request body")
		return
	}
	if !codec.IsPrintableName(req.Name) {
		writeError(c, http.StatusBadRequest, types.ErrInvalidRequest, "name must be 1-20 printable characters")
		return
	}

	roomID, token, _, err := h.registry.JoinRoom(req.JoinCode, req.Name, req.AvatarID, types.SessionID(req.SessionID))
	if err != nil {
		writeCodedError(c, err)
		return
	}

	c.JSON(http.StatusOK, joinRoomResponse{RoomID: string(roomID), Token: string(token)})
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func writeCodedError(c *gin.Context, err error) {
	coded, ok := err.(*types.CodedError)
	if !ok {
		writeError(c, http.StatusInternalServerError, types.ErrInvalidRequest, err.Error())
		return
	}
	status := http.StatusBadRequest
	switch coded.Code {
	case types.ErrRoomNotFound:
		status = http.StatusNotFound
	case types.ErrRoomFull, types.ErrGameInProgress, types.ErrNameTaken, types.ErrSessionAlreadyInRoom:
		status = http.StatusConflict
	}
	c.JSON(status, errorResponse{Code: string(coded.Code), Message: coded.Message})
}

func writeError(c *gin.Context, status int, code types.ErrorCode, message string) {
	c.JSON(status, errorResponse{Code: string(code), Message: message})
}

// NewRouter assembles the full gin router: CORS, recovery, tracing,
// rate-limited REST endpoints, the websocket upgrade route, health, and
// Prometheus metrics.
func NewRouter(reg *registry.Registry, ts *transport.Server, limiter *ratelimit.Limiter, allowedOrigins []string, serviceName string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(requestLogger())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = allowedOrigins
	corsCfg.AllowCredentials = true
	router.Use(cors.New(corsCfg))

	h := NewHandlers(reg)

	rooms := router.Group("/rooms")
	rooms.Use(limiter.RoomsMiddleware())
	rooms.POST("", h.CreateRoom)
	rooms.POST("/join", h.JoinRoom)

	router.GET("/ws", func(c *gin.Context) {
		if !limiter.AllowWebSocket(c) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many connection attempts"})
			return
		}
		ts.ServeWs(c)
	})

	router.GET("/healthz", Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logging.Info(c.Request.Context(), "request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()))
	}
}
