package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/astralgames/doomdeal/internal/registry"
)

// Server upgrades HTTP requests to websockets and hands them off to a new
// Connection. It holds no per-connection state itself.
type Server struct {
	registry *registry.Registry
	upgrader websocket.Upgrader
}

// NewServer builds a transport Server whose origin check accepts exactly
// the configured allowed origins.
func NewServer(reg *registry.Registry, allowedOrigins []string) *Server {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Server{
		registry: reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return allowed[origin]
			},
		},
	}
}

// ServeWs upgrades the request and starts the connection's pumps. The
// client must follow up with a JOIN frame carrying the token issued by the
// HTTP room-creation/join endpoints; nothing about this endpoint itself is
// room-scoped.
func (s *Server) ServeWs(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn := NewConnection(ws, s.registry)
	conn.Serve()
}
