// Package transport owns the websocket half of the message channel: one
// Connection per client socket, its outbound queue, liveness heartbeat,
// and the binding from an authenticated JOIN frame to a room. Connection
// implements types.Conn structurally so the room package never imports
// this one.
package transport

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/astralgames/doomdeal/internal/codec"
	"github.com/astralgames/doomdeal/internal/logging"
	"github.com/astralgames/doomdeal/internal/metrics"
	"github.com/astralgames/doomdeal/internal/registry"
	"github.com/astralgames/doomdeal/internal/room"
	"github.com/astralgames/doomdeal/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 8192
	outboundQueueSize = 32
)

// Connection wraps one client's websocket and the (room, player) binding it
// acquires once a JOIN frame with a valid token arrives. Before that, room
// and playerID are zero.
type Connection struct {
	ws       *websocket.Conn
	registry *registry.Registry

	send chan []byte

	room     *room.Room
	playerID types.PlayerID

	closeOnce chan struct{}
}

// NewConnection wraps an already-upgraded websocket connection.
func NewConnection(ws *websocket.Conn, reg *registry.Registry) *Connection {
	return &Connection{
		ws:        ws,
		registry:  reg,
		send:      make(chan []byte, outboundQueueSize),
		closeOnce: make(chan struct{}),
	}
}

// PlayerID implements types.Conn. It is zero until BindSocket has
// succeeded, which only happens after JOIN is processed by the room.
func (c *Connection) PlayerID() types.PlayerID { return c.playerID }

// Send implements types.Conn. A full outbound queue means a slow consumer;
// per §4.6 the socket is closed rather than letting the engine block.
func (c *Connection) Send(data []byte) {
	select {
	case c.send <- data:
	default:
		logging.Warn(nil, "outbound queue overflow, closing connection", zap.String("player_id", string(c.playerID)))
		c.Close()
	}
}

// Close implements types.Conn. Idempotent.
func (c *Connection) Close() {
	select {
	case <-c.closeOnce:
		return
	default:
		close(c.closeOnce)
	}
	c.ws.Close()
}

// Serve starts both pumps in their own goroutines and returns immediately;
// the connection's lifetime is no longer tied to the HTTP handler goroutine
// that accepted it.
func (c *Connection) Serve() {
	metrics.IncConnection()
	go c.writePump()
	go c.readPump()
}

func (c *Connection) readPump() {
	defer func() {
		if c.room != nil {
			c.room.HandleSocketClosed(c)
		}
		c.Close()
		metrics.DecConnection()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			metrics.WebsocketEvents.WithLabelValues("in", "closed").Inc()
			return
		}

		intent, err := codec.Decode(data)
		if err != nil {
			metrics.WebsocketEvents.WithLabelValues("in", "rejected").Inc()
			c.sendDirect(errorEventFor(err))
			continue
		}
		metrics.WebsocketEvents.WithLabelValues("in", "accepted").Inc()

		if c.room == nil {
			if intent.Op != codec.OpJoin {
				c.sendDirect(codec.NewError(string(types.ErrNotInRoom), "must JOIN before sending other intents"))
				continue
			}
			r, ok := c.registry.ResolveToken(types.Token(intent.Token))
			if !ok {
				c.sendDirect(codec.NewError(string(types.ErrInvalidToken), "unknown or expired token"))
				continue
			}
			c.room = r
		}

		c.room.HandleIntent(c, intent)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				metrics.WebsocketEvents.WithLabelValues("out", "error").Inc()
				return
			}
			metrics.WebsocketEvents.WithLabelValues("out", "sent").Inc()
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closeOnce:
			return
		}
	}
}

// sendDirect encodes and writes an event before the connection has a room
// bound (invalid tokens, malformed frames) — it cannot go through a room's
// Broadcaster because there isn't one yet.
func (c *Connection) sendDirect(event any) {
	data, err := codec.Encode(event)
	if err != nil {
		return
	}
	c.Send(data)
}

func errorEventFor(err error) codec.ErrorEvent {
	if coded, ok := err.(*types.CodedError); ok {
		return codec.NewError(string(coded.Code), coded.Message)
	}
	return codec.NewError(string(types.ErrInvalidMessage), err.Error())
}
