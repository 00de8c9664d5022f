package gateway

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ConnConfig holds transport tuning for websocket connections.
type ConnConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool

	// Intent rate limiting per connection; a flood of toggles from one
	// client must not starve the room mutex.
	RateLimit rate.Limit
	RateBurst int
}

// DefaultConnConfig returns the transport defaults.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
		RateLimit: 20,
		RateBurst: 40,
	}
}

// Conn is one client connection. Room and player identity are bound on a
// successful join and cleared only by disconnect; a dropped connection is a
// permanent leave.
type Conn struct {
	ID   string
	Send chan []byte

	sock    *websocket.Conn
	gw      *Gateway
	limiter *rate.Limiter

	connectedAt time.Time

	// Set by a successful join-room; read only on the connection's own
	// read loop, so no locking is needed.
	roomID       string
	playerID     string
	playerNumber int
}

// writePump drains the Send channel onto the socket and keeps the connection
// alive with pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.gw.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.sock.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.sock.SetWriteDeadline(time.Now().Add(c.gw.config.WriteTimeout))
			if !ok {
				c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(c.gw.config.WriteTimeout))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump feeds inbound frames into the gateway dispatcher. When the read
// loop exits for any reason the connection is treated as a permanent leave.
func (c *Conn) readPump() {
	defer func() {
		c.gw.handleDisconnect(c)
		c.sock.Close()
	}()

	c.sock.SetReadLimit(c.gw.config.MaxMessageSize)
	c.sock.SetReadDeadline(time.Now().Add(c.gw.config.ReadTimeout))
	c.sock.SetPongHandler(func(string) error {
		c.sock.SetReadDeadline(time.Now().Add(c.gw.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close error")
			}
			break
		}

		if !c.limiter.Allow() {
			c.gw.sendTo(c, EventRateLimited, struct{}{})
			continue
		}

		c.gw.dispatch(c, message)
		c.sock.SetReadDeadline(time.Now().Add(c.gw.config.ReadTimeout))
	}
}
