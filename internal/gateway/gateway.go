package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ic-768/multiplayer-beats/internal/room"
)

// Gateway binds websocket connections to room and player identity, relays
// client intents into the room registry and turn machine, and fans resulting
// events back out. All of its side effects are in-memory mutation followed by
// transport sends; nothing here does other I/O.
type Gateway struct {
	registry *room.Registry
	config   ConnConfig
	upgrader websocket.Upgrader
	clock    clockwork.Clock

	mu    sync.RWMutex
	pools map[string]map[*Conn]bool // room id -> member connections
	conns map[*Conn]bool            // every live connection, joined or not

	tickersMu sync.Mutex
	tickers   map[string]chan struct{} // room id -> ticker stop channel
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithClock substitutes the clock driving turn tickers. Tests pass a
// clockwork fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(g *Gateway) { g.clock = clock }
}

// New creates a gateway over the given registry.
func New(registry *room.Registry, config ConnConfig, opts ...Option) *Gateway {
	g := &Gateway{
		registry: registry,
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		clock:   clockwork.NewRealClock(),
		pools:   make(map[string]map[*Conn]bool),
		conns:   make(map[*Conn]bool),
		tickers: make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HandleConnection upgrades an HTTP request to a websocket and starts the
// connection's pumps. Room binding happens later, on join-room.
func (g *Gateway) HandleConnection(w http.ResponseWriter, r *http.Request) {
	sock, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	c := &Conn{
		ID:          uuid.NewString(),
		Send:        make(chan []byte, 256),
		sock:        sock,
		gw:          g,
		limiter:     rate.NewLimiter(g.config.RateLimit, g.config.RateBurst),
		connectedAt: time.Now(),
	}

	g.mu.Lock()
	g.conns[c] = true
	g.mu.Unlock()

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Msg("websocket connection established")
}

// dispatch decodes one inbound frame, runs the matching handler, and
// delivers whatever it produced. Unknown events and malformed frames are
// dropped; a single connection's bad input never propagates further.
func (g *Gateway) dispatch(c *Conn, raw []byte) {
	outs := g.handle(c, raw)
	g.deliver(c, outs)
}

// handle runs the handler table without touching the transport, so fan-out
// is testable without live sockets.
func (g *Gateway) handle(c *Conn, raw []byte) []Outbound {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", c.ID).
			Msg("dropping malformed frame")
		return nil
	}

	handler, ok := handlers[env.Event]
	if !ok {
		log.Warn().
			Str("connection_id", c.ID).
			Str("event", env.Event).
			Msg("dropping unknown event")
		return nil
	}
	return handler(g, c, env.Data)
}

// deliver sends each outbound message to its recipient set within the
// sender's room.
func (g *Gateway) deliver(c *Conn, outs []Outbound) {
	for _, out := range outs {
		switch out.Scope {
		case ScopeSender:
			g.sendTo(c, out.Event, out.Data)
		case ScopeOthers:
			g.broadcast(c.roomID, c, out.Event, out.Data)
		case ScopeAll:
			g.broadcast(c.roomID, nil, out.Event, out.Data)
		}
	}
}

// sendTo delivers one event to a single connection.
func (g *Gateway) sendTo(c *Conn, event string, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}
	g.push(c, frame)
}

// broadcast delivers one event to every member of a room, minus except when
// set. The member set is snapshotted under the read lock so sends never hold
// it.
func (g *Gateway) broadcast(roomID string, except *Conn, event string, payload any) {
	if roomID == "" {
		return
	}

	g.mu.RLock()
	var targets []*Conn
	for member := range g.pools[roomID] {
		if member != except {
			targets = append(targets, member)
		}
	}
	g.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	frame, err := encodeEvent(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}
	for _, member := range targets {
		g.push(member, frame)
	}
}

// push writes a frame to a connection's send buffer. Liveness is checked
// under the same lock handleDisconnect closes the channel under, so a frame
// can never land on a closed channel. A full buffer means the client is too
// slow or gone; the connection is dropped rather than letting it stall the
// room.
func (g *Gateway) push(c *Conn, frame []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.conns[c] {
		return
	}

	select {
	case c.Send <- frame:
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Msg("send buffer full, closing connection")
		if c.sock != nil {
			c.sock.Close()
		}
	}
}

// bindToRoom registers a joined connection in its room's pool.
func (g *Gateway) bindToRoom(c *Conn, roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pools[roomID] == nil {
		g.pools[roomID] = make(map[*Conn]bool)
	}
	g.pools[roomID][c] = true
}

// handleDisconnect runs exactly once per connection, when its read loop
// exits. There is no grace period: the player is removed immediately, the
// others are told, and an emptied room is destroyed along with its ticker.
func (g *Gateway) handleDisconnect(c *Conn) {
	g.mu.Lock()
	if !g.conns[c] {
		g.mu.Unlock()
		return
	}
	delete(g.conns, c)
	roomID := c.roomID
	if roomID != "" {
		if pool := g.pools[roomID]; pool != nil {
			delete(pool, c)
			if len(pool) == 0 {
				delete(g.pools, roomID)
			}
		}
	}
	close(c.Send)
	g.mu.Unlock()

	log.Info().
		Str("connection_id", c.ID).
		Str("room_id", roomID).
		Msg("connection closed")

	if roomID == "" {
		return
	}
	rm, ok := g.registry.Get(roomID)
	if !ok {
		return
	}

	player, remaining, err := rm.Leave(c.ID)
	if err != nil {
		// The room was already cleaned up from under this message; an
		// expected race, not a failure.
		return
	}

	// A join can race the leave and re-fill the room; removal only happens
	// when the registry still sees it empty. A survived room gets the
	// player-left notice as usual.
	if remaining == 0 && g.registry.RemoveIfEmpty(roomID) {
		g.stopTicker(roomID)
		return
	}

	g.broadcast(roomID, nil, EventPlayerLeft, PlayerLeftPayload{PlayerID: player.ID})
}

// Stats reports live connection and room counts.
func (g *Gateway) Stats() (connections, rooms int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns), len(g.pools)
}
