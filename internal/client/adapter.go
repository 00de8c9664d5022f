// Package client is the connection-side counterpart of the gateway: it keeps
// a local mirror of room state in sync with server notifications and applies
// the player's own edits optimistically before the server confirms anything.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ic-768/multiplayer-beats/internal/gateway"
	"github.com/ic-768/multiplayer-beats/internal/room"
)

var (
	ErrRoomFull    = errors.New("room is full")
	ErrNameTaken   = errors.New("player name already taken")
	ErrNotJoined   = errors.New("not joined to a room")
	ErrClosed      = errors.New("connection closed")
	ErrJoinPending = errors.New("join already in progress")
)

// Adapter is one client connection with its synchronized local mirror.
type Adapter struct {
	mirror mirror

	conn   *websocket.Conn
	sendMu sync.Mutex

	roomID string

	joinMu sync.Mutex
	joinCh chan error

	done     chan struct{}
	closeErr error

	// Notify, when set before Join, receives every server event after it
	// has been merged into the mirror. UI layers hang their redraws and
	// rejection banners off this.
	Notify func(event string, data json.RawMessage)
}

// Dial connects to a server's /ws endpoint.
func Dial(ctx context.Context, url string) (*Adapter, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	a := &Adapter{
		conn: conn,
		done: make(chan struct{}),
	}
	go a.readLoop()
	return a, nil
}

// Join requests a seat in roomID under the given display name and blocks
// until the server admits or rejects it. The mirror is seeded from the
// joined-room snapshot before Join returns.
func (a *Adapter) Join(ctx context.Context, roomID, playerName string) error {
	a.joinMu.Lock()
	if a.joinCh != nil {
		a.joinMu.Unlock()
		return ErrJoinPending
	}
	ch := make(chan error, 1)
	a.joinCh = ch
	a.joinMu.Unlock()

	defer func() {
		a.joinMu.Lock()
		a.joinCh = nil
		a.joinMu.Unlock()
	}()

	if err := a.send(gateway.EventJoinRoom, gateway.JoinRoomPayload{
		RoomID:     roomID,
		PlayerName: playerName,
	}); err != nil {
		return err
	}

	select {
	case err := <-ch:
		if err == nil {
			a.roomID = roomID
		}
		return err
	case <-a.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ToggleStep flips a cell locally and tells the server. No acknowledgment is
// awaited; the server never echoes the sender's own toggle back.
func (a *Adapter) ToggleStep(instrument, step int) error {
	if a.roomID == "" {
		return ErrNotJoined
	}
	if _, err := a.mirror.toggleLocal(instrument, step); err != nil {
		return err
	}
	return a.send(gateway.EventToggleStep, gateway.ToggleStepPayload{
		RoomID:          a.roomID,
		InstrumentIndex: instrument,
		StepIndex:       step,
	})
}

// SetBPM stores the tempo locally and tells the server.
func (a *Adapter) SetBPM(bpm int) error {
	if a.roomID == "" {
		return ErrNotJoined
	}
	clamped := a.mirror.setBPMLocal(bpm)
	return a.send(gateway.EventSetBPM, gateway.SetBPMPayload{
		RoomID: a.roomID,
		BPM:    clamped,
	})
}

// StartTurn asks the server to start the current player's turn. The local
// turn state changes only when the authoritative turn-started arrives; the
// server, not us, computes the duration reset.
func (a *Adapter) StartTurn() error { return a.sendRoomIntent(gateway.EventStartTurn) }

// EndTurn asks the server to rotate the turn.
func (a *Adapter) EndTurn() error { return a.sendRoomIntent(gateway.EventEndTurn) }

// ResetGame asks the server to reset turn state and clear the grid.
func (a *Adapter) ResetGame() error { return a.sendRoomIntent(gateway.EventResetGame) }

// ClearPattern asks the server to wipe the grid.
func (a *Adapter) ClearPattern() error { return a.sendRoomIntent(gateway.EventClearPattern) }

func (a *Adapter) sendRoomIntent(event string) error {
	if a.roomID == "" {
		return ErrNotJoined
	}
	return a.send(event, gateway.RoomPayload{RoomID: a.roomID})
}

// Snapshot returns a copy of the mirrored room state.
func (a *Adapter) Snapshot() room.Snapshot { return a.mirror.snapshot() }

// PlayerNumber returns the slot assigned at join time.
func (a *Adapter) PlayerNumber() int {
	a.mirror.mu.RLock()
	defer a.mirror.mu.RUnlock()
	return a.mirror.playerNumber
}

// Done is closed when the connection is gone. There is no reconnection: the
// session is over and the UI should say so.
func (a *Adapter) Done() <-chan struct{} { return a.done }

// Err reports why the connection ended. Valid once Done is closed.
func (a *Adapter) Err() error { return a.closeErr }

// Close tears the connection down.
func (a *Adapter) Close() error {
	return a.conn.Close()
}

func (a *Adapter) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(gateway.Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	a.sendMu.Lock()
	defer a.sendMu.Unlock()
	select {
	case <-a.done:
		return ErrClosed
	default:
	}
	return a.conn.WriteMessage(websocket.TextMessage, frame)
}

func (a *Adapter) readLoop() {
	defer close(a.done)

	for {
		_, frame, err := a.conn.ReadMessage()
		if err != nil {
			a.closeErr = err
			log.Info().Err(err).Msg("server connection lost")
			a.failPendingJoin(ErrClosed)
			return
		}

		var env gateway.Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			log.Warn().Err(err).Msg("dropping malformed server frame")
			continue
		}
		a.handleEvent(env.Event, env.Data)
	}
}

func (a *Adapter) handleEvent(event string, data json.RawMessage) {
	switch event {
	case gateway.EventJoinedRoom:
		var p gateway.JoinedRoomPayload
		if err := json.Unmarshal(data, &p); err != nil {
			a.failPendingJoin(err)
			return
		}
		a.mirror.seed(p.PlayerNumber, p.Room)
		a.resolvePendingJoin(nil)

	case gateway.EventRoomFull:
		a.resolvePendingJoin(ErrRoomFull)

	case gateway.EventJoinRejected:
		a.resolvePendingJoin(ErrNameTaken)

	default:
		a.mirror.apply(event, data)
	}

	if a.Notify != nil {
		a.Notify(event, data)
	}
}

func (a *Adapter) resolvePendingJoin(err error) {
	a.joinMu.Lock()
	defer a.joinMu.Unlock()
	if a.joinCh != nil {
		a.joinCh <- err
		a.joinCh = nil
	}
}

func (a *Adapter) failPendingJoin(err error) {
	a.resolvePendingJoin(err)
}
