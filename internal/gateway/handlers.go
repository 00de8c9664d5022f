package gateway

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/ic-768/multiplayer-beats/internal/room"
)

// Scope names a recipient set within the sender's room.
type Scope int

const (
	// ScopeSender delivers to the sending connection only.
	ScopeSender Scope = iota
	// ScopeOthers delivers to every other connection in the room. Used
	// when the sender already holds the authoritative state from its own
	// optimistic update.
	ScopeOthers
	// ScopeAll delivers to every connection in the room, sender included.
	// Used when the server computed something the sender could not know.
	ScopeAll
)

// Outbound is one message produced by a handler: who gets it, the event
// name, and its payload.
type Outbound struct {
	Scope Scope
	Event string
	Data  any
}

// handlerFunc mutates room state for one client intent and returns the
// messages to fan out. Handlers run on the connection's read loop; per-room
// ordering comes from the room mutex.
type handlerFunc func(g *Gateway, c *Conn, data json.RawMessage) []Outbound

var handlers = map[string]handlerFunc{
	EventJoinRoom:     handleJoinRoom,
	EventToggleStep:   handleToggleStep,
	EventSetBPM:       handleSetBPM,
	EventStartTurn:    handleStartTurn,
	EventEndTurn:      handleEndTurn,
	EventResetGame:    handleResetGame,
	EventClearPattern: handleClearPattern,
}

func handleJoinRoom(g *Gateway, c *Conn, data json.RawMessage) []Outbound {
	if c.roomID != "" {
		log.Warn().
			Str("connection_id", c.ID).
			Str("room_id", c.roomID).
			Msg("join-room from a connection already in a room")
		return nil
	}

	var p JoinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.PlayerName == "" {
		log.Warn().Str("connection_id", c.ID).Msg("dropping malformed join-room")
		return nil
	}

	player, snapshot, err := g.registry.Join(p.RoomID, p.PlayerName, c.ID)
	switch {
	case errors.Is(err, room.ErrRoomFull):
		return []Outbound{{ScopeSender, EventRoomFull, struct{}{}}}
	case errors.Is(err, room.ErrNameTaken):
		return []Outbound{{ScopeSender, EventJoinRejected, JoinRejectedPayload{Reason: "name-taken"}}}
	case err != nil:
		log.Error().Err(err).Str("room_id", p.RoomID).Msg("join failed")
		return nil
	}

	c.roomID = p.RoomID
	c.playerID = player.ID
	c.playerNumber = player.Number
	g.bindToRoom(c, p.RoomID)

	log.Info().
		Str("room_id", p.RoomID).
		Str("player_id", player.ID).
		Int("player_number", player.Number).
		Msg("player joined room")

	return []Outbound{
		{ScopeSender, EventJoinedRoom, JoinedRoomPayload{PlayerNumber: player.Number, Room: snapshot}},
		{ScopeOthers, EventPlayerJoined, PlayerJoinedPayload{PlayerNumber: player.Number, Player: player}},
	}
}

func handleToggleStep(g *Gateway, c *Conn, data json.RawMessage) []Outbound {
	rm, ok := g.senderRoom(c)
	if !ok {
		return nil
	}

	var p ToggleStepPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Str("connection_id", c.ID).Msg("dropping malformed toggle-step")
		return nil
	}

	player, active, err := rm.Toggle(c.ID, p.InstrumentIndex, p.StepIndex)
	var turnErr *room.NotYourTurnError
	switch {
	case errors.As(err, &turnErr):
		return []Outbound{{ScopeSender, EventNotYourTurn, NotYourTurnPayload{
			CurrentPlayer: turnErr.CurrentPlayer,
			YourPlayer:    turnErr.YourPlayer,
		}}}
	case errors.Is(err, room.ErrOutOfRange):
		log.Warn().
			Str("connection_id", c.ID).
			Int("instrument", p.InstrumentIndex).
			Int("step", p.StepIndex).
			Msg("toggle-step out of range")
		return nil
	case err != nil:
		return nil
	}

	return []Outbound{{ScopeOthers, EventStepToggled, StepToggledPayload{
		InstrumentIndex: p.InstrumentIndex,
		StepIndex:       p.StepIndex,
		Active:          active,
		PlayerID:        player.ID,
	}}}
}

func handleSetBPM(g *Gateway, c *Conn, data json.RawMessage) []Outbound {
	rm, ok := g.senderRoom(c)
	if !ok {
		return nil
	}

	var p SetBPMPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Str("connection_id", c.ID).Msg("dropping malformed set-bpm")
		return nil
	}

	player, bpm, err := rm.SetBPM(c.ID, p.BPM)
	if err != nil {
		return nil
	}

	return []Outbound{{ScopeOthers, EventBPMChanged, BPMChangedPayload{
		BPM:      bpm,
		PlayerID: player.ID,
	}}}
}

func handleStartTurn(g *Gateway, c *Conn, _ json.RawMessage) []Outbound {
	rm, ok := g.senderRoom(c)
	if !ok {
		return nil
	}

	st := rm.StartTurn()
	g.armTicker(c.roomID)

	log.Info().
		Str("room_id", c.roomID).
		Int("current_player", st.CurrentPlayer).
		Int("round", st.Round).
		Msg("turn started")

	return []Outbound{{ScopeAll, EventTurnStarted, turnPayload(st)}}
}

func handleEndTurn(g *Gateway, c *Conn, _ json.RawMessage) []Outbound {
	rm, ok := g.senderRoom(c)
	if !ok {
		return nil
	}

	g.stopTicker(c.roomID)
	st := rm.EndTurn()

	log.Info().
		Str("room_id", c.roomID).
		Int("current_player", st.CurrentPlayer).
		Int("round", st.Round).
		Msg("turn ended")

	return []Outbound{{ScopeAll, EventTurnEnded, turnPayload(st)}}
}

func handleResetGame(g *Gateway, c *Conn, _ json.RawMessage) []Outbound {
	rm, ok := g.senderRoom(c)
	if !ok {
		return nil
	}

	g.stopTicker(c.roomID)
	snapshot := rm.Reset()

	log.Info().Str("room_id", c.roomID).Msg("game reset")

	return []Outbound{{ScopeAll, EventGameReset, GameResetPayload{
		Steps: snapshot.Steps,
		BPM:   snapshot.BPM,
		Turn:  snapshot.Turn,
	}}}
}

func handleClearPattern(g *Gateway, c *Conn, _ json.RawMessage) []Outbound {
	rm, ok := g.senderRoom(c)
	if !ok {
		return nil
	}

	rm.ClearPattern()
	return []Outbound{{ScopeAll, EventPatternCleared, struct{}{}}}
}

// senderRoom resolves the sender's bound room. A missing binding or a room
// that has since been cleaned up is an expected race: the intent is silently
// dropped.
func (g *Gateway) senderRoom(c *Conn) (*room.Room, bool) {
	if c.roomID == "" {
		return nil, false
	}
	rm, ok := g.registry.Get(c.roomID)
	if !ok {
		log.Debug().
			Str("connection_id", c.ID).
			Str("room_id", c.roomID).
			Msg("intent for a room that no longer exists")
		return nil, false
	}
	return rm, true
}
