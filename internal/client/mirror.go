package client

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ic-768/multiplayer-beats/internal/gateway"
	"github.com/ic-768/multiplayer-beats/internal/room"
)

// mirror is the local copy of room state. The server is the single source of
// truth: every inbound notification overwrites the corresponding slice of
// state unconditionally, with no conflict resolution. The player's own
// toggles and tempo changes are applied optimistically, which holds together
// because the server never echoes a sender's own mutation back.
type mirror struct {
	mu           sync.RWMutex
	joined       bool
	playerNumber int
	state        room.Snapshot
}

// seed installs the authoritative snapshot from the join response.
func (m *mirror) seed(playerNumber int, snapshot room.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joined = true
	m.playerNumber = playerNumber
	m.state = snapshot
}

// snapshot returns a copy of the mirrored state.
func (m *mirror) snapshot() room.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := m.state
	cp.Players = make([]*room.Player, len(m.state.Players))
	for i, p := range m.state.Players {
		pc := *p
		cp.Players[i] = &pc
	}
	return cp
}

// toggleLocal flips a cell optimistically and returns the new value.
func (m *mirror) toggleLocal(instrument, step int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Steps.Toggle(instrument, step)
}

// setBPMLocal stores the tempo optimistically, clamped the same way the
// server clamps it.
func (m *mirror) setBPMLocal(bpm int) int {
	if bpm < room.MinBPM {
		bpm = room.MinBPM
	}
	if bpm > room.MaxBPM {
		bpm = room.MaxBPM
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.BPM = bpm
	return bpm
}

// apply merges one server notification into the mirror. Unknown events are
// ignored; a newer server may emit things an older client does not know.
func (m *mirror) apply(event string, data json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch event {
	case gateway.EventPlayerJoined:
		var p gateway.PlayerJoinedPayload
		if err := json.Unmarshal(data, &p); err != nil || p.Player == nil {
			return
		}
		p.Player.Number = p.PlayerNumber
		m.state.Players = append(m.state.Players, p.Player)

	case gateway.EventPlayerLeft:
		var p gateway.PlayerLeftPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		players := m.state.Players[:0]
		for _, member := range m.state.Players {
			if member.ID != p.PlayerID {
				players = append(players, member)
			}
		}
		m.state.Players = players

	case gateway.EventStepToggled:
		var p gateway.StepToggledPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		if p.InstrumentIndex < 0 || p.InstrumentIndex >= room.InstrumentCount ||
			p.StepIndex < 0 || p.StepIndex >= room.StepCount {
			return
		}
		m.state.Steps[p.InstrumentIndex][p.StepIndex] = p.Active

	case gateway.EventBPMChanged:
		var p gateway.BPMChangedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		m.state.BPM = p.BPM

	case gateway.EventTurnStarted, gateway.EventTurnEnded:
		var p gateway.TurnPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		m.state.Turn.CurrentPlayer = p.CurrentPlayer
		m.state.Turn.TimeRemaining = p.TimeRemaining
		m.state.Turn.Round = p.Round
		m.state.Turn.IsActive = event == gateway.EventTurnStarted

	case gateway.EventGameReset:
		var p gateway.GameResetPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		m.state.Steps = p.Steps
		m.state.BPM = p.BPM
		m.state.Turn = p.Turn

	case gateway.EventPatternCleared:
		m.state.Steps.Clear()

	case gateway.EventNotYourTurn:
		// Informational rejection; local state is not rolled back here.
		// Callers can re-sync from the last turn-started/turn-ended.
		log.Warn().Msg("edit rejected: not your turn")

	default:
		log.Debug().Str("event", event).Msg("ignoring unknown server event")
	}
}
