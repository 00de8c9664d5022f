package gateway

import (
	"encoding/json"

	"github.com/ic-768/multiplayer-beats/internal/room"
	"github.com/ic-768/multiplayer-beats/internal/turn"
)

// Client → server event names. These are a stable wire contract.
const (
	EventJoinRoom     = "join-room"
	EventToggleStep   = "toggle-step"
	EventSetBPM       = "set-bpm"
	EventStartTurn    = "start-turn"
	EventEndTurn      = "end-turn"
	EventResetGame    = "reset-game"
	EventClearPattern = "clear-pattern"
)

// Server → client event names.
const (
	EventJoinedRoom     = "joined-room"
	EventJoinRejected   = "join-rejected"
	EventRoomFull       = "room-full"
	EventPlayerJoined   = "player-joined"
	EventPlayerLeft     = "player-left"
	EventStepToggled    = "step-toggled"
	EventNotYourTurn    = "not-your-turn"
	EventBPMChanged     = "bpm-changed"
	EventTurnStarted    = "turn-started"
	EventTurnEnded      = "turn-ended"
	EventGameReset      = "game-reset"
	EventPatternCleared = "pattern-cleared"
	EventRateLimited    = "rate-limited"
)

// Envelope is the frame every message travels in, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client → server payloads.

type JoinRoomPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

type ToggleStepPayload struct {
	RoomID          string `json:"roomId"`
	InstrumentIndex int    `json:"instrumentIndex"`
	StepIndex       int    `json:"stepIndex"`
}

type SetBPMPayload struct {
	RoomID string `json:"roomId"`
	BPM    int    `json:"bpm"`
}

// RoomPayload covers the intents that carry only the room id.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// Server → client payloads.

type JoinedRoomPayload struct {
	PlayerNumber int           `json:"playerNumber"`
	Room         room.Snapshot `json:"room"`
}

type JoinRejectedPayload struct {
	Reason string `json:"reason"`
}

type PlayerJoinedPayload struct {
	PlayerNumber int          `json:"playerNumber"`
	Player       *room.Player `json:"player"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

type StepToggledPayload struct {
	InstrumentIndex int    `json:"instrumentIndex"`
	StepIndex       int    `json:"stepIndex"`
	Active          bool   `json:"active"`
	PlayerID        string `json:"playerId"`
}

type NotYourTurnPayload struct {
	CurrentPlayer int `json:"currentPlayer"`
	YourPlayer    int `json:"yourPlayer"`
}

type BPMChangedPayload struct {
	BPM      int    `json:"bpm"`
	PlayerID string `json:"playerId"`
}

// TurnPayload is shared by turn-started and turn-ended: the server computes
// the duration reset and round increment, so the full resulting state goes to
// everyone, sender included.
type TurnPayload struct {
	CurrentPlayer int `json:"currentPlayer"`
	TimeRemaining int `json:"timeRemaining"`
	Round         int `json:"round"`
}

type GameResetPayload struct {
	Steps room.Grid  `json:"steps"`
	BPM   int        `json:"bpm"`
	Turn  turn.State `json:"turn"`
}

func turnPayload(st turn.State) TurnPayload {
	return TurnPayload{
		CurrentPlayer: st.CurrentPlayer,
		TimeRemaining: st.TimeRemaining,
		Round:         st.Round,
	}
}

// encodeEvent wraps a payload in an Envelope and marshals the frame.
func encodeEvent(event string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
