package room

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ic-768/multiplayer-beats/internal/turn"
)

// Tempo bounds in beats per minute. Values outside are clamped, not
// rejected: tempo is a shared dial, not a gated action.
const (
	MinBPM     = 60
	MaxBPM     = 180
	DefaultBPM = 120
)

// MaxPlayers is the hard cap on room membership. A third join is rejected,
// never silently dropped into the map.
const MaxPlayers = 2

var (
	ErrRoomFull       = errors.New("room is full")
	ErrNameTaken      = errors.New("player name already taken")
	ErrPlayerNotFound = errors.New("player not in room")
)

// NotYourTurnError rejects a grid edit attempted by the non-current player
// while a turn is active. It carries both slots so the sender can be told
// whose turn it actually is.
type NotYourTurnError struct {
	CurrentPlayer int
	YourPlayer    int
}

func (e *NotYourTurnError) Error() string {
	return fmt.Sprintf("turn belongs to player %d, you are player %d", e.CurrentPlayer, e.YourPlayer)
}

// Player is one connected participant. SocketID belongs to the transport
// layer; ID is stable for the player's lifetime in the room. The slot number
// (1 or 2) is assigned in join order and never reassigned while the player
// stays connected.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SocketID string `json:"socketId"`
	Number   int    `json:"-"`
}

// Snapshot is the full room state sent to a joining connection.
type Snapshot struct {
	ID      string     `json:"id"`
	Steps   Grid       `json:"steps"`
	BPM     int        `json:"bpm"`
	Turn    turn.State `json:"turn"`
	Players []*Player  `json:"players"`
}

// Room is one isolated two-player session. All mutation goes through methods
// that hold the room mutex, so intents for one room are totally ordered and
// never interleave partial updates.
type Room struct {
	id string

	mu      sync.Mutex
	players map[string]*Player // keyed by socket id
	grid    Grid
	bpm     int
	turn    turn.State
}

func newRoom(id string) *Room {
	return &Room{
		id:      id,
		players: make(map[string]*Player),
		bpm:     DefaultBPM,
		turn:    turn.NewState(),
	}
}

// ID returns the room's identifier.
func (r *Room) ID() string { return r.id }

// Join admits a connection under the given display name and returns the new
// player plus a snapshot taken at the moment of admission. Names are unique
// per room, compared case-insensitively. The new player takes the lowest
// free slot.
func (r *Room) Join(name, socketID string) (*Player, Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) >= MaxPlayers {
		return nil, Snapshot{}, ErrRoomFull
	}
	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return nil, Snapshot{}, ErrNameTaken
		}
	}

	player := &Player{
		ID:       uuid.NewString(),
		Name:     name,
		SocketID: socketID,
		Number:   r.freeSlot(),
	}
	r.players[socketID] = player

	return player, r.snapshotLocked(), nil
}

// freeSlot returns the lowest slot not held by a connected player. Callers
// must hold the mutex.
func (r *Room) freeSlot() int {
	taken := make(map[int]bool, len(r.players))
	for _, p := range r.players {
		taken[p.Number] = true
	}
	for slot := 1; slot <= MaxPlayers; slot++ {
		if !taken[slot] {
			return slot
		}
	}
	return MaxPlayers // unreachable while the size invariant holds
}

// Leave removes the player bound to socketID and reports who left and how
// many players remain. Unknown socket ids are an expected race (message
// after cleanup) and report ErrPlayerNotFound.
func (r *Room) Leave(socketID string) (*Player, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[socketID]
	if !ok {
		return nil, len(r.players), ErrPlayerNotFound
	}
	delete(r.players, socketID)
	return player, len(r.players), nil
}

// Toggle flips a grid cell on behalf of the player bound to socketID. While
// a turn is active only the current player may edit; while idle either
// player may (the setup-phase allowance). Rejections are observable: the
// caller gets a NotYourTurnError naming both slots.
func (r *Room) Toggle(socketID string, instrument, step int) (*Player, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[socketID]
	if !ok {
		return nil, false, ErrPlayerNotFound
	}
	if r.turn.IsActive && player.Number != r.turn.CurrentPlayer {
		return player, false, &NotYourTurnError{
			CurrentPlayer: r.turn.CurrentPlayer,
			YourPlayer:    player.Number,
		}
	}

	active, err := r.grid.Toggle(instrument, step)
	if err != nil {
		return player, false, err
	}
	return player, active, nil
}

// SetBPM clamps the tempo into [MinBPM, MaxBPM], stores it, and returns the
// clamped value alongside the acting player.
func (r *Room) SetBPM(socketID string, bpm int) (*Player, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[socketID]
	if !ok {
		return nil, r.bpm, ErrPlayerNotFound
	}
	if bpm < MinBPM {
		bpm = MinBPM
	}
	if bpm > MaxBPM {
		bpm = MaxBPM
	}
	r.bpm = bpm
	return player, bpm, nil
}

// StartTurn arms the current player's turn with a full clock and returns the
// resulting turn state.
func (r *Room) StartTurn() turn.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turn = r.turn.Start()
	return r.turn
}

// EndTurn rotates the turn regardless of whether it was started and returns
// the resulting turn state.
func (r *Room) EndTurn() turn.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turn = r.turn.End()
	return r.turn
}

// Tick consumes one second of an active turn. rotated reports that the clock
// ran out and the turn rotated, producing a state identical to an explicit
// EndTurn at that moment.
func (r *Room) Tick() (turn.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, rotated := r.turn.Tick()
	r.turn = next
	return next, rotated
}

// Reset restores the initial turn state and clears the grid. Tempo is left
// as the players set it. The returned snapshot reflects the reset room.
func (r *Room) Reset() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grid.Clear()
	r.turn = turn.NewState()
	return r.snapshotLocked()
}

// ClearPattern wipes the grid without touching the turn state.
func (r *Room) ClearPattern() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grid.Clear()
}

// Snapshot returns a consistent copy of the room state.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// PlayerCount returns the number of connected players.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) snapshotLocked() Snapshot {
	players := make([]*Player, 0, len(r.players))
	for slot := 1; slot <= MaxPlayers; slot++ {
		for _, p := range r.players {
			if p.Number == slot {
				cp := *p
				players = append(players, &cp)
			}
		}
	}
	return Snapshot{
		ID:      r.id,
		Steps:   r.grid,
		BPM:     r.bpm,
		Turn:    r.turn,
		Players: players,
	}
}
