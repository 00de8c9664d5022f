package turn

// Duration is the length of a single turn in seconds.
const Duration = 60

// State describes whose turn it is and how much of it is left. It is a plain
// value: transitions return a new State instead of mutating, so the same
// logic can be driven by a ticker or by a manual end without divergence.
type State struct {
	CurrentPlayer int  `json:"currentPlayer"`
	TimeRemaining int  `json:"timeRemaining"`
	IsActive      bool `json:"isActive"`
	Round         int  `json:"round"`
}

// NewState returns the state a fresh room starts with: player 1 on deck,
// full clock, nothing running, round 1.
func NewState() State {
	return State{
		CurrentPlayer: 1,
		TimeRemaining: Duration,
		IsActive:      false,
		Round:         1,
	}
}

// Start activates the current player's turn with a full clock. Calling it
// while already active is an idempotent reissue that re-arms the full
// duration.
func (s State) Start() State {
	s.IsActive = true
	s.TimeRemaining = Duration
	return s
}

// End rotates the turn to the other player and deactivates it. The round
// counter advances only when player 2's turn ends, so one round equals both
// players having gone once. Ending an idle turn is accepted and rotates the
// same way.
func (s State) End() State {
	if s.CurrentPlayer == 2 {
		s.Round++
	}
	s.CurrentPlayer = other(s.CurrentPlayer)
	s.IsActive = false
	s.TimeRemaining = Duration
	return s
}

// Tick consumes one second of an active turn. When the clock hits zero the
// turn rotates exactly as End would; rotated reports whether that happened.
// Ticking an idle state is a no-op.
func (s State) Tick() (next State, rotated bool) {
	if !s.IsActive {
		return s, false
	}
	s.TimeRemaining--
	if s.TimeRemaining <= 0 {
		return s.End(), true
	}
	return s, false
}

func other(player int) int {
	if player == 1 {
		return 2
	}
	return 1
}
