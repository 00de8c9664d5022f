package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ic-768/multiplayer-beats/internal/turn"
)

func TestJoin(t *testing.T) {
	t.Run("assigns slots in join order", func(t *testing.T) {
		r := newRoom("ABC123")

		ann, snap, err := r.Join("Ann", "sock-1")
		require.NoError(t, err)
		assert.Equal(t, 1, ann.Number)
		assert.Equal(t, "Ann", ann.Name)
		assert.NotEmpty(t, ann.ID)
		assert.Equal(t, "sock-1", ann.SocketID)
		assert.Len(t, snap.Players, 1)
		assert.Equal(t, Grid{}, snap.Steps)

		ben, snap, err := r.Join("Ben", "sock-2")
		require.NoError(t, err)
		assert.Equal(t, 2, ben.Number)
		assert.Len(t, snap.Players, 2)
	})

	t.Run("third join is rejected without mutating players", func(t *testing.T) {
		r := newRoom("ABC123")
		mustJoin(t, r, "Ann", "sock-1")
		mustJoin(t, r, "Ben", "sock-2")

		_, _, err := r.Join("Cat", "sock-3")

		require.ErrorIs(t, err, ErrRoomFull)
		assert.Equal(t, 2, r.PlayerCount())
	})

	t.Run("duplicate name is rejected case-insensitively", func(t *testing.T) {
		r := newRoom("ABC123")
		mustJoin(t, r, "Ann", "sock-1")

		_, _, err := r.Join("ANN", "sock-2")

		require.ErrorIs(t, err, ErrNameTaken)
		assert.Equal(t, 1, r.PlayerCount())
	})

	t.Run("a freed slot goes to the next joiner", func(t *testing.T) {
		r := newRoom("ABC123")
		mustJoin(t, r, "Ann", "sock-1")
		mustJoin(t, r, "Ben", "sock-2")

		_, remaining, err := r.Leave("sock-1")
		require.NoError(t, err)
		assert.Equal(t, 1, remaining)

		cat, _, err := r.Join("Cat", "sock-3")
		require.NoError(t, err)
		assert.Equal(t, 1, cat.Number)
	})
}

func TestLeave(t *testing.T) {
	r := newRoom("ABC123")
	ann := mustJoin(t, r, "Ann", "sock-1")

	player, remaining, err := r.Leave("sock-1")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, player.ID)
	assert.Equal(t, 0, remaining)

	_, _, err = r.Leave("sock-1")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestToggle(t *testing.T) {
	t.Run("cell parity follows toggle count", func(t *testing.T) {
		r := newRoom("ABC123")
		mustJoin(t, r, "Ann", "sock-1")

		for i := 1; i <= 5; i++ {
			_, active, err := r.Toggle("sock-1", 2, 7)
			require.NoError(t, err)
			assert.Equal(t, i%2 == 1, active)
		}
	})

	t.Run("either player may edit while idle", func(t *testing.T) {
		r := newRoom("ABC123")
		mustJoin(t, r, "Ann", "sock-1")
		mustJoin(t, r, "Ben", "sock-2")

		_, active, err := r.Toggle("sock-2", 0, 0)
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("non-current player is rejected during an active turn", func(t *testing.T) {
		r := newRoom("ABC123")
		mustJoin(t, r, "Ann", "sock-1")
		mustJoin(t, r, "Ben", "sock-2")
		r.StartTurn()

		_, _, err := r.Toggle("sock-2", 0, 0)

		var turnErr *NotYourTurnError
		require.ErrorAs(t, err, &turnErr)
		assert.Equal(t, 1, turnErr.CurrentPlayer)
		assert.Equal(t, 2, turnErr.YourPlayer)
		assert.Equal(t, Grid{}, r.Snapshot().Steps)
	})

	t.Run("current player may edit during their turn", func(t *testing.T) {
		r := newRoom("ABC123")
		mustJoin(t, r, "Ann", "sock-1")
		mustJoin(t, r, "Ben", "sock-2")
		r.StartTurn()

		_, active, err := r.Toggle("sock-1", 0, 0)
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("out of range indices never touch the grid", func(t *testing.T) {
		r := newRoom("ABC123")
		mustJoin(t, r, "Ann", "sock-1")

		for _, coords := range [][2]int{{-1, 0}, {0, -1}, {InstrumentCount, 0}, {0, StepCount}, {99, 99}} {
			_, _, err := r.Toggle("sock-1", coords[0], coords[1])
			require.ErrorIs(t, err, ErrOutOfRange)
		}
		assert.Equal(t, Grid{}, r.Snapshot().Steps)
	})

	t.Run("unknown socket is reported", func(t *testing.T) {
		r := newRoom("ABC123")
		_, _, err := r.Toggle("nope", 0, 0)
		assert.ErrorIs(t, err, ErrPlayerNotFound)
	})
}

func TestSetBPM(t *testing.T) {
	r := newRoom("ABC123")
	mustJoin(t, r, "Ann", "sock-1")

	tests := []struct {
		in   int
		want int
	}{
		{120, 120},
		{59, 60},
		{-10, 60},
		{181, 180},
		{1000, 180},
		{60, 60},
		{180, 180},
	}
	for _, tt := range tests {
		_, got, err := r.SetBPM("sock-1", tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "bpm %d", tt.in)
	}
}

func TestReset(t *testing.T) {
	r := newRoom("ABC123")
	mustJoin(t, r, "Ann", "sock-1")
	mustJoin(t, r, "Ben", "sock-2")

	// Dirty everything the reset must restore.
	r.Toggle("sock-1", 1, 1)
	r.SetBPM("sock-1", 170)
	r.StartTurn()
	r.EndTurn()
	r.EndTurn() // player 2 ends, round advances
	r.StartTurn()

	snap := r.Reset()

	assert.Equal(t, Grid{}, snap.Steps)
	assert.Equal(t, turn.NewState(), snap.Turn)
	// Tempo is shared configuration, not game progress; it survives.
	assert.Equal(t, 170, snap.BPM)
}

func TestSnapshotOrdersPlayersBySlot(t *testing.T) {
	r := newRoom("ABC123")
	mustJoin(t, r, "Ann", "sock-1")
	mustJoin(t, r, "Ben", "sock-2")

	snap := r.Snapshot()

	require.Len(t, snap.Players, 2)
	assert.Equal(t, "Ann", snap.Players[0].Name)
	assert.Equal(t, "Ben", snap.Players[1].Name)
}

func mustJoin(t *testing.T, r *Room, name, socketID string) *Player {
	t.Helper()
	player, _, err := r.Join(name, socketID)
	require.NoError(t, err)
	return player
}
