package room

import "errors"

// Grid dimensions are fixed: four instruments, sixteen steps.
const (
	InstrumentCount = 4
	StepCount       = 16
)

// ErrOutOfRange is returned when a toggle targets a cell outside the grid.
// Indices arrive from remote input, so they are rejected before touching the
// matrix rather than clamped.
var ErrOutOfRange = errors.New("step index out of range")

// Grid is the shared boolean note matrix. Last write wins; no history is
// kept.
type Grid [InstrumentCount][StepCount]bool

// Toggle flips the cell at (instrument, step) and returns its new value.
func (g *Grid) Toggle(instrument, step int) (bool, error) {
	if instrument < 0 || instrument >= InstrumentCount || step < 0 || step >= StepCount {
		return false, ErrOutOfRange
	}
	g[instrument][step] = !g[instrument][step]
	return g[instrument][step], nil
}

// Clear resets every cell to inactive.
func (g *Grid) Clear() {
	*g = Grid{}
}
