package gateway

import (
	"time"

	"github.com/rs/zerolog/log"
)

// The turn clock is server-authoritative: one goroutine per room decrements
// the active turn once per second and performs the timeout rotation itself.
// Clients get the full duration in turn-started and count down locally for
// display; the only timer event they ever receive is the turn-ended produced
// here when the clock runs out.

// armTicker starts the per-room turn ticker, replacing any ticker already
// running for the room. Two live tickers for one room would double-decrement
// the clock, so the old one is always stopped first.
func (g *Gateway) armTicker(roomID string) {
	g.tickersMu.Lock()
	defer g.tickersMu.Unlock()

	if stop, ok := g.tickers[roomID]; ok {
		close(stop)
	}
	stop := make(chan struct{})
	g.tickers[roomID] = stop

	go g.runTicker(roomID, stop)
}

// stopTicker cancels the room's ticker if one is running. Called on manual
// end, reset, and room destruction.
func (g *Gateway) stopTicker(roomID string) {
	g.tickersMu.Lock()
	defer g.tickersMu.Unlock()

	if stop, ok := g.tickers[roomID]; ok {
		close(stop)
		delete(g.tickers, roomID)
	}
}

// clearTicker removes the ticker entry after the goroutine finishes on its
// own, but only if it still owns the slot; a replacement may already be
// registered.
func (g *Gateway) clearTicker(roomID string, stop chan struct{}) {
	g.tickersMu.Lock()
	defer g.tickersMu.Unlock()

	if g.tickers[roomID] == stop {
		delete(g.tickers, roomID)
	}
}

// runTicker drives one room's turn clock until the turn ends or the ticker
// is cancelled. A panic in the tick path is contained here; one room's timer
// must never take the process down.
func (g *Gateway) runTicker(roomID string, stop chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("room_id", roomID).
				Msg("turn ticker panicked")
		}
	}()
	defer g.clearTicker(roomID, stop)

	ticker := g.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if g.tickRoom(roomID) {
				return
			}
		}
	}
}

// tickRoom applies one second to the room's turn and reports whether the
// ticker is done. The timeout rotation produces the same state and the same
// turn-ended broadcast as a manual end at that moment.
func (g *Gateway) tickRoom(roomID string) (done bool) {
	rm, ok := g.registry.Get(roomID)
	if !ok {
		return true
	}

	st, rotated := rm.Tick()
	if rotated {
		log.Info().
			Str("room_id", roomID).
			Int("current_player", st.CurrentPlayer).
			Int("round", st.Round).
			Msg("turn timed out")
		g.broadcast(roomID, nil, EventTurnEnded, turnPayload(st))
		return true
	}
	return !st.IsActive
}
