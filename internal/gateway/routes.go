package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// RegisterRoutes registers the websocket endpoint and the read-only HTTP
// surface with an HTTP mux.
func (g *Gateway) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", g.HandleConnection)
	mux.HandleFunc("/ws/stats", g.handleStats)
	mux.HandleFunc("/api/rooms/", g.handleRoomState)
	log.Info().Msg("gateway routes registered")
}

// handleStats reports live connection and room counts.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	connections, rooms := g.Stats()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{
		"total_connections": connections,
		"active_rooms":      rooms,
	}); err != nil {
		log.Error().Err(err).Msg("failed to encode stats response")
	}
}

// handleRoomState serves GET /api/rooms/{id}/state: a point-in-time snapshot
// of one room, for debugging and client re-sync after a missed message.
func (g *Gateway) handleRoomState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	roomID := extractRoomIDFromPath(r.URL.Path)
	if roomID == "" {
		http.NotFound(w, r)
		return
	}

	rm, ok := g.registry.Get(roomID)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rm.Snapshot()); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to encode room state response")
	}
}

// extractRoomIDFromPath extracts the room id from a path like
// /api/rooms/{id}/state.
func extractRoomIDFromPath(path string) string {
	const prefix = "/api/rooms/"
	const suffix = "/state"

	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(path, prefix)
	if !strings.HasSuffix(rest, suffix) {
		return ""
	}
	id := strings.TrimSuffix(rest, suffix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
