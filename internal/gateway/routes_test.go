package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ic-768/multiplayer-beats/internal/room"
)

func TestHandleStats(t *testing.T) {
	g := newTestGateway(t)
	ann := newTestConn(g)
	g.dispatch(ann, frame(t, EventJoinRoom, JoinRoomPayload{RoomID: "ABC123", PlayerName: "Ann"}))

	mux := http.NewServeMux()
	g.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body["total_connections"])
	assert.Equal(t, 1, body["active_rooms"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ws/stats", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleRoomState(t *testing.T) {
	g := newTestGateway(t)
	ann := newTestConn(g)
	g.dispatch(ann, frame(t, EventJoinRoom, JoinRoomPayload{RoomID: "ABC123", PlayerName: "Ann"}))
	g.dispatch(ann, frame(t, EventToggleStep, ToggleStepPayload{RoomID: "ABC123", InstrumentIndex: 1, StepIndex: 5}))

	mux := http.NewServeMux()
	g.RegisterRoutes(mux)

	t.Run("returns the current snapshot", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/ABC123/state", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var snapshot room.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
		assert.Equal(t, "ABC123", snapshot.ID)
		assert.True(t, snapshot.Steps[1][5])
		assert.Equal(t, room.DefaultBPM, snapshot.BPM)
		require.Len(t, snapshot.Players, 1)
		assert.Equal(t, "Ann", snapshot.Players[0].Name)
	})

	t.Run("unknown room is a 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/NOPE/state", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed paths are a 404", func(t *testing.T) {
		for _, path := range []string{
			"/api/rooms//state",
			"/api/rooms/ABC123",
			"/api/rooms/ABC123/extra/state",
		} {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusNotFound, rec.Code, path)
		}
	})
}

func TestExtractRoomIDFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/rooms/ABC123/state", "ABC123"},
		{"/api/rooms//state", ""},
		{"/api/rooms/state", ""},
		{"/api/rooms/a/b/state", ""},
		{"/other/ABC123/state", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractRoomIDFromPath(tt.path), tt.path)
	}
}
