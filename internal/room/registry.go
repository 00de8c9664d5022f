package room

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry owns every live room in the process. Rooms are created lazily on
// first join and removed once the last connected player leaves; nothing
// survives a restart. The raw map is never exposed to callers.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the room for id, creating it with an empty grid and a
// fresh turn state if it does not exist. Idempotent by id.
func (reg *Registry) GetOrCreate(id string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if r, ok := reg.rooms[id]; ok {
		return r
	}
	r := newRoom(id)
	reg.rooms[id] = r
	log.Info().Str("room_id", id).Msg("room created")
	return r
}

// Join admits a player to the room for id, creating the room first when it
// does not exist. Create-or-get and join happen under one registry lock so a
// concurrent last-player removal can never delete the room between the two
// steps and strand an admitted player.
func (reg *Registry) Join(id, name, socketID string) (*Player, Snapshot, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[id]
	if !ok {
		r = newRoom(id)
		reg.rooms[id] = r
		log.Info().Str("room_id", id).Msg("room created")
	}
	return r.Join(name, socketID)
}

// Get returns the room for id if it exists.
func (reg *Registry) Get(id string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[id]
	return r, ok
}

// RemoveIfEmpty deletes the room only when it has no players, checked under
// the same lock Join takes. Reports whether the room was removed.
func (reg *Registry) RemoveIfEmpty(id string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[id]
	if !ok {
		return false
	}
	if r.PlayerCount() > 0 {
		return false
	}
	delete(reg.rooms, id)
	log.Info().Str("room_id", id).Msg("room removed")
	return true
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
