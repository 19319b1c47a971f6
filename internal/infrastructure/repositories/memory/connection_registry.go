package memory

import (
	"fmt"
	"sync"
	"time"

	"roomrelay/internal/core/domain"
	"roomrelay/internal/core/ports"
)

type MemoryConnectionRegistry struct {
	connections map[domain.ConnectionID]*domain.Connection
	mu          sync.RWMutex
	now         func() time.Time
}

func NewMemoryConnectionRegistry() ports.ConnectionRegistry {
	return &MemoryConnectionRegistry{
		connections: make(map[domain.ConnectionID]*domain.Connection),
		now:         time.Now,
	}
}

func (r *MemoryConnectionRegistry) Register(id domain.ConnectionID) (domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connections[id]; exists {
		return domain.Connection{}, fmt.Errorf("%w: %s", domain.ErrConnectionExists, id)
	}

	conn := &domain.Connection{
		ID:          id,
		State:       domain.StateConnected,
		ConnectedAt: r.now(),
	}
	r.connections[id] = conn
	return *conn, nil
}

func (r *MemoryConnectionRegistry) Get(id domain.ConnectionID) (domain.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.connections[id]
	if !exists {
		return domain.Connection{}, fmt.Errorf("%w: %s", domain.ErrUnknownConnection, id)
	}
	return *conn, nil
}

func (r *MemoryConnectionRegistry) SetProfile(id domain.ConnectionID, roomID domain.RoomID, profile domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.connections[id]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrUnknownConnection, id)
	}

	conn.RoomID = roomID
	conn.Profile = profile
	conn.State = domain.StateJoined
	conn.JoinedAt = r.now()
	return nil
}

func (r *MemoryConnectionRegistry) ClearRoom(id domain.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.connections[id]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrUnknownConnection, id)
	}

	// Profile is kept: it belongs to the client, not to the room.
	conn.RoomID = ""
	conn.State = domain.StateConnected
	conn.JoinedAt = time.Time{}
	return nil
}

func (r *MemoryConnectionRegistry) Unregister(id domain.ConnectionID) (domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.connections[id]
	if !exists {
		return domain.Connection{}, fmt.Errorf("%w: %s", domain.ErrUnknownConnection, id)
	}

	delete(r.connections, id)
	conn.State = domain.StateClosed
	return *conn, nil
}

func (r *MemoryConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
