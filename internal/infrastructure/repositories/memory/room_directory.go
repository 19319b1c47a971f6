package memory

import (
	"sort"
	"sync"

	"roomrelay/internal/core/domain"
	"roomrelay/internal/core/ports"
)

type MemoryRoomDirectory struct {
	rooms map[domain.RoomID][]domain.ConnectionID
	mu    sync.RWMutex
}

func NewMemoryRoomDirectory() ports.RoomDirectory {
	return &MemoryRoomDirectory{
		rooms: make(map[domain.RoomID][]domain.ConnectionID),
	}
}

func (d *MemoryRoomDirectory) Join(roomID domain.RoomID, id domain.ConnectionID) []domain.ConnectionID {
	d.mu.Lock()
	defer d.mu.Unlock()

	members := d.rooms[roomID]
	existing := make([]domain.ConnectionID, 0, len(members))
	joined := false
	for _, member := range members {
		if member == id {
			joined = true
			continue
		}
		existing = append(existing, member)
	}

	if !joined {
		d.rooms[roomID] = append(members, id)
	}
	return existing
}

func (d *MemoryRoomDirectory) Leave(roomID domain.RoomID, id domain.ConnectionID) ([]domain.ConnectionID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, exists := d.rooms[roomID]
	if !exists {
		return nil, false
	}

	index := -1
	for i, member := range members {
		if member == id {
			index = i
			break
		}
	}
	if index < 0 {
		return copyMembers(members), false
	}

	remaining := make([]domain.ConnectionID, 0, len(members)-1)
	remaining = append(remaining, members[:index]...)
	remaining = append(remaining, members[index+1:]...)

	if len(remaining) == 0 {
		delete(d.rooms, roomID)
		return remaining, true
	}

	d.rooms[roomID] = remaining
	return copyMembers(remaining), true
}

func (d *MemoryRoomDirectory) MembersOf(roomID domain.RoomID) []domain.ConnectionID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyMembers(d.rooms[roomID])
}

// Rooms returns a snapshot of every non-empty room, sorted by id.
func (d *MemoryRoomDirectory) Rooms() []domain.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rooms := make([]domain.Room, 0, len(d.rooms))
	for id, members := range d.rooms {
		rooms = append(rooms, domain.Room{ID: id, Members: copyMembers(members)})
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].ID < rooms[j].ID
	})
	return rooms
}

func copyMembers(members []domain.ConnectionID) []domain.ConnectionID {
	out := make([]domain.ConnectionID, len(members))
	copy(out, members)
	return out
}
