package memory

import (
	"fmt"
	"sync"
	"testing"

	"roomrelay/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRoomDirectory_JoinReturnsExistingInOrder(t *testing.T) {
	directory := NewMemoryRoomDirectory()

	assert.Empty(t, directory.Join("r1", "a"))
	assert.Equal(t, []domain.ConnectionID{"a"}, directory.Join("r1", "b"))
	assert.Equal(t, []domain.ConnectionID{"a", "b"}, directory.Join("r1", "c"))
	assert.Equal(t, []domain.ConnectionID{"a", "b", "c"}, directory.MembersOf("r1"))
}

func TestMemoryRoomDirectory_JoinTwiceDoesNotDuplicate(t *testing.T) {
	directory := NewMemoryRoomDirectory()
	directory.Join("r1", "a")
	directory.Join("r1", "b")

	existing := directory.Join("r1", "a")

	assert.Equal(t, []domain.ConnectionID{"b"}, existing)
	assert.Equal(t, []domain.ConnectionID{"a", "b"}, directory.MembersOf("r1"))
}

func TestMemoryRoomDirectory_Leave(t *testing.T) {
	directory := NewMemoryRoomDirectory()
	directory.Join("r1", "a")
	directory.Join("r1", "b")
	directory.Join("r1", "c")

	remaining, left := directory.Leave("r1", "b")
	assert.True(t, left)
	assert.Equal(t, []domain.ConnectionID{"a", "c"}, remaining)
	assert.Equal(t, []domain.ConnectionID{"a", "c"}, directory.MembersOf("r1"))
}

func TestMemoryRoomDirectory_LeaveIsIdempotent(t *testing.T) {
	directory := NewMemoryRoomDirectory()
	directory.Join("r1", "a")
	directory.Join("r1", "b")

	_, left := directory.Leave("r1", "b")
	assert.True(t, left)

	remaining, left := directory.Leave("r1", "b")
	assert.False(t, left)
	assert.Equal(t, []domain.ConnectionID{"a"}, remaining)

	remaining, left = directory.Leave("unknown", "a")
	assert.False(t, left)
	assert.Empty(t, remaining)
}

func TestMemoryRoomDirectory_EmptyRoomIsDeleted(t *testing.T) {
	directory := NewMemoryRoomDirectory()
	directory.Join("r1", "a")

	remaining, left := directory.Leave("r1", "a")
	assert.True(t, left)
	assert.Empty(t, remaining)
	assert.Empty(t, directory.MembersOf("r1"))
	assert.Empty(t, directory.Rooms())

	// A later join behaves as the first one.
	assert.Empty(t, directory.Join("r1", "b"))
}

func TestMemoryRoomDirectory_Rooms(t *testing.T) {
	directory := NewMemoryRoomDirectory()
	directory.Join("r2", "c")
	directory.Join("r1", "a")
	directory.Join("r1", "b")

	rooms := directory.Rooms()
	assert.Equal(t, []domain.Room{
		{ID: "r1", Members: []domain.ConnectionID{"a", "b"}},
		{ID: "r2", Members: []domain.ConnectionID{"c"}},
	}, rooms)
}

func TestMemoryRoomDirectory_SnapshotsAreCopies(t *testing.T) {
	directory := NewMemoryRoomDirectory()
	directory.Join("r1", "a")

	members := directory.MembersOf("r1")
	members[0] = "tampered"

	assert.Equal(t, []domain.ConnectionID{"a"}, directory.MembersOf("r1"))
}

func TestMemoryRoomDirectory_ConcurrentJoins(t *testing.T) {
	directory := NewMemoryRoomDirectory()

	const joiners = 50
	seen := make([][]domain.ConnectionID, joiners)

	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = directory.Join("r1", domain.ConnectionID(fmt.Sprintf("c%d", i)))
		}(i)
	}
	wg.Wait()

	members := directory.MembersOf("r1")
	assert.Len(t, members, joiners)

	// Every joiner saw a prefix of the final order.
	for _, existing := range seen {
		assert.Equal(t, members[:len(existing)], existing)
	}
}
