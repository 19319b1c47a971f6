package ports

import (
	"roomrelay/internal/core/domain"
)

// ConnectionRegistry maps live connection ids to their room and profile.
type ConnectionRegistry interface {
	Register(id domain.ConnectionID) (domain.Connection, error)
	Get(id domain.ConnectionID) (domain.Connection, error)
	SetProfile(id domain.ConnectionID, roomID domain.RoomID, profile domain.Profile) error
	ClearRoom(id domain.ConnectionID) error
	Unregister(id domain.ConnectionID) (domain.Connection, error)
	Count() int
}

// RoomDirectory maps room ids to their members in join order.
type RoomDirectory interface {
	// Join appends id to the room and returns the members that were
	// already present, oldest first.
	Join(roomID domain.RoomID, id domain.ConnectionID) []domain.ConnectionID
	// Leave removes id from the room. left is false when id was not a
	// member, in which case nothing changes.
	Leave(roomID domain.RoomID, id domain.ConnectionID) (remaining []domain.ConnectionID, left bool)
	MembersOf(roomID domain.RoomID) []domain.ConnectionID
	Rooms() []domain.Room
}
