package domain

import (
	"encoding/json"
	"time"
)

type ConnectionID string
type RoomID string

// Profile is display metadata supplied by the client. The relay never
// looks inside it.
type Profile = json.RawMessage

type ConnectionState string

const (
	StateConnected ConnectionState = "connected"
	StateJoined    ConnectionState = "joined"
	StateClosed    ConnectionState = "closed"
)

type Connection struct {
	ID          ConnectionID
	RoomID      RoomID
	Profile     Profile
	State       ConnectionState
	ConnectedAt time.Time
	JoinedAt    time.Time
}

func (c Connection) IsJoined() bool {
	return c.State == StateJoined && c.RoomID != ""
}
