package domain

import "encoding/json"

// Inbound event names, as sent by browser clients.
const (
	EventJoinRoom        = "join room"
	EventSendingSignal   = "sending signal"
	EventReturningSignal = "returning signal"
	EventSendMessage     = "send message"
	EventLeaveRoom       = "leave room"

	// Transport lifecycle, never sent by clients.
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

// InboundEvent is one unit of work for the event router.
type InboundEvent interface {
	Name() string
	Origin() ConnectionID
}

type ConnectEvent struct {
	ConnectionID ConnectionID
}

func (e ConnectEvent) Name() string         { return EventConnect }
func (e ConnectEvent) Origin() ConnectionID { return e.ConnectionID }

type JoinRoomEvent struct {
	ConnectionID ConnectionID
	RoomID       RoomID
	Profile      Profile
}

func (e JoinRoomEvent) Name() string         { return EventJoinRoom }
func (e JoinRoomEvent) Origin() ConnectionID { return e.ConnectionID }

// SendingSignalEvent carries an offer or ICE candidate towards Target.
type SendingSignalEvent struct {
	ConnectionID ConnectionID
	Target       ConnectionID
	Signal       json.RawMessage
	Profile      Profile
}

func (e SendingSignalEvent) Name() string         { return EventSendingSignal }
func (e SendingSignalEvent) Origin() ConnectionID { return e.ConnectionID }

// ReturningSignalEvent carries an answer back to the caller named by Target.
type ReturningSignalEvent struct {
	ConnectionID ConnectionID
	Target       ConnectionID
	Signal       json.RawMessage
}

func (e ReturningSignalEvent) Name() string         { return EventReturningSignal }
func (e ReturningSignalEvent) Origin() ConnectionID { return e.ConnectionID }

type SendMessageEvent struct {
	ConnectionID ConnectionID
	RoomID       RoomID
	Message      json.RawMessage
}

func (e SendMessageEvent) Name() string         { return EventSendMessage }
func (e SendMessageEvent) Origin() ConnectionID { return e.ConnectionID }

type LeaveRoomEvent struct {
	ConnectionID ConnectionID
}

func (e LeaveRoomEvent) Name() string         { return EventLeaveRoom }
func (e LeaveRoomEvent) Origin() ConnectionID { return e.ConnectionID }

type DisconnectEvent struct {
	ConnectionID ConnectionID
}

func (e DisconnectEvent) Name() string         { return EventDisconnect }
func (e DisconnectEvent) Origin() ConnectionID { return e.ConnectionID }
