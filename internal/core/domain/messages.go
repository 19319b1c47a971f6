package domain

import "encoding/json"

// Outbound event names.
const (
	EventConnected               = "connected"
	EventAllUsers                = "all users"
	EventUserJoined              = "user joined"
	EventReceivingSignal         = "receiving signal"
	EventReceivingReturnedSignal = "receiving returned signal"
	EventMessage                 = "message"
	EventUserLeft                = "user left"
	EventError                   = "error"
)

// OutboundMessage is a single frame addressed to one connection.
type OutboundMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type Greeting struct {
	ID ConnectionID `json:"id"`
}

// RosterEntry describes one room member. It is used both for the roster
// sent to a joiner and for the join notification sent to existing members.
type RosterEntry struct {
	UserID ConnectionID `json:"userId"`
	User   Profile      `json:"user"`
}

type ForwardedSignal struct {
	Signal   json.RawMessage `json:"signal"`
	CallerID ConnectionID    `json:"callerID"`
	User     Profile         `json:"user,omitempty"`
}

type ReturnedSignal struct {
	Signal json.RawMessage `json:"signal"`
	ID     ConnectionID    `json:"id"`
}

type ErrorNotice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

func NewErrorMessage(event string, err error) OutboundMessage {
	return OutboundMessage{
		Event: EventError,
		Data: ErrorNotice{
			Code:    string(CodeOf(err)),
			Message: err.Error(),
			Event:   event,
		},
	}
}
