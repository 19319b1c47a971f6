package signal

import (
	"bytes"
	"encoding/json"
	"fmt"

	"roomrelay/internal/core/domain"
	"roomrelay/pkg/utils"
	"roomrelay/pkg/validation"
)

// Frame is the envelope of every WebSocket text message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinRoomPayload struct {
	RoomID string          `json:"roomID"`
	User   json.RawMessage `json:"user"`
}

type sendingSignalPayload struct {
	UserToSignal string          `json:"userToSignal"`
	CallerID     string          `json:"callerID"`
	Signal       json.RawMessage `json:"signal"`
	User         json.RawMessage `json:"user"`
}

type returningSignalPayload struct {
	Signal   json.RawMessage `json:"signal"`
	CallerID string          `json:"callerID"`
}

type sendMessagePayload struct {
	RoomID  string          `json:"roomID"`
	Message json.RawMessage `json:"message"`
}

var jsonNull = []byte("null")

// DecodeFrame turns one inbound frame into a domain event. The returned
// event name is set whenever the envelope could be read, so rejections can
// be attributed to it.
func DecodeFrame(id domain.ConnectionID, raw []byte) (string, domain.InboundEvent, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return "", nil, fmt.Errorf("%w: invalid frame: %v", domain.ErrMalformedEvent, err)
	}
	if frame.Event == "" {
		return "", nil, fmt.Errorf("%w: event is required", domain.ErrMalformedEvent)
	}

	event, err := decodeData(id, frame)
	return frame.Event, event, err
}

func decodeData(id domain.ConnectionID, frame Frame) (domain.InboundEvent, error) {
	switch frame.Event {
	case domain.EventJoinRoom:
		var p joinRoomPayload
		if err := unmarshalData(frame, &p); err != nil {
			return nil, err
		}
		if err := validation.ValidateRoomID(p.RoomID); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
		}
		if err := validation.ValidateProfile(p.User); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
		}
		return domain.JoinRoomEvent{
			ConnectionID: id,
			RoomID:       domain.RoomID(p.RoomID),
			Profile:      present(p.User),
		}, nil

	case domain.EventSendingSignal:
		var p sendingSignalPayload
		if err := unmarshalData(frame, &p); err != nil {
			return nil, err
		}
		if p.UserToSignal == "" || present(p.Signal) == nil {
			return nil, fmt.Errorf("%w: userToSignal and signal are required", domain.ErrMalformedEvent)
		}
		if err := validation.ValidateConnectionID(p.UserToSignal); err != nil {
			return nil, fmt.Errorf("%w: userToSignal: %v", domain.ErrMalformedEvent, err)
		}
		if err := validation.ValidateProfile(p.User); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
		}
		// callerID is not trusted; the router stamps the sender's own id.
		return domain.SendingSignalEvent{
			ConnectionID: id,
			Target:       domain.ConnectionID(p.UserToSignal),
			Signal:       p.Signal,
			Profile:      present(p.User),
		}, nil

	case domain.EventReturningSignal:
		var p returningSignalPayload
		if err := unmarshalData(frame, &p); err != nil {
			return nil, err
		}
		if p.CallerID == "" || present(p.Signal) == nil {
			return nil, fmt.Errorf("%w: callerID and signal are required", domain.ErrMalformedEvent)
		}
		if err := validation.ValidateConnectionID(p.CallerID); err != nil {
			return nil, fmt.Errorf("%w: callerID: %v", domain.ErrMalformedEvent, err)
		}
		return domain.ReturningSignalEvent{
			ConnectionID: id,
			Target:       domain.ConnectionID(p.CallerID),
			Signal:       p.Signal,
		}, nil

	case domain.EventSendMessage:
		var p sendMessagePayload
		if err := unmarshalData(frame, &p); err != nil {
			return nil, err
		}
		if present(p.Message) == nil {
			return nil, fmt.Errorf("%w: message is required", domain.ErrMalformedEvent)
		}
		return domain.SendMessageEvent{
			ConnectionID: id,
			RoomID:       domain.RoomID(p.RoomID),
			Message:      p.Message,
		}, nil

	case domain.EventLeaveRoom:
		return domain.LeaveRoomEvent{ConnectionID: id}, nil

	default:
		return nil, fmt.Errorf("%w: unknown event %q", domain.ErrMalformedEvent, utils.TruncateString(frame.Event, 64))
	}
}

func unmarshalData(frame Frame, v interface{}) error {
	if present(frame.Data) == nil {
		return fmt.Errorf("%w: data is required for %q", domain.ErrMalformedEvent, frame.Event)
	}
	if err := json.Unmarshal(frame.Data, v); err != nil {
		return fmt.Errorf("%w: invalid data for %q: %v", domain.ErrMalformedEvent, frame.Event, err)
	}
	return nil
}

// present maps an absent or JSON null value to nil.
func present(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return nil
	}
	return raw
}
