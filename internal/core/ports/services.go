package ports

import (
	"context"
	"time"

	"roomrelay/internal/core/domain"
)

// Transport delivers frames to a single connection. Send must not block:
// when the connection is gone or its queue is full it returns an error.
type Transport interface {
	Send(id domain.ConnectionID, msg domain.OutboundMessage) error
}

// EventSink accepts inbound events for serialized processing.
type EventSink interface {
	Submit(ctx context.Context, event domain.InboundEvent) error
}

// RoomObserver is told about membership changes after they happen.
// Implementations must return quickly.
type RoomObserver interface {
	PeerJoined(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID, roomSize int)
	PeerLeft(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID, roomSize int)
}

type DispatchRecorder interface {
	RecordEvent(event string, outcome string, duration time.Duration)
}

type RoomReader interface {
	MembersOf(roomID domain.RoomID) []domain.ConnectionID
	Rooms() []domain.Room
}

// TransportRecorder receives connection lifecycle and delivery counters.
type TransportRecorder interface {
	ConnectionOpened()
	ConnectionClosed()
	FrameDropped(event string, reason string)
}
