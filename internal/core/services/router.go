package services

import (
	"context"
	"encoding/json"
	"fmt"

	"roomrelay/internal/core/domain"
	"roomrelay/internal/core/ports"

	"go.uber.org/zap"
)

// Router is the room membership and signal routing state machine.
//
// Router is not safe for concurrent use. All events must reach it through a
// single goroutine, normally a Dispatcher.
type Router struct {
	registry  ports.ConnectionRegistry
	directory ports.RoomDirectory
	transport ports.Transport
	observers []ports.RoomObserver
	logger    *zap.SugaredLogger
}

type RouterOption func(*Router)

func WithObservers(observers ...ports.RoomObserver) RouterOption {
	return func(r *Router) {
		r.observers = append(r.observers, observers...)
	}
}

func WithLogger(logger *zap.SugaredLogger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

func NewRouter(registry ports.ConnectionRegistry, directory ports.RoomDirectory, transport ports.Transport, opts ...RouterOption) *Router {
	r := &Router{
		registry:  registry,
		directory: directory,
		transport: transport,
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispatch applies one inbound event. Errors are classified with the
// domain sentinels; none of them leaves the router in an inconsistent state.
func (r *Router) Dispatch(ctx context.Context, event domain.InboundEvent) error {
	switch ev := event.(type) {
	case domain.ConnectEvent:
		return r.Connect(ctx, ev.ConnectionID)
	case domain.JoinRoomEvent:
		return r.Join(ctx, ev.ConnectionID, ev.RoomID, ev.Profile)
	case domain.SendingSignalEvent:
		return r.RelaySignal(ctx, ev)
	case domain.ReturningSignalEvent:
		return r.ReturnSignal(ctx, ev)
	case domain.SendMessageEvent:
		return r.Chat(ctx, ev.ConnectionID, ev.RoomID, ev.Message)
	case domain.LeaveRoomEvent:
		return r.Leave(ctx, ev.ConnectionID)
	case domain.DisconnectEvent:
		return r.Disconnect(ctx, ev.ConnectionID)
	default:
		return fmt.Errorf("%w: unsupported event %T", domain.ErrMalformedEvent, event)
	}
}

func (r *Router) Connect(ctx context.Context, id domain.ConnectionID) error {
	if _, err := r.registry.Register(id); err != nil {
		return err
	}

	r.send(id, domain.OutboundMessage{
		Event: domain.EventConnected,
		Data:  domain.Greeting{ID: id},
	})
	return nil
}

// Join puts the connection into roomID. A connection that is already in
// another room leaves it first, so it is never a member of two rooms.
// Joining the current room again keeps the membership: the profile is
// updated, the roster is sent again and the other members are told about
// the new profile, but nobody sees the connection leave.
func (r *Router) Join(ctx context.Context, id domain.ConnectionID, roomID domain.RoomID, profile domain.Profile) error {
	if roomID == "" {
		return fmt.Errorf("%w: roomID is required", domain.ErrMalformedEvent)
	}

	conn, err := r.registry.Get(id)
	if err != nil {
		return err
	}

	rejoin := conn.IsJoined() && conn.RoomID == roomID
	if conn.IsJoined() && !rejoin {
		r.logger.Debugw("implicit leave before join",
			"connection_id", id,
			"from_room", conn.RoomID,
			"to_room", roomID,
		)
		r.leaveRoom(ctx, conn)
	}

	if err := r.registry.SetProfile(id, roomID, profile); err != nil {
		return err
	}
	existing := r.directory.Join(roomID, id)

	roster := make([]domain.RosterEntry, 0, len(existing))
	for _, memberID := range existing {
		member, err := r.registry.Get(memberID)
		if err != nil {
			// A member without a registry entry is stale; it is not reported.
			r.logger.Warnw("room member missing from registry",
				"room_id", roomID,
				"connection_id", memberID,
			)
			continue
		}
		roster = append(roster, domain.RosterEntry{UserID: memberID, User: member.Profile})
	}

	r.send(id, domain.OutboundMessage{Event: domain.EventAllUsers, Data: roster})

	joined := domain.OutboundMessage{
		Event: domain.EventUserJoined,
		Data:  domain.RosterEntry{UserID: id, User: profile},
	}
	for _, entry := range roster {
		r.send(entry.UserID, joined)
	}

	if rejoin {
		r.logger.Debugw("connection rejoined room", "connection_id", id, "room_id", roomID)
		return nil
	}

	r.logger.Infow("connection joined room",
		"connection_id", id,
		"room_id", roomID,
		"room_size", len(existing)+1,
	)

	for _, observer := range r.observers {
		observer.PeerJoined(ctx, roomID, id, len(existing)+1)
	}
	return nil
}

// RelaySignal forwards an offer or candidate to the target. The caller id
// is always the sender's own id, whatever the client claimed.
func (r *Router) RelaySignal(ctx context.Context, ev domain.SendingSignalEvent) error {
	if ev.Target == "" || len(ev.Signal) == 0 {
		return fmt.Errorf("%w: userToSignal and signal are required", domain.ErrMalformedEvent)
	}

	sender, err := r.registry.Get(ev.ConnectionID)
	if err != nil {
		return err
	}
	if err := r.checkTarget(ev.Target); err != nil {
		return err
	}

	profile := ev.Profile
	if len(profile) == 0 {
		profile = sender.Profile
	}

	r.logger.Debugw("routing signal",
		"from", ev.ConnectionID,
		"to", ev.Target,
		"signal_bytes", len(ev.Signal),
	)

	r.send(ev.Target, domain.OutboundMessage{
		Event: domain.EventReceivingSignal,
		Data: domain.ForwardedSignal{
			Signal:   ev.Signal,
			CallerID: ev.ConnectionID,
			User:     profile,
		},
	})
	return nil
}

func (r *Router) ReturnSignal(ctx context.Context, ev domain.ReturningSignalEvent) error {
	if ev.Target == "" || len(ev.Signal) == 0 {
		return fmt.Errorf("%w: callerID and signal are required", domain.ErrMalformedEvent)
	}

	if _, err := r.registry.Get(ev.ConnectionID); err != nil {
		return err
	}
	if err := r.checkTarget(ev.Target); err != nil {
		return err
	}

	r.logger.Debugw("routing returned signal",
		"from", ev.ConnectionID,
		"to", ev.Target,
		"signal_bytes", len(ev.Signal),
	)

	r.send(ev.Target, domain.OutboundMessage{
		Event: domain.EventReceivingReturnedSignal,
		Data: domain.ReturnedSignal{
			Signal: ev.Signal,
			ID:     ev.ConnectionID,
		},
	})
	return nil
}

// Chat relays message to every other member of the sender's room. An empty
// roomID means the sender's current room.
func (r *Router) Chat(ctx context.Context, id domain.ConnectionID, roomID domain.RoomID, message json.RawMessage) error {
	if len(message) == 0 {
		return fmt.Errorf("%w: message is required", domain.ErrMalformedEvent)
	}

	sender, err := r.registry.Get(id)
	if err != nil {
		return err
	}
	if !sender.IsJoined() || (roomID != "" && roomID != sender.RoomID) {
		return fmt.Errorf("%w: %s", domain.ErrNotInRoom, roomID)
	}

	msg := domain.OutboundMessage{Event: domain.EventMessage, Data: message}
	for _, member := range r.directory.MembersOf(sender.RoomID) {
		if member == id {
			continue
		}
		r.send(member, msg)
	}
	return nil
}

// Leave takes the connection out of its room without closing it. Leaving
// while not in a room does nothing.
func (r *Router) Leave(ctx context.Context, id domain.ConnectionID) error {
	conn, err := r.registry.Get(id)
	if err != nil {
		return err
	}
	if !conn.IsJoined() {
		return nil
	}

	r.leaveRoom(ctx, conn)
	return r.registry.ClearRoom(id)
}

// Disconnect removes the connection from its room, then from the registry.
// A second disconnect for the same id reports ErrUnknownConnection and
// notifies nobody.
func (r *Router) Disconnect(ctx context.Context, id domain.ConnectionID) error {
	conn, err := r.registry.Get(id)
	if err != nil {
		return err
	}
	if conn.IsJoined() {
		r.leaveRoom(ctx, conn)
	}

	if _, err := r.registry.Unregister(id); err != nil {
		return err
	}

	r.logger.Debugw("connection closed", "connection_id", id)
	return nil
}

// MembersOf exposes the directory snapshot for diagnostics.
func (r *Router) MembersOf(roomID domain.RoomID) []domain.ConnectionID {
	return r.directory.MembersOf(roomID)
}

func (r *Router) leaveRoom(ctx context.Context, conn domain.Connection) {
	remaining, left := r.directory.Leave(conn.RoomID, conn.ID)
	if !left {
		return
	}

	notice := domain.OutboundMessage{Event: domain.EventUserLeft, Data: conn.ID}
	for _, member := range remaining {
		r.send(member, notice)
	}

	r.logger.Infow("connection left room",
		"connection_id", conn.ID,
		"room_id", conn.RoomID,
		"room_size", len(remaining),
	)

	for _, observer := range r.observers {
		observer.PeerLeft(ctx, conn.RoomID, conn.ID, len(remaining))
	}
}

func (r *Router) checkTarget(target domain.ConnectionID) error {
	conn, err := r.registry.Get(target)
	if err != nil || !conn.IsJoined() {
		return fmt.Errorf("%w: %s", domain.ErrUnknownTarget, target)
	}
	return nil
}

// send is fire-and-forget: a slow or vanished target only loses its own frames.
func (r *Router) send(id domain.ConnectionID, msg domain.OutboundMessage) {
	if err := r.transport.Send(id, msg); err != nil {
		r.logger.Debugw("dropped outbound frame",
			"connection_id", id,
			"event", msg.Event,
			"error", err,
		)
	}
}
