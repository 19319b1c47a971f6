package distributed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"roomrelay/internal/core/domain"
	"roomrelay/pkg/circuitbreaker"
	"roomrelay/pkg/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventType represents the type of event
type EventType string

const (
	EventPeerJoined EventType = "peer.joined"
	EventPeerLeft   EventType = "peer.left"
)

// Event is one room activity record as published on the channel.
type Event struct {
	Type         EventType           `json:"type"`
	InstanceID   string              `json:"instance_id"`
	Timestamp    time.Time           `json:"timestamp"`
	RoomID       domain.RoomID       `json:"room_id"`
	ConnectionID domain.ConnectionID `json:"connection_id"`
	RoomSize     int                 `json:"room_size"`
}

// Publisher is satisfied by *redis.Client.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// EventBus publishes room activity to a Redis pub/sub channel. It is a
// RoomObserver: events are queued without blocking and published by Run,
// so a slow or absent Redis never holds up the dispatcher.
//
// Run retries transient publish failures and stops trying while the breaker
// is open; events that arrive meanwhile are discarded.
type EventBus struct {
	publisher  Publisher
	channel    string
	instanceID string
	queue      chan Event
	retry      retry.Config
	breaker    *circuitbreaker.CircuitBreaker
	now        func() time.Time
	logger     *zap.SugaredLogger
}

type EventBusOption func(*EventBus)

func WithRetry(cfg retry.Config) EventBusOption {
	return func(eb *EventBus) {
		eb.retry = cfg
	}
}

func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) EventBusOption {
	return func(eb *EventBus) {
		eb.breaker = cb
	}
}

func NewEventBus(publisher Publisher, channel, instanceID string, buffer int, logger *zap.SugaredLogger, opts ...EventBusOption) *EventBus {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	eb := &EventBus{
		publisher:  publisher,
		channel:    channel,
		instanceID: instanceID,
		queue:      make(chan Event, buffer),
		breaker:    circuitbreaker.New(circuitbreaker.DefaultConfig()),
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(eb)
	}
	return eb
}

func (eb *EventBus) PeerJoined(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID, roomSize int) {
	eb.enqueue(Event{Type: EventPeerJoined, RoomID: roomID, ConnectionID: id, RoomSize: roomSize})
}

func (eb *EventBus) PeerLeft(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID, roomSize int) {
	eb.enqueue(Event{Type: EventPeerLeft, RoomID: roomID, ConnectionID: id, RoomSize: roomSize})
}

func (eb *EventBus) enqueue(event Event) {
	event.InstanceID = eb.instanceID
	event.Timestamp = eb.now()

	select {
	case eb.queue <- event:
	default:
		eb.logger.Debugw("activity feed full, dropping event",
			"type", event.Type,
			"room_id", event.RoomID,
			"connection_id", event.ConnectionID,
		)
	}
}

// Run publishes queued events until ctx is cancelled.
func (eb *EventBus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eb.queue:
			eb.deliver(ctx, event)
		}
	}
}

func (eb *EventBus) deliver(ctx context.Context, event Event) {
	err := eb.breaker.Execute(ctx, func() error {
		return retry.Do(ctx, eb.retry, func() error {
			return eb.Publish(ctx, event)
		})
	})
	switch {
	case err == nil:
	case errors.Is(err, circuitbreaker.ErrOpen):
		eb.logger.Debugw("activity feed paused, dropping event",
			"type", event.Type,
			"room_id", event.RoomID,
		)
	case ctx.Err() != nil:
	default:
		eb.logger.Warnw("failed to publish room activity",
			"type", event.Type,
			"room_id", event.RoomID,
			"error", err,
		)
	}
}

// Publish publishes an event to the event bus
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := eb.publisher.Publish(ctx, eb.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	eb.logger.Debugw("published event",
		"type", event.Type,
		"room_id", event.RoomID,
		"connection_id", event.ConnectionID,
	)
	return nil
}
