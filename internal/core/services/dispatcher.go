package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"roomrelay/internal/core/domain"
	"roomrelay/internal/core/ports"
	"roomrelay/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ErrDispatcherStopped = errors.New("dispatcher stopped")

// Outcome labels reported to the DispatchRecorder.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeDropped  = "dropped"
	OutcomeFailed   = "failed"
)

// Dispatcher owns a Router and feeds it one event at a time from its
// mailbox. Transport goroutines only ever call Submit.
type Dispatcher struct {
	router    *Router
	transport ports.Transport
	recorder  ports.DispatchRecorder
	mailbox   chan domain.InboundEvent
	done      chan struct{}
	stopOnce  sync.Once
	logger    *zap.SugaredLogger
}

func NewDispatcher(router *Router, transport ports.Transport, recorder ports.DispatchRecorder, mailboxSize int, logger *zap.SugaredLogger) *Dispatcher {
	if mailboxSize <= 0 {
		mailboxSize = 256
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dispatcher{
		router:    router,
		transport: transport,
		recorder:  recorder,
		mailbox:   make(chan domain.InboundEvent, mailboxSize),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Submit queues event for processing. It blocks while the mailbox is full,
// which only slows down the submitting connection's reader.
func (d *Dispatcher) Submit(ctx context.Context, event domain.InboundEvent) error {
	select {
	case <-d.done:
		return ErrDispatcherStopped
	default:
	}

	select {
	case d.mailbox <- event:
		return nil
	case <-d.done:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events until ctx is cancelled. Events still in the mailbox
// at that point, including disconnects queued during shutdown, are discarded.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started")
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return
		case event := <-d.mailbox:
			d.handle(ctx, event)
		}
	}
}

// Stopped reports whether Run has returned.
func (d *Dispatcher) Stopped() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) stop() {
	d.stopOnce.Do(func() {
		close(d.done)
	})
}

func (d *Dispatcher) handle(ctx context.Context, event domain.InboundEvent) {
	start := time.Now()
	spanCtx, span := tracing.TraceRelayEvent(ctx, event.Name(), string(event.Origin()))
	defer span.End()

	err := d.router.Dispatch(spanCtx, event)
	outcome := d.classify(event, err)

	if err != nil {
		tracing.RecordError(spanCtx, err)
	}
	span.SetAttributes(attribute.String("relay.outcome", outcome))

	if d.recorder != nil {
		d.recorder.RecordEvent(event.Name(), outcome, time.Since(start))
	}
}

func (d *Dispatcher) classify(event domain.InboundEvent, err error) string {
	switch {
	case err == nil:
		return OutcomeOK

	case domain.IsRejection(err):
		d.logger.Infow("rejected event",
			"event", event.Name(),
			"connection_id", event.Origin(),
			"error", err,
		)
		if sendErr := d.transport.Send(event.Origin(), domain.NewErrorMessage(event.Name(), err)); sendErr != nil {
			d.logger.Debugw("could not report rejection", "connection_id", event.Origin(), "error", sendErr)
		}
		return OutcomeRejected

	case errors.Is(err, domain.ErrUnknownTarget):
		d.logger.Debugw("dropped event for departed target",
			"event", event.Name(),
			"connection_id", event.Origin(),
			"error", err,
		)
		return OutcomeDropped

	case errors.Is(err, domain.ErrUnknownConnection), errors.Is(err, domain.ErrConnectionExists):
		d.logger.Warnw("dropped event",
			"event", event.Name(),
			"connection_id", event.Origin(),
			"error", err,
		)
		return OutcomeDropped

	default:
		d.logger.Errorw("event failed",
			"event", event.Name(),
			"connection_id", event.Origin(),
			"error", err,
		)
		return OutcomeFailed
	}
}
