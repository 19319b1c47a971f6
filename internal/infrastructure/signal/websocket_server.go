package signal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"roomrelay/internal/core/domain"
	"roomrelay/internal/core/ports"
	"roomrelay/pkg/utils"
	"roomrelay/pkg/validation"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrNotConnected   = errors.New("connection not open")
	ErrSendQueueFull  = errors.New("send queue full")
	ErrServerClosed   = errors.New("websocket server closed")
	errNoEventSinkSet = errors.New("websocket server has no event sink")
)

// Drop reasons reported to the TransportRecorder.
const (
	DropNotConnected = "not_connected"
	DropQueueFull    = "queue_full"
)

type Options struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	SendBuffer        int
	MaxMessageSize    int64
	AllowedOrigins    []string
	MessagesPerSecond float64 // zero disables inbound rate limiting
	Burst             int
}

func DefaultOptions() Options {
	return Options{
		PingInterval:   25 * time.Second,
		PongTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		SendBuffer:     64,
		MaxMessageSize: 64 * 1024,
		AllowedOrigins: []string{"*"},
	}
}

// WebSocketServer accepts signaling connections, turns their frames into
// domain events for an EventSink and implements ports.Transport.
type WebSocketServer struct {
	sink     ports.EventSink
	recorder ports.TransportRecorder
	upgrader websocket.Upgrader
	opts     Options

	clients map[domain.ConnectionID]*client
	closed  bool
	mu      sync.RWMutex

	newID  func() string
	logger *zap.SugaredLogger
}

func NewWebSocketServer(opts Options, logger *zap.SugaredLogger) *WebSocketServer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	defaults := DefaultOptions()
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaults.PingInterval
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = defaults.PongTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaults.SendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaults.MaxMessageSize
	}

	s := &WebSocketServer{
		opts:    opts,
		clients: make(map[domain.ConnectionID]*client),
		newID:   utils.NewConnectionID,
		logger:  logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return s
}

// SetEventSink must be called before the server accepts connections.
func (s *WebSocketServer) SetEventSink(sink ports.EventSink) {
	s.sink = sink
}

func (s *WebSocketServer) SetRecorder(recorder ports.TransportRecorder) {
	s.recorder = recorder
}

// HandleWebSocket upgrades the request and serves the connection until it
// closes. The connect event is submitted before any frame is read, and the
// disconnect event after the last one.
func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		s.logger.Error(errNoEventSinkSet.Error())
		http.Error(w, "signaling unavailable", http.StatusServiceUnavailable)
		return
	}
	if s.isClosed() {
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Infow("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	c := &client{
		id:         domain.ConnectionID(s.newID()),
		conn:       conn,
		send:       make(chan domain.OutboundMessage, s.opts.SendBuffer),
		remoteAddr: r.RemoteAddr,
	}
	if s.opts.MessagesPerSecond > 0 {
		burst := s.opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), burst)
	}

	if err := s.register(c); err != nil {
		s.logger.Infow("rejecting connection", "remote_addr", r.RemoteAddr, "error", err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(s.opts.WriteTimeout))
		return
	}

	ctx := r.Context()
	if err := s.sink.Submit(ctx, domain.ConnectEvent{ConnectionID: c.id}); err != nil {
		s.logger.Warnw("could not submit connect", "connection_id", c.id, "error", err)
		s.unregister(c.id)
		return
	}

	s.logger.Infow("connection opened", "connection_id", c.id, "remote_addr", c.remoteAddr)

	go s.writePump(c)
	s.readPump(ctx, c)

	s.unregister(c.id)

	// The request context may already be done; disconnect must still be queued.
	submitCtx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
	defer cancel()
	if err := s.sink.Submit(submitCtx, domain.DisconnectEvent{ConnectionID: c.id}); err != nil {
		s.logger.Warnw("could not submit disconnect", "connection_id", c.id, "error", err)
	}

	s.logger.Infow("connection closed", "connection_id", c.id)
}

// Send queues msg for the connection without blocking.
func (s *WebSocketServer) Send(id domain.ConnectionID, msg domain.OutboundMessage) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok {
		s.recordDrop(msg.Event, DropNotConnected)
		return fmt.Errorf("%w: %s", ErrNotConnected, id)
	}

	select {
	case c.send <- msg:
		return nil
	default:
		s.recordDrop(msg.Event, DropQueueFull)
		return fmt.Errorf("%w: %s", ErrSendQueueFull, id)
	}
}

// ConnectionCount returns the number of open connections.
func (s *WebSocketServer) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Shutdown sends a going-away close frame to every connection and refuses
// new ones. Read pumps then fail and submit their disconnect events.
func (s *WebSocketServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for _, c := range s.clients {
		conns = append(conns, c.conn)
	}
	s.mu.Unlock()

	deadline := time.Now().Add(s.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	for _, conn := range conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			deadline)
		conn.Close()
	}

	s.logger.Infow("websocket server shut down", "connections", len(conns))
	return nil
}

func (s *WebSocketServer) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *WebSocketServer) register(c *client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	s.clients[c.id] = c
	if s.recorder != nil {
		s.recorder.ConnectionOpened()
	}
	return nil
}

func (s *WebSocketServer) unregister(id domain.ConnectionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok {
		return
	}
	delete(s.clients, id)
	close(c.send)
	if s.recorder != nil {
		s.recorder.ConnectionClosed()
	}
}

// reject answers a frame the transport refused before it reached the sink.
func (s *WebSocketServer) reject(id domain.ConnectionID, event string, err error) {
	s.logger.Debugw("rejected frame", "connection_id", id, "event", event, "error", err)
	if sendErr := s.Send(id, domain.NewErrorMessage(event, err)); sendErr != nil {
		s.logger.Debugw("could not report rejected frame", "connection_id", id, "error", sendErr)
	}
}

func (s *WebSocketServer) recordDrop(event, reason string) {
	if s.recorder != nil {
		s.recorder.FrameDropped(event, reason)
	}
}

// originChecker allows requests without an Origin header (non-browser
// clients) and browser requests whose origin is listed. "*" allows all.
func originChecker(allowed []string) func(r *http.Request) bool {
	allowList := validation.NewOriginAllowList(allowed)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowList.Allows(origin)
	}
}
