package signal

import (
	"context"
	"time"

	"roomrelay/internal/core/domain"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// client is one accepted WebSocket connection. send is only closed by the
// server while holding its lock, so Send never writes to a closed channel.
type client struct {
	id         domain.ConnectionID
	conn       *websocket.Conn
	send       chan domain.OutboundMessage
	limiter    *rate.Limiter
	remoteAddr string
}

// writePump is the only writer on the connection apart from control frames.
func (s *WebSocketServer) writePump(c *client) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				s.logger.Debugw("write failed", "connection_id", c.id, "event", msg.Event, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debugw("ping failed", "connection_id", c.id, "error", err)
				return
			}
		}
	}
}

// readPump decodes frames and submits them until the connection fails.
// Malformed and rate-limited frames are answered with an error frame and
// the connection stays open.
func (s *WebSocketServer) readPump(ctx context.Context, c *client) {
	c.conn.SetReadLimit(s.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Infow("connection read failed", "connection_id", c.id, "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))

		if c.limiter != nil && !c.limiter.Allow() {
			s.reject(c.id, "", domain.ErrRateLimited)
			continue
		}

		name, event, err := DecodeFrame(c.id, data)
		if err != nil {
			s.reject(c.id, name, err)
			continue
		}

		if err := s.sink.Submit(ctx, event); err != nil {
			s.logger.Warnw("could not submit event", "connection_id", c.id, "event", name, "error", err)
			return
		}
	}
}
