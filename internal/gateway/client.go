package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/rps-arena/internal/obslog"
)

// client is one websocket connection with its own write pump.
type client struct {
	hub         *Hub
	conn        *websocket.Conn
	participant string
	send        chan Outbound

	ctx    context.Context
	cancel context.CancelFunc

	closeMu sync.Mutex
	closed  bool
}

func newClient(h *Hub, conn *websocket.Conn, participant string) *client {
	ctx, cancel := context.WithCancel(context.Background())
	return &client{
		hub:         h,
		conn:        conn,
		participant: participant,
		send:        make(chan Outbound, h.opts.SendBuffer),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// run blocks until the connection ends.
func (c *client) run() {
	go c.writePump()
	c.readPump()
}

func (c *client) writePump() {
	t := time.NewTicker(c.hub.opts.PingInterval)
	defer func() {
		t.Stop()
		c.close()
	}()
	for {
		select {
		case out, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(c.ctx, c.hub.opts.WriteTimeout)
			err := wsjson.Write(ctx, c.conn, out)
			cancel()
			if err != nil {
				obslog.L().Warn("ws_write_error", zap.String("participant", c.participant), zap.Error(err))
				return
			}
		case <-t.C:
			ctx, cancel := context.WithTimeout(c.ctx, c.hub.opts.WriteTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				obslog.L().Warn("ws_ping_error", zap.String("participant", c.participant), zap.Error(err))
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *client) readPump() {
	defer func() {
		c.close()
		c.hub.unregister(c)
	}()
	for {
		_, raw, err := c.conn.Read(c.ctx)
		if err != nil {
			if s := websocket.CloseStatus(err); s != websocket.StatusNormalClosure && s != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				obslog.L().Debug("ws_read_end", zap.String("participant", c.participant), zap.Error(err))
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
			c.enqueue(c.hub.errorMessage("invalid_payload", nil))
			continue
		}
		if out, ok := c.hub.dispatch(c.ctx, c.participant, env); ok {
			c.enqueue(out)
		}
	}
}

// enqueue never blocks; a full buffer closes the slow connection.
func (c *client) enqueue(out Outbound) bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- out:
		return true
	default:
		obslog.L().Warn("ws_send_buffer_full", zap.String("participant", c.participant))
		go c.close()
		return false
	}
}

func (c *client) close() {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return
	}
	c.closed = true
	c.closeMu.Unlock()
	c.cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}
