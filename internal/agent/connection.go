package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pterm/pterm"

	"errwatch/internal/config"
	"errwatch/internal/protocol"
)

// sendQueueSize bounds the outbound buffer so a stalled write never
// blocks a tailer beyond a bounded interval, per spec.md §5.
const sendQueueSize = 256

// Connection manages the agent's persistent bidirectional link to the
// server: dialing, registering, exponential-backoff reconnection, and a
// best-effort, non-blocking send path.
type Connection struct {
	url    string
	logger *pterm.Logger
	cfg    config.AgentConfig

	register func() protocol.RegisterData
	onFrame  func(protocol.Frame)

	sendCh chan protocol.Frame

	connMu sync.Mutex
	conn   *websocket.Conn
}

// NewConnection builds a Connection that dials url, sends a register
// frame built by register() on every successful open, and hands every
// received frame to onFrame.
func NewConnection(url string, cfg config.AgentConfig, logger *pterm.Logger, register func() protocol.RegisterData, onFrame func(protocol.Frame)) *Connection {
	return &Connection{
		url:      url,
		logger:   logger,
		cfg:      cfg,
		register: register,
		onFrame:  onFrame,
		sendCh:   make(chan protocol.Frame, sendQueueSize),
	}
}

// Run blocks until ctx is cancelled, maintaining the connection with
// exponential backoff on every drop: delay = min(baseDelay*2^(attempt-1),
// maxDelay). The attempt counter resets on every successful open. If
// MaxReconnectAttempts is nonnegative and reached, Run returns.
func (c *Connection) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			attempt++
			if c.cfg.MaxReconnectAttempts >= 0 && attempt > c.cfg.MaxReconnectAttempts {
				c.logger.Error("giving up reconnecting", c.logger.Args("url", c.url, "attempts", attempt))
				return
			}
			delay := backoffDelay(c.cfg.BackoffBaseDelay, c.cfg.BackoffMaxDelay, attempt)
			c.logger.Warn("failed to connect, retrying", c.logger.Args("url", c.url, "error", err, "delay", delay))
			if !sleepOrDone(ctx, delay) {
				return
			}
			continue
		}

		attempt = 0
		c.setConn(conn)
		c.logger.Info("connected to server", c.logger.Args("url", c.url))

		if err := c.sendRegister(); err != nil {
			c.logger.Warn("failed to send register frame", c.logger.Args("error", err))
		}

		c.runSession(ctx, conn)
		c.setConn(nil)
		c.drainSendCh()

		if ctx.Err() != nil {
			return
		}
		attempt = 1
		if c.cfg.MaxReconnectAttempts >= 0 && attempt > c.cfg.MaxReconnectAttempts {
			c.logger.Error("giving up reconnecting", c.logger.Args("url", c.url, "attempts", attempt))
			return
		}
		delay := backoffDelay(c.cfg.BackoffBaseDelay, c.cfg.BackoffMaxDelay, attempt)
		c.logger.Warn("connection lost, reconnecting", c.logger.Args("url", c.url, "delay", delay))
		if !sleepOrDone(ctx, delay) {
			return
		}
	}
}

// drainSendCh discards any frames that were queued but not yet written
// before the transport dropped, so they aren't delivered stale once a new
// connection opens.
func (c *Connection) drainSendCh() {
	for {
		select {
		case <-c.sendCh:
		default:
			return
		}
	}
}

func (c *Connection) runSession(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame protocol.Frame
			if err := json.Unmarshal(data, &frame); err != nil {
				c.logger.Debug("dropping malformed frame", c.logger.Args("error", err))
				continue
			}
			if c.onFrame != nil {
				c.onFrame(frame)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			<-done
			return
		case <-done:
			return
		case frame := <-c.sendCh:
			payload, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				conn.Close()
				<-done
				return
			}
		}
	}
}

func (c *Connection) sendRegister() error {
	data := c.register()
	frame, err := protocol.Encode(protocol.FrameRegister, data)
	if err != nil {
		return err
	}
	return c.Send(frame)
}

// Send enqueues a frame for the writer loop without blocking the caller.
// A frame offered while the transport is down (mid-reconnect, or not yet
// dialed) is dropped immediately rather than queued, per spec.md §7:
// in-flight sends during a reconnect gap are dropped, not delivered once
// the link resumes.
func (c *Connection) Send(frame protocol.Frame) error {
	if !c.connected() {
		return fmt.Errorf("transport not connected, dropping %s frame", frame.Type)
	}
	select {
	case c.sendCh <- frame:
		return nil
	default:
		return fmt.Errorf("send queue full, dropping %s frame", frame.Type)
	}
}

func (c *Connection) connected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil
}

func (c *Connection) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = 60 * time.Second
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		delay = max
	}
	return delay
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
