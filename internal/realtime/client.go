package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	messageBufferSize = 16

	// enqueueGrace is how long a publish waits on a full outbound buffer
	// before the subscriber counts as stuck. A live writer frees a slot in
	// microseconds; a burst can fill the buffer without the socket being dead.
	enqueueGrace = 100 * time.Millisecond
)

// PongDeadline is how long the transport read loop waits for any inbound
// traffic (pong included) before declaring the peer dead. Must exceed
// pingInterval.
const PongDeadline = 60 * time.Second

// Conn is the transport half of a live subscriber. *websocket.Conn satisfies
// it in production; tests use in-memory fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one live subscriber connection. A dedicated writer goroutine
// drains the outbound buffer so a broadcast never blocks on a slow socket,
// and the reader loop in the handler stays free for inbound frames.
type Client struct {
	conn   Conn
	userID *uint64 // authenticated principal, nil for anonymous tracking subscribers

	sendCh chan []byte
	done   chan struct{}

	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewClient(conn Conn, userID *uint64) *Client {
	c := &Client{
		conn:   conn,
		userID: userID,
		sendCh: make(chan []byte, messageBufferSize),
		done:   make(chan struct{}),
	}
	c.wg.Add(1)
	go c.writeLoop()
	return c
}

func (c *Client) UserID() *uint64 { return c.userID }

// Enqueue hands a frame to the writer without blocking. Returns false when
// the buffer is full (slow subscriber) or the client is already stopped; the
// caller decides what to do about it.
func (c *Client) Enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.sendCh <- data:
		return true
	default:
		return false
	}
}

// EnqueueWait is Enqueue with a grace period for a momentarily full buffer.
// Returns false only when the buffer stays full for the whole grace, which
// means the writer is not draining at all.
func (c *Client) EnqueueWait(data []byte, grace time.Duration) bool {
	if c.Enqueue(data) {
		return true
	}
	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case c.sendCh <- data:
		return true
	case <-c.done:
		return false
	case <-t.C:
		return false
	}
}

// Send writes a frame through the same outbound queue, blocking briefly if
// needed. Used for direct replies (pong, snapshots, error frames).
func (c *Client) Send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.wg.Done()

	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case msg := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("client write failed, stopping writer", "err", err)
				c.shutdown()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			c.drain()
			return
		}
	}
}

// drain flushes frames accepted before the stop so a direct reply queued
// right before disconnect still reaches the peer.
func (c *Client) drain() {
	for {
		select {
		case msg := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) shutdown() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

// Close signals the client to stop without waiting for the writer goroutine.
// The writer drains queued frames and closes the connection on its way out.
// Publish paths use this so a stuck socket never stalls a broadcast.
func (c *Client) Close() { c.shutdown() }

// Stop closes the connection and waits for the writer goroutine to exit.
// Safe to call more than once.
func (c *Client) Stop() {
	c.shutdown()
	c.wg.Wait()
}
