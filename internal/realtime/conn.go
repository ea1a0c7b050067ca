package realtime

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrBackpressure = errors.New("connection send queue full")
)

const DefaultSendBuffer = 256

// Conn is the server-side handle of one live transport session. The
// transport drains Outbound and stops when Done is closed.
type Conn struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	send      chan []byte
	done      chan struct{}
	alive     atomic.Bool
	closeOnce sync.Once
}

// NewConn allocates a connection for an authenticated user.
func NewConn(userID string, buffer int) *Conn {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	c := &Conn{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now(),
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
	c.alive.Store(true)
	return c
}

// TrySend enqueues a payload without blocking.
func (c *Conn) TrySend(payload []byte) error {
	if !c.alive.Load() {
		return ErrConnClosed
	}
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Conn) Outbound() <-chan []byte {
	return c.send
}

func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) Alive() bool {
	return c.alive.Load()
}

// Close marks the connection dead. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.alive.Store(false)
		close(c.done)
	})
}
