// Package hub groups live connections by owner and fans change events out
// to them.
package hub

import (
	"sync"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/tasksync/internal/model"
)

// Session is one live connection bound to one owner for its whole life.
// The send buffer is never closed; done signals shutdown instead, so a
// late enqueue cannot panic.
type Session struct {
	id      string
	ownerID string
	send    chan model.Event
	done    chan struct{}
	once    sync.Once
}

func NewSession(ownerID string, buffer int) *Session {
	if buffer < 1 {
		buffer = 1
	}
	return &Session{
		id:      uuid.NewString(),
		ownerID: ownerID,
		send:    make(chan model.Event, buffer),
		done:    make(chan struct{}),
	}
}

func (s *Session) ID() string      { return s.id }
func (s *Session) OwnerID() string { return s.ownerID }

// Events is consumed by the connection's writer.
func (s *Session) Events() <-chan model.Event { return s.send }

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// enqueue never blocks. False means the session is closed or its buffer is full.
func (s *Session) enqueue(ev model.Event) bool {
	if s.closed() {
		return false
	}
	select {
	case s.send <- ev:
		return true
	default:
		return false
	}
}
