package session

import (
	"context"
	"sync"

	"github.com/xhad/duo/internal/models"
)

// Session is the state one front end keeps between the upload and the
// questions that follow it. The zero value is ready to use.
type Session struct {
	mu    sync.RWMutex
	dual  models.DualContext
	ready bool

	turn   uint64
	cancel context.CancelFunc
}

func New() *Session {
	return &Session{}
}

// Set stores the identifiers returned by a successful upload.
func (s *Session) Set(dual models.DualContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dual = dual
	s.ready = true
}

// Context returns the stored identifiers. ready is false until Set has been
// called; the returned context is then empty.
func (s *Session) Context() (dual models.DualContext, ready bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dual, s.ready
}

func (s *Session) Ready() bool {
	_, ready := s.Context()
	return ready
}

// Turn is one chat invocation. Only the most recent turn may write to the
// display.
type Turn struct {
	ID  uint64
	Ctx context.Context

	session *Session
	cancel  context.CancelFunc
}

// BeginTurn starts a new turn derived from parent and cancels the previous
// one, if any.
func (s *Session) BeginTurn(parent context.Context) *Turn {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.turn++
	s.cancel = cancel
	id := s.turn
	s.mu.Unlock()

	return &Turn{ID: id, Ctx: ctx, session: s, cancel: cancel}
}

// Current reports whether t is still the latest turn and not cancelled.
func (t *Turn) Current() bool {
	if t.Ctx.Err() != nil {
		return false
	}
	t.session.mu.RLock()
	defer t.session.mu.RUnlock()
	return t.session.turn == t.ID
}

// Do runs fn while holding the turn's write slot. fn is skipped, and false
// returned, once the turn has been superseded. fn must not call back into
// the session.
func (t *Turn) Do(fn func()) bool {
	t.session.mu.RLock()
	defer t.session.mu.RUnlock()
	if t.Ctx.Err() != nil || t.session.turn != t.ID {
		return false
	}
	fn()
	return true
}

// End releases the turn's context.
func (t *Turn) End() {
	t.cancel()
	t.session.mu.Lock()
	if t.session.turn == t.ID {
		t.session.cancel = nil
	}
	t.session.mu.Unlock()
}
