package ui

import (
	"context"
	"sync"
	"time"

	"github.com/abgdnv/producttags/internal/tagging"
	"github.com/google/uuid"
)

type session struct {
	board    *tagging.Board
	lastSeen time.Time
}

// Sessions maps cookie values to the board of one operator.
// Sessions idle for longer than the TTL are evicted.
type Sessions struct {
	mu       sync.Mutex
	ttl      time.Duration
	updater  tagging.TagUpdater
	sessions map[string]*session
	now      func() time.Time
}

func NewSessions(updater tagging.TagUpdater, ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:      ttl,
		updater:  updater,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Acquire returns the board for id, touching its idle timer.
// An unknown or expired id gets a fresh board under a new id; created is true in that case.
func (s *Sessions) Acquire(id string) (sid string, board *tagging.Board, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.sessions[id]; ok {
		if now.Sub(sess.lastSeen) <= s.ttl {
			sess.lastSeen = now
			return id, sess.board, false
		}
		delete(s.sessions, id)
	}
	sid = uuid.NewString()
	board = tagging.NewBoard(s.updater)
	s.sessions[sid] = &session{board: board, lastSeen: now}
	return sid, board, true
}

// Sweep evicts idle sessions and reports how many were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run sweeps at every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
