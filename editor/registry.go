package editor

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"paintbox/core"
)

// Registry tracks the live editor sessions. Sessions never outlive the
// process; a client that reconnects reopens from its saved artwork.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxIdle  time.Duration
}

func NewRegistry(maxIdle time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		maxIdle:  maxIdle,
	}
}

// Open creates a session for the given owner. fitZoom is the client's
// fit-to-screen zoom, which becomes the zoom-out floor.
func (r *Registry) Open(owner string, fitZoom float64) *Session {
	s := newSession(uuid.NewString(), owner, fitZoom)
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"sessionId": s.ID(),
		"owner":     owner,
	}).Info("Editor session opened")
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	logrus.WithField("sessionId", id).Info("Editor session closed")
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// PruneIdle drops sessions idle longer than the registry's limit and
// returns how many were removed. The janitor cron calls this.
func (r *Registry) PruneIdle() int {
	cutoff := time.Now().Add(-r.maxIdle)
	var stale []string

	r.mu.RLock()
	for id, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	if len(stale) == 0 {
		return 0
	}
	r.mu.Lock()
	for _, id := range stale {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	logrus.WithField("count", len(stale)).Info("Pruned idle editor sessions")
	return len(stale)
}
