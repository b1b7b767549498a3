package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nikbrunner/bmtree/internal/storage"
)

// DefaultMaxSessions bounds a registry created with maxSessions <= 0.
const DefaultMaxSessions = 1024

// Registry holds independent sessions that share one storage handle. It
// keeps at most maxSessions; creating one more evicts the least recently
// used session.
type Registry struct {
	storage      storage.Storage
	historyLimit int
	maxSessions  int
	logger       *zerolog.Logger

	mu       sync.Mutex
	clock    uint64
	sessions map[string]*entry
}

type entry struct {
	session  *Session
	lastUsed uint64
}

// NewRegistry creates an empty registry. Sessions it creates use s, the
// given history limit and logger.
func NewRegistry(s storage.Storage, historyLimit, maxSessions int, logger *zerolog.Logger) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Registry{
		storage:      s,
		historyLimit: historyLimit,
		maxSessions:  maxSessions,
		logger:       logger,
		sessions:     make(map[string]*entry),
	}
}

// Create registers a new session at root under a fresh UUID.
func (r *Registry) Create() *Session {
	s := New(Params{
		ID:           uuid.NewString(),
		Storage:      r.storage,
		HistoryLimit: r.historyLimit,
		Logger:       r.logger,
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) >= r.maxSessions {
		r.evictOldest()
	}
	r.clock++
	r.sessions[s.ID()] = &entry{session: s, lastUsed: r.clock}
	return s
}

// evictOldest drops the least recently used session. r.mu must be held.
func (r *Registry) evictOldest() {
	var oldest string
	var at uint64
	for id, e := range r.sessions {
		if oldest == "" || e.lastUsed < at {
			oldest, at = id, e.lastUsed
		}
	}
	delete(r.sessions, oldest)
	if r.logger != nil {
		r.logger.Debug().Str("session", oldest).Msg("evicted idle session")
	}
}

// Get looks up a session by id and marks it used.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	r.clock++
	e.lastUsed = r.clock
	return e.session, true
}

// Delete drops a session. It reports whether the session existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
