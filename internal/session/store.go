package session

import (
	"time"

	"github.com/google/uuid"

	"spendsense/internal/cache"
	"spendsense/internal/log"
)

// Store keeps live sessions in memory. Idle sessions expire and the least
// recently used one is dropped when the store is full.
type Store struct {
	sessions *cache.LRUCache[*Session]
	logger   *log.Logger
	now      func() time.Time
}

func NewStore(maxSessions int, idle time.Duration, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.WithComponent(log.ComponentSession)
	}
	c := cache.NewLRUCache[*Session](maxSessions, idle)
	c.OnEvict(func(id string, _ *Session) {
		logger.Debug("Session evicted", log.FieldSessionID, id)
	})
	return &Store{sessions: c, logger: logger, now: time.Now}
}

// Cache exposes the backing cache so a janitor can sweep it.
func (s *Store) Cache() *cache.LRUCache[*Session] { return s.sessions }

// Get returns the live session with id.
func (s *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	return s.sessions.Get(id)
}

// Create starts a new session with a random id.
func (s *Store) Create() *Session {
	sess := newSession(uuid.NewString(), s.now())
	s.sessions.Set(sess.ID(), sess)
	s.logger.Info("Session created", log.FieldSessionID, sess.ID())
	return sess
}

// GetOrCreate returns the session for id, creating one when id is unknown
// or expired. created reports whether a new session was made.
func (s *Store) GetOrCreate(id string) (sess *Session, created bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	return s.Create(), true
}

// Reset clears the session's state. It returns false for unknown ids.
func (s *Store) Reset(id string) bool {
	sess, ok := s.Get(id)
	if !ok {
		return false
	}
	sess.Reset(s.now())
	s.logger.Info("Session reset", log.FieldSessionID, id, log.FieldOperation, log.OpReset)
	return true
}

func (s *Store) Len() int { return s.sessions.Size() }
