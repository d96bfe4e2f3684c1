package importer

import (
	"time"

	"fintrack/internal/cache"
)

const (
	DefaultSessionTTL  = 30 * time.Minute
	defaultMaxSessions = 1000
)

// Store keeps import sessions per user in a TTL-bounded LRU cache. Sessions
// are keyed by owner so one user can never resolve another user's session.
type Store struct {
	sessions *cache.LRUCache[*Session]
}

func NewStore(maxSessions int, ttl time.Duration) *Store {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Store{sessions: cache.NewLRUCache[*Session](maxSessions, ttl)}
}

func key(userID, id string) string {
	return userID + "\x00" + id
}

// Create starts a new listing session for userID.
func (s *Store) Create(userID string) *Session {
	sess := NewSession(userID)
	s.sessions.Set(key(userID, sess.ID()), sess)
	return sess
}

// Get returns the session and extends its lifetime.
func (s *Store) Get(userID, id string) (*Session, error) {
	k := key(userID, id)
	sess, ok := s.sessions.Get(k)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.sessions.Set(k, sess)
	return sess, nil
}

func (s *Store) List(userID string) []*Session {
	return s.sessions.Values(userID + "\x00")
}

func (s *Store) Delete(userID, id string) {
	s.sessions.Delete(key(userID, id))
}

// Cache exposes the backing cache so it can be registered for cleanup.
func (s *Store) Cache() *cache.LRUCache[*Session] {
	return s.sessions
}
