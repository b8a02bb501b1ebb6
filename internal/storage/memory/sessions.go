package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"grouptrip/internal/domain"
)

// SessionStore keeps sessions in process. Sessions untouched for ttl expire,
// which is how abandoned sessions are reclaimed.
type SessionStore struct {
	cache *cache.Cache
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{cache: cache.New(ttl, ttl/6)}
}

func (s *SessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	if x, found := s.cache.Get(id); found {
		return x.(*domain.Session), nil
	}
	return nil, domain.ErrSessionNotFound
}

// Save stores the session and refreshes its expiry.
func (s *SessionStore) Save(_ context.Context, sess *domain.Session) error {
	s.cache.Set(sess.ID, sess, cache.DefaultExpiration)
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

func (s *SessionStore) Len() int { return s.cache.ItemCount() }
