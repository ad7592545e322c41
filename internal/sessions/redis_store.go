package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-aware Store. Sessions stay in the local map (the
// attempt object is owned by one instance for its lifetime), while Redis
// carries a liveness marker so peers and dashboards can tell a student
// has an attempt open. The marker TTL is refreshed on every Put.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

func (s *RedisStore) Put(studentID string, session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[studentID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(studentID), session.AttemptID(), s.ttl).Err()
}

func (s *RedisStore) Get(studentID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[studentID]
	return session, ok
}

func (s *RedisStore) Delete(studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, studentID)
	_ = s.client.Del(context.Background(), s.key(studentID)).Err()
}

// HasLiveAttempt checks the marker only, which works across instances.
func (s *RedisStore) HasLiveAttempt(ctx context.Context, studentID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(studentID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) key(studentID string) string {
	return "exam:attempt:" + studentID
}
