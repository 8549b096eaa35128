package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"OptimaChat/internal/conversation"
)

// CachedResponse represents a cached backend reply
type CachedResponse struct {
	Response  string
	Timestamp time.Time
}

// Key generates a cache key from the full message history
func Key(messages []conversation.Message) string {
	h := sha256.New()
	for _, msg := range messages {
		h.Write([]byte(msg.Sender))
		h.Write([]byte{0})
		h.Write([]byte(msg.Text))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Store is a TTL'd in-memory reply cache.
type Store struct {
	entries sync.Map
	ttl     time.Duration
}

// New creates a store; ttl <= 0 means entries never expire.
func New(ttl time.Duration) *Store {
	return &Store{ttl: ttl}
}

// Get returns the cached reply for key if present and unexpired.
func (s *Store) Get(key string) (string, bool) {
	val, ok := s.entries.Load(key)
	if !ok {
		return "", false
	}
	cached := val.(CachedResponse)
	if s.ttl > 0 && time.Since(cached.Timestamp) > s.ttl {
		s.entries.Delete(key)
		return "", false
	}
	return cached.Response, true
}

// Put stores a reply under key.
func (s *Store) Put(key, response string) {
	s.entries.Store(key, CachedResponse{
		Response:  response,
		Timestamp: time.Now(),
	})
}
