// Package devpasscode provides an in-memory store for cleartext passcodes,
// used only when dev passcode mode is enabled (GET /api/dev/passcode).
package devpasscode

import (
	"sync"
	"time"

	"signon/backend/internal/passcode/domain"
)

// DefaultTTL bounds how long a recorded code stays retrievable.
const DefaultTTL = 10 * time.Minute

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore holds plain passcodes keyed by session JTI and flow type for
// dev-only retrieval. Not used in production.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	ttl  time.Duration
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev passcode store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		m:    make(map[string]entry),
		ttl:  ttl,
		nowF: time.Now().UTC,
	}
}

func key(jti string, typ domain.Type) string {
	return jti + "/" + string(typ)
}

// Record stores the cleartext code for the session and flow type. A later
// Record for the same pair replaces the previous code.
func (s *MemoryStore) Record(jti string, typ domain.Type, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key(jti, typ)] = entry{code: code, expiresAt: s.nowF().Add(s.ttl)}
}

// Get returns the code for the session and flow type if present and not
// expired. Returns ok false if missing or expired.
func (s *MemoryStore) Get(jti string, typ domain.Type) (string, bool) {
	k := key(jti, typ)
	s.mu.RLock()
	e, ok := s.m[k]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, k)
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}
