// Package session implements the in-memory, TTL-bounded table of
// session id -> authenticated principal.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

const defaultTTL = 24 * time.Hour

// Session is the principal bound to a session id.
type Session struct {
	ID          string
	DisplayName string
	Picture     string
	Claims      map[string]any
	ExpiresAt   time.Time
}

// Table is a reader/writer-locked map of session id to Session.
type Table struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
}

// NewTable constructs a Table with the given TTL; a zero TTL uses the
// 24-hour default.
func NewTable(ttl time.Duration) *Table {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Table{sessions: make(map[string]Session), ttl: ttl}
}

// Create stores a new session and returns its id.
func (t *Table) Create(displayName, picture string, claims map[string]any) string {
	id := randomID()
	t.mu.Lock()
	t.sessions[id] = Session{
		ID:          id,
		DisplayName: displayName,
		Picture:     picture,
		Claims:      claims,
		ExpiresAt:   time.Now().Add(t.ttl),
	}
	t.mu.Unlock()
	return id
}

// Get returns a copy of the session if it exists and has not expired.
func (t *Table) Get(id string) (Session, bool) {
	t.mu.RLock()
	sess, ok := t.sessions[id]
	t.mu.RUnlock()
	if !ok || time.Now().After(sess.ExpiresAt) {
		return Session{}, false
	}
	return sess, true
}

// Remove unconditionally erases a session.
func (t *Table) Remove(id string) {
	t.mu.Lock()
	delete(t.sessions, id)
	t.mu.Unlock()
}

// Cleanup retains only non-expired sessions. Correctness does not depend on
// this running; Get already filters by expiry.
func (t *Table) Cleanup() {
	now := time.Now()
	t.mu.Lock()
	for id, sess := range t.sessions {
		if now.After(sess.ExpiresAt) {
			delete(t.sessions, id)
		}
	}
	t.mu.Unlock()
}

func randomID() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
