package oidcclient

import "sync"

// PendingEntry carries the nonce and optional PKCE verifier correlated to
// an in-flight OAuth `state` value.
type PendingEntry struct {
	Nonce        string
	CodeVerifier string
}

// PendingSet is a one-shot state -> PendingEntry correlation map. Entries
// are removed on first read, so replay of a state value is impossible. A
// stale entry that is never consumed leaks until the table (and process)
// goes away; no TTL sweep is implemented.
type PendingSet struct {
	mu      sync.Mutex
	entries map[string]PendingEntry
}

// NewPendingSet constructs an empty PendingSet.
func NewPendingSet() *PendingSet {
	return &PendingSet{entries: make(map[string]PendingEntry)}
}

// Insert records the nonce/verifier for a freshly minted state value.
func (p *PendingSet) Insert(state string, entry PendingEntry) {
	p.mu.Lock()
	p.entries[state] = entry
	p.mu.Unlock()
}

// Take removes and returns the entry for state, if present.
func (p *PendingSet) Take(state string) (PendingEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[state]
	if ok {
		delete(p.entries, state)
	}
	return entry, ok
}
