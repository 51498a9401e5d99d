// Package model defines the credential entities persisted by the store.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the two credential shapes an AuthEntry can hold.
type Kind string

const (
	KindBasic Kind = "basic"
	KindToken Kind = "token"
)

// AuthEntry is a single registered credential, either a username/password
// pair checked over HTTP Basic, or an opaque bearer token.
type AuthEntry struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Kind         Kind        `json:"kind"`
	Username     string      `json:"username,omitempty"`
	PasswordHash string      `json:"password_hash,omitempty"`
	TokenHash    string      `json:"token_hash,omitempty"`
	GroupIDs     []uuid.UUID `json:"group_ids"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Validate checks the credential-shape invariant: exactly one of
// PasswordHash and TokenHash is set, consistent with Kind, and Username is
// present iff Kind is basic.
func (e *AuthEntry) Validate() error {
	switch e.Kind {
	case KindBasic:
		if e.Username == "" {
			return errors.New("basic entry requires a username")
		}
		if e.PasswordHash == "" {
			return errors.New("basic entry requires a password hash")
		}
		if e.TokenHash != "" {
			return errors.New("basic entry must not carry a token hash")
		}
	case KindToken:
		if e.TokenHash == "" {
			return errors.New("token entry requires a token hash")
		}
		if e.PasswordHash != "" {
			return errors.New("token entry must not carry a password hash")
		}
		if e.Username != "" {
			return errors.New("token entry must not carry a username")
		}
	default:
		return fmt.Errorf("unknown entry kind %q", e.Kind)
	}
	return nil
}

// HasGroup reports whether the entry belongs to the given group id.
func (e *AuthEntry) HasGroup(gid uuid.UUID) bool {
	for _, g := range e.GroupIDs {
		if g == gid {
			return true
		}
	}
	return false
}

// Group is a named bucket entries are organized under. Forward-auth
// endpoints are scoped by group name.
type Group struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// DataFile is the on-disk document shape: the complete set of entries and
// groups, serialized as pretty-printed JSON.
type DataFile struct {
	Entries []AuthEntry `json:"entries"`
	Groups  []Group     `json:"groups"`
}

// NewDataFile returns an empty document equivalent to a missing data file.
func NewDataFile() DataFile {
	return DataFile{Entries: []AuthEntry{}, Groups: []Group{}}
}

// dedupeIDs returns ids with duplicates removed, preserving first occurrence.
func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// DedupeGroupIDs normalizes an entry's group id set, removing duplicates.
func DedupeGroupIDs(ids []uuid.UUID) []uuid.UUID {
	return dedupeIDs(ids)
}
