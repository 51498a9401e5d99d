package model

import (
	"testing"

	"github.com/google/uuid"
)

func TestAuthEntry_HasGroup(t *testing.T) {
	g1, g2 := uuid.New(), uuid.New()
	tests := []struct {
		name     string
		groupIDs []uuid.UUID
		check    uuid.UUID
		expected bool
	}{
		{"member", []uuid.UUID{g1, g2}, g1, true},
		{"not a member", []uuid.UUID{g1}, g2, false},
		{"empty group list", nil, g1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &AuthEntry{GroupIDs: tt.groupIDs}
			if got := e.HasGroup(tt.check); got != tt.expected {
				t.Errorf("HasGroup() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAuthEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		entry   AuthEntry
		wantErr bool
	}{
		{"valid basic", AuthEntry{Kind: KindBasic, Username: "alice", PasswordHash: "h"}, false},
		{"valid token", AuthEntry{Kind: KindToken, TokenHash: "t"}, false},
		{"basic missing username", AuthEntry{Kind: KindBasic, PasswordHash: "h"}, true},
		{"basic missing password hash", AuthEntry{Kind: KindBasic, Username: "alice"}, true},
		{"basic with token hash", AuthEntry{Kind: KindBasic, Username: "alice", PasswordHash: "h", TokenHash: "t"}, true},
		{"token missing token hash", AuthEntry{Kind: KindToken}, true},
		{"token with password hash", AuthEntry{Kind: KindToken, TokenHash: "t", PasswordHash: "h"}, true},
		{"token with username", AuthEntry{Kind: KindToken, TokenHash: "t", Username: "ci"}, true},
		{"unknown kind", AuthEntry{Kind: "saml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDedupeGroupIDsPreservesFirstOccurrenceOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	got := DedupeGroupIDs([]uuid.UUID{a, b, a, c, b})
	want := []uuid.UUID{a, b, c}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestNewDataFileIsEmptyNotNil(t *testing.T) {
	df := NewDataFile()
	if df.Entries == nil || df.Groups == nil {
		t.Fatal("expected NewDataFile to return non-nil empty slices")
	}
	if len(df.Entries) != 0 || len(df.Groups) != 0 {
		t.Fatal("expected NewDataFile to be empty")
	}
}
