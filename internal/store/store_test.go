package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"authgate/internal/apperr"
	"authgate/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestCreateGroupAndEntry(t *testing.T) {
	s := newTestStore(t)

	g, err := s.CreateGroup(model.Group{Name: "admins"}, nil)
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	e, err := s.CreateEntry(model.AuthEntry{
		Name:         "alice",
		Kind:         model.KindBasic,
		Username:     "alice",
		PasswordHash: "hash",
		GroupIDs:     []uuid.UUID{g.ID},
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	got, err := s.GetEntry(e.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if !got.HasGroup(g.ID) {
		t.Fatal("expected entry to belong to group")
	}
}

func basicEntry(name string, groupIDs ...uuid.UUID) model.AuthEntry {
	return model.AuthEntry{
		Name:         name,
		Kind:         model.KindBasic,
		Username:     name,
		PasswordHash: "$argon2id$stub",
		GroupIDs:     groupIDs,
	}
}

func TestCreateEntryUnknownGroupFails(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateEntry(basicEntry("alice", uuid.New()))
	if err == nil {
		t.Fatal("expected error for unknown group id")
	}
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindGroupNotFound {
		t.Fatalf("expected GroupNotFound, got %v", err)
	}
}

func TestCreateEntryRejectsInconsistentShape(t *testing.T) {
	s := newTestStore(t)
	cases := []struct {
		name  string
		entry model.AuthEntry
	}{
		{"basic without password hash", model.AuthEntry{Name: "a", Kind: model.KindBasic, Username: "a"}},
		{"basic with token hash", model.AuthEntry{Name: "b", Kind: model.KindBasic, Username: "b", PasswordHash: "h", TokenHash: "t"}},
		{"token without token hash", model.AuthEntry{Name: "c", Kind: model.KindToken}},
		{"token with password hash", model.AuthEntry{Name: "d", Kind: model.KindToken, TokenHash: "t", PasswordHash: "h"}},
		{"unknown kind", model.AuthEntry{Name: "e", Kind: "saml"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateEntry(tc.entry)
			ae, ok := apperr.As(err)
			if !ok || ae.Kind != apperr.KindInvalidEntry {
				t.Fatalf("expected InvalidEntry, got %v", err)
			}
		})
	}
}

func TestUpdateEntryRejectsInconsistentShape(t *testing.T) {
	s := newTestStore(t)
	e, err := s.CreateEntry(basicEntry("alice"))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	tokenHash := "deadbeef"
	_, err = s.UpdateEntry(e.ID, EntryUpdate{TokenHash: &tokenHash})
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindInvalidEntry {
		t.Fatalf("expected InvalidEntry, got %v", err)
	}

	got, err := s.GetEntry(e.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.TokenHash != "" {
		t.Fatal("expected rejected update to leave the entry unchanged")
	}
}

func TestDuplicateEntryName(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateEntry(basicEntry("alice")); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	_, err := s.CreateEntry(basicEntry("alice"))
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindDuplicateEntryName {
		t.Fatalf("expected DuplicateEntryName, got %v", err)
	}
}

func TestDeleteGroupCascadesToEntries(t *testing.T) {
	s := newTestStore(t)
	g, _ := s.CreateGroup(model.Group{Name: "admins"}, nil)
	e, _ := s.CreateEntry(basicEntry("alice", g.ID))

	if err := s.DeleteGroup(g.ID); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}

	got, err := s.GetEntry(e.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.HasGroup(g.ID) {
		t.Fatal("expected dangling group reference to be removed")
	}
	if _, err := s.GetGroup(g.ID); err == nil {
		t.Fatal("expected group to be gone")
	}
}

func TestUpdateGroupReshapesMembership(t *testing.T) {
	s := newTestStore(t)
	g, _ := s.CreateGroup(model.Group{Name: "admins"}, nil)
	a, _ := s.CreateEntry(basicEntry("a"))
	b, _ := s.CreateEntry(basicEntry("b", g.ID))

	newMembers := []uuid.UUID{a.ID}
	if _, err := s.UpdateGroup(g.ID, "admins", &newMembers); err != nil {
		t.Fatalf("UpdateGroup: %v", err)
	}

	gotA, _ := s.GetEntry(a.ID)
	gotB, _ := s.GetEntry(b.ID)
	if !gotA.HasGroup(g.ID) {
		t.Fatal("expected a to be added to group")
	}
	if gotB.HasGroup(g.ID) {
		t.Fatal("expected b to be removed from group")
	}
}

func TestTwoStoresObserveEachOthersCommits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open s1: %v", err)
	}
	defer s1.Close()
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Open s2: %v", err)
	}
	defer s2.Close()

	g, err := s1.CreateGroup(model.Group{Name: "ops"}, nil)
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := s2.GetGroup(g.ID); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("s2 did not observe s1's commit within 2 seconds")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestMutationsPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s1.CreateGroup(model.Group{Name: "ops"}, nil); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	groups := s2.ListGroups()
	if len(groups) != 1 || groups[0].Name != "ops" {
		t.Fatalf("expected persisted group, got %+v", groups)
	}
}
