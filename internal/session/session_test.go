package session

import (
	"testing"
	"time"
)

func TestCreateGetRemove(t *testing.T) {
	tbl := NewTable(time.Hour)
	id := tbl.Create("Ada", "https://example.com/p.png", map[string]any{"sub": "123"})

	got, ok := tbl.Get(id)
	if !ok {
		t.Fatal("expected session to be found")
	}
	if got.DisplayName != "Ada" {
		t.Fatalf("got display name %q", got.DisplayName)
	}

	tbl.Remove(id)
	if _, ok := tbl.Get(id); ok {
		t.Fatal("expected session to be gone after Remove")
	}
}

func TestExpiredSessionNotReturned(t *testing.T) {
	tbl := NewTable(time.Millisecond)
	id := tbl.Create("Ada", "", nil)
	time.Sleep(5 * time.Millisecond)
	if _, ok := tbl.Get(id); ok {
		t.Fatal("expected expired session to not be returned")
	}
}
