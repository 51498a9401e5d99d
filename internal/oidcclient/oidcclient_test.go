package oidcclient

import (
	"testing"

	"authgate/internal/config"
)

func TestResolveRedirectURIAbsoluteOverride(t *testing.T) {
	c := &Client{redirectURI: "https://static.example.com/cb"}
	got := c.resolveRedirectURI("https://ignored.example.com")
	if got != "https://static.example.com/cb" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveRedirectURIRelativeJoinsBaseURL(t *testing.T) {
	c := &Client{redirectURI: "/auth/callback"}
	got := c.resolveRedirectURI("https://gateway.example.com/")
	if got != "https://gateway.example.com/auth/callback" {
		t.Fatalf("got %q", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "", "b", "c"); got != "b" {
		t.Fatalf("got %q", got)
	}
	if got := firstNonEmpty("a", "b"); got != "a" {
		t.Fatalf("got %q", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestNewFailsWithoutEndpointsOrWellKnown(t *testing.T) {
	cfg := &config.OIDCConfig{ClientID: "x"}
	if _, err := New(nil, cfg); err == nil { //nolint:staticcheck // nil ctx unused before the failing check
		t.Fatal("expected error for incomplete configuration")
	}
}
