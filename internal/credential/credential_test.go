package credential

import (
	"encoding/base64"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	ok, err := VerifyPassword("s3cret", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatal("expected password to verify")
	}
	ok, err = VerifyPassword("wrong", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched password to fail verification")
	}
}

func TestGenerateTokenRoundTrip(t *testing.T) {
	plaintext, hash, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if plaintext == "" || hash == "" {
		t.Fatal("expected non-empty plaintext and hash")
	}
	if !VerifyToken(plaintext, hash) {
		t.Fatal("expected generated token to verify")
	}
	if VerifyToken(plaintext+"x", hash) {
		t.Fatal("expected altered token to fail verification")
	}
}

func TestParseBasicAuthHeader(t *testing.T) {
	cases := []struct {
		name    string
		value   string
		wantOK  bool
		user    string
		pass    string
	}{
		{"valid", "Basic YWxpY2U6czNjcmV0", true, "alice", "s3cret"},
		{"missing prefix", "Bearer abc", false, "", ""},
		{"bad base64", "Basic ???", false, "", ""},
		{"no colon", "Basic " + base64.StdEncoding.EncodeToString([]byte("nocolon")), false, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user, pass, ok := ParseBasicAuthHeader(tc.value)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && (user != tc.user || pass != tc.pass) {
				t.Fatalf("got (%q, %q), want (%q, %q)", user, pass, tc.user, tc.pass)
			}
		})
	}
}

func TestParseBearerAuthHeader(t *testing.T) {
	token, ok := ParseBearerAuthHeader("Bearer abc123")
	if !ok || token != "abc123" {
		t.Fatalf("got (%q, %v), want (abc123, true)", token, ok)
	}
	if _, ok := ParseBearerAuthHeader("Basic abc123"); ok {
		t.Fatal("expected Basic header to not parse as bearer")
	}
}
