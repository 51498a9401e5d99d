// Package httpapi wires the gateway's external HTTP surface: OIDC
// login/callback/logout, the authenticated-principal lookup, and the
// group-scoped forward-auth endpoints consumed by a reverse proxy.
package httpapi

import (
	"net/http"

	"authgate/internal/baseurl"
	"authgate/internal/oidcclient"
	"authgate/internal/sandbox"
	"authgate/internal/session"
	"authgate/internal/store"
)

// SandboxScript holds a loaded claims check script source awaiting
// evaluation per callback. The source is kept as read from disk; when
// IsTypeScript is set it is transpiled to JavaScript on each evaluation.
type SandboxScript struct {
	Source       string
	IsTypeScript bool
}

// App bundles every long-lived dependency the HTTP handlers need. It is
// constructed once in cmd/server/main.go and injected into the handlers
// rather than referenced through package globals.
type App struct {
	Store     *store.Store
	Sessions  *session.Table
	Pending   *oidcclient.PendingSet
	OIDC      *oidcclient.Client // nil when OIDC is disabled
	Sandbox   *SandboxScript     // nil when no claims_check_script is configured
	BaseURL   baseurl.Config
	BindHost  string
	BindPort  int
	CookieKey string // session cookie name
	Secure    bool   // set the cookie's Secure attribute
}

// NewApp constructs an App from its dependencies.
func NewApp(st *store.Store, sessions *session.Table, pending *oidcclient.PendingSet, oidc *oidcclient.Client, sb *SandboxScript, baseURLCfg baseurl.Config, bindHost string, bindPort int, secure bool) *App {
	return &App{
		Store:     st,
		Sessions:  sessions,
		Pending:   pending,
		OIDC:      oidc,
		Sandbox:   sb,
		BaseURL:   baseURLCfg,
		BindHost:  bindHost,
		BindPort:  bindPort,
		CookieKey: "authgate_session",
		Secure:    secure,
	}
}

func evaluateClaims(sb *SandboxScript, claims map[string]any) (sandbox.Result, error) {
	if sb == nil {
		return sandbox.DefaultExtract(claims), nil
	}
	return sandbox.Run(sb.Source, sb.IsTypeScript, claims)
}

// headersFrom converts Fiber's request headers into net/http.Header so the
// framework-agnostic baseurl resolver can consume them.
func headersFrom(raw map[string][]string) http.Header {
	h := make(http.Header, len(raw))
	for k, v := range raw {
		h[http.CanonicalHeaderKey(k)] = v
	}
	return h
}
