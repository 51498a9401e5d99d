package httpapi

import (
	"github.com/gofiber/fiber/v3"

	"authgate/internal/apperr"
	"authgate/internal/baseurl"
	"authgate/internal/forwardauth"
	"authgate/internal/metrics"
	"authgate/internal/oidcclient"
)

// Login redirects the browser to the configured IdP's authorization
// endpoint, or creates a dev session directly when OIDC is disabled.
func (a *App) Login(c fiber.Ctx) error {
	if a.OIDC == nil {
		id := a.Sessions.Create("dev", "", nil)
		a.setSessionCookie(c, id)
		return c.Redirect().Status(fiber.StatusFound).To("/")
	}

	externalBaseURL := a.resolveBaseURL(c)
	req, err := a.OIDC.Authorize(externalBaseURL)
	if err != nil {
		return jsonError(c, err)
	}
	a.Pending.Insert(req.State, oidcclient.PendingEntry{Nonce: req.Nonce, CodeVerifier: req.CodeVerifier})
	return c.Redirect().Status(fiber.StatusFound).To(req.URL)
}

// Callback consumes the pending OAuth state, exchanges the authorization
// code, runs the claims-policy sandbox, and creates a session on success.
func (a *App) Callback(c fiber.Ctx) error {
	if a.OIDC == nil {
		return jsonError(c, apperr.AuthFailed())
	}

	state := c.Query("state")
	code := c.Query("code")

	pending, ok := a.Pending.Take(state)
	if !ok {
		metrics.RecordOIDCLogin("error")
		return jsonError(c, apperr.AuthFailed())
	}

	externalBaseURL := a.resolveBaseURL(c)
	claims, err := a.OIDC.Exchange(c.Context(), code, externalBaseURL, pending.Nonce, pending.CodeVerifier)
	if err != nil {
		metrics.RecordOIDCLogin("error")
		return jsonError(c, err)
	}

	result, err := evaluateClaims(a.Sandbox, claims)
	if err != nil {
		if ae, ok := apperr.As(err); ok && ae.Kind == apperr.KindClaimsCheckFailed {
			metrics.RecordOIDCLogin("claims_rejected")
		} else {
			metrics.RecordOIDCLogin("error")
		}
		return jsonError(c, err)
	}

	id := a.Sessions.Create(result.DisplayName, result.Picture, result.Claims)
	a.setSessionCookie(c, id)
	metrics.RecordOIDCLogin("success")
	return c.Redirect().To("/")
}

// Logout evicts the session and clears the cookie.
func (a *App) Logout(c fiber.Ctx) error {
	if id := c.Cookies(a.CookieKey); id != "" {
		a.Sessions.Remove(id)
	}
	a.clearSessionCookie(c)
	return c.SendStatus(fiber.StatusNoContent)
}

// Me returns the authenticated principal for the current session cookie.
func (a *App) Me(c fiber.Ctx) error {
	id := c.Cookies(a.CookieKey)
	if id == "" {
		return jsonError(c, apperr.SessionNotFound())
	}
	sess, ok := a.Sessions.Get(id)
	if !ok {
		return jsonError(c, apperr.SessionNotFound())
	}
	return jsonSuccess(c, fiber.Map{
		"display_name": sess.DisplayName,
		"picture":      sess.Picture,
		"claims":       sess.Claims,
	})
}

// ForwardAuth validates the Authorization header against the named group
// for a reverse-proxy forward-auth subrequest. kind ("traefik" or "nginx")
// only labels the metrics; the decision procedure is identical either way.
func (a *App) ForwardAuth(c fiber.Ctx) error {
	kind := c.Params("kind")
	group := c.Params("group")

	result, err := forwardauth.Check(a.Store, group, c.Get(fiber.HeaderAuthorization))
	if err != nil {
		metrics.RecordForwardAuth(kind, "deny")
		c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="authgate", Bearer realm="authgate"`)
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	metrics.RecordForwardAuth(kind, "allow")
	c.Set("X-Auth-User", result.EntryName)
	return c.SendStatus(fiber.StatusOK)
}

func (a *App) resolveBaseURL(c fiber.Ctx) string {
	headers := headersFrom(c.GetReqHeaders())
	return baseurl.Resolve(a.BaseURL, headers, a.BindHost, a.BindPort)
}

func (a *App) setSessionCookie(c fiber.Ctx, id string) {
	c.Cookie(&fiber.Cookie{
		Name:     a.CookieKey,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
		MaxAge:   86400,
		Secure:   a.Secure,
	})
}

func (a *App) clearSessionCookie(c fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     a.CookieKey,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
		MaxAge:   -1,
		Secure:   a.Secure,
	})
}
