// Package oidcclient wraps OIDC discovery, the authorization-code flow with
// optional PKCE, and userinfo-claims retrieval for a single configured
// identity provider.
package oidcclient

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"authgate/internal/apperr"
	"authgate/internal/config"
)

// Client drives the OIDC authorization-code flow against one provider,
// built either from well-known discovery or from manually configured
// endpoints when no well-known URL is present.
type Client struct {
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
	userinfoURL  string
	redirectURI  string
	pkceEnabled  bool
	httpClient   *http.Client
}

// AuthorizeRequest is what the caller must persist (keyed by state) to
// correlate the callback with the request that initiated it.
type AuthorizeRequest struct {
	URL          string
	State        string
	Nonce        string
	CodeVerifier string
}

// Claims is the merged ID-token + userinfo claims set for an authenticated
// user.
type Claims map[string]any

type discoveryDoc struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	UserinfoSigningAlgValuesSupported []string `json:"userinfo_signing_alg_values_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
}

// New builds a Client from the configured provider, fetching well-known
// discovery when a well-known URL is present and overlaying any endpoint
// fields the operator set explicitly.
func New(ctx context.Context, cfg *config.OIDCConfig) (*Client, error) {
	httpClient := &http.Client{Timeout: 10 * time.Second}

	issuer := cfg.IssuerURL
	authEndpoint := cfg.AuthorizationEndpoint
	tokenEndpoint := cfg.TokenEndpoint
	userinfoEndpoint := cfg.UserinfoEndpoint
	jwksURI := cfg.JWKSURI
	sigAlgs := cfg.IDTokenSigningAlgValues
	authMethods := cfg.TokenEndpointAuthMethods

	if cfg.WellKnownURL != "" {
		doc, err := fetchDiscovery(ctx, httpClient, cfg.WellKnownURL)
		if err != nil {
			return nil, err
		}
		issuer = firstNonEmpty(issuer, doc.Issuer)
		authEndpoint = firstNonEmpty(authEndpoint, doc.AuthorizationEndpoint)
		tokenEndpoint = firstNonEmpty(tokenEndpoint, doc.TokenEndpoint)
		userinfoEndpoint = firstNonEmpty(userinfoEndpoint, doc.UserinfoEndpoint)
		jwksURI = firstNonEmpty(jwksURI, doc.JWKSURI)
		if len(sigAlgs) == 0 {
			sigAlgs = doc.IDTokenSigningAlgValuesSupported
		}
		if len(authMethods) == 0 {
			authMethods = doc.TokenEndpointAuthMethodsSupported
		}
	}

	if issuer == "" || authEndpoint == "" || tokenEndpoint == "" || jwksURI == "" {
		return nil, apperr.OidcDiscovery("incomplete OIDC provider configuration: issuer, authorization_endpoint, token_endpoint and jwks_uri are all required")
	}
	if len(sigAlgs) == 0 {
		sigAlgs = []string{oidc.RS256}
	}

	keySet := oidc.NewRemoteKeySet(oidc.ClientContext(ctx, httpClient), jwksURI)
	verifier := oidc.NewVerifier(issuer, keySet, &oidc.Config{
		ClientID:             cfg.ClientID,
		SupportedSigningAlgs: sigAlgs,
	})

	return &Client{
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authEndpoint,
				TokenURL:  tokenEndpoint,
				AuthStyle: authStyleFor(authMethods),
			},
			Scopes: cfg.Scopes,
		},
		verifier:    verifier,
		userinfoURL: userinfoEndpoint,
		redirectURI: cfg.RedirectURI,
		pkceEnabled: cfg.PKCEEnabled,
		httpClient:  httpClient,
	}, nil
}

func fetchDiscovery(ctx context.Context, client *http.Client, wellKnownURL string) (discoveryDoc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnownURL, nil)
	if err != nil {
		return discoveryDoc{}, apperr.OidcDiscovery("failed to build discovery request: " + err.Error())
	}
	resp, err := client.Do(req)
	if err != nil {
		return discoveryDoc{}, apperr.OidcDiscovery("discovery request failed: " + err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return discoveryDoc{}, apperr.OidcDiscovery(fmt.Sprintf("discovery endpoint returned %d", resp.StatusCode))
	}
	var doc discoveryDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return discoveryDoc{}, apperr.OidcDiscovery("failed to parse discovery document: " + err.Error())
	}
	return doc, nil
}

// authStyleFor picks the oauth2 client-auth style from the provider's
// advertised (or operator-overridden) token endpoint auth methods.
func authStyleFor(methods []string) oauth2.AuthStyle {
	for _, m := range methods {
		switch m {
		case "client_secret_basic":
			return oauth2.AuthStyleInHeader
		case "client_secret_post":
			return oauth2.AuthStyleInParams
		}
	}
	return oauth2.AuthStyleAutoDetect
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveRedirectURI turns the configured redirect_uri (which may be a bare
// path such as "/auth/callback") into an absolute URL using the resolved
// external base URL for this request.
func (c *Client) resolveRedirectURI(externalBaseURL string) string {
	if strings.HasPrefix(c.redirectURI, "http://") || strings.HasPrefix(c.redirectURI, "https://") {
		return c.redirectURI
	}
	return strings.TrimSuffix(externalBaseURL, "/") + c.redirectURI
}

// Authorize builds the authorization-code redirect URL along with the
// CSRF state, nonce, and (when PKCE is enabled) code verifier the caller
// must persist under that state until the callback arrives.
func (c *Client) Authorize(externalBaseURL string) (AuthorizeRequest, error) {
	state, err := randomToken()
	if err != nil {
		return AuthorizeRequest{}, apperr.OidcDiscovery("failed to generate state: " + err.Error())
	}
	nonce, err := randomToken()
	if err != nil {
		return AuthorizeRequest{}, apperr.OidcDiscovery("failed to generate nonce: " + err.Error())
	}

	cfg := c.oauth2Config
	cfg.RedirectURL = c.resolveRedirectURI(externalBaseURL)

	opts := []oauth2.AuthCodeOption{oidc.Nonce(nonce)}

	var verifier string
	if c.pkceEnabled {
		verifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}

	return AuthorizeRequest{
		URL:          cfg.AuthCodeURL(state, opts...),
		State:        state,
		Nonce:        nonce,
		CodeVerifier: verifier,
	}, nil
}

// Exchange trades an authorization code for tokens, verifies the ID token
// (including the nonce minted in Authorize), and merges it with userinfo
// claims (userinfo takes precedence, matching common provider behavior
// where the ID token carries a minimal claim set).
func (c *Client) Exchange(ctx context.Context, code, externalBaseURL, expectedNonce, codeVerifier string) (Claims, error) {
	cfg := c.oauth2Config
	cfg.RedirectURL = c.resolveRedirectURI(externalBaseURL)

	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}

	httpCtx := oidc.ClientContext(ctx, c.httpClient)
	token, err := cfg.Exchange(httpCtx, code, opts...)
	if err != nil {
		return nil, apperr.OidcTokenExchange("code exchange failed: " + err.Error())
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, apperr.OidcTokenExchange("token response did not include an id_token")
	}

	idToken, err := c.verifier.Verify(httpCtx, rawIDToken)
	if err != nil {
		return nil, apperr.OidcTokenExchange("id_token verification failed: " + err.Error())
	}
	if expectedNonce != "" && idToken.Nonce != expectedNonce {
		return nil, apperr.OidcTokenExchange("id_token nonce did not match the authorization request")
	}

	claims := make(Claims)
	if err := idToken.Claims(&claims); err != nil {
		return nil, apperr.OidcClaims("failed to decode id_token claims: " + err.Error())
	}

	if c.userinfoURL != "" {
		userinfoClaims, err := c.fetchUserinfo(ctx, token.AccessToken)
		if err != nil {
			return nil, apperr.OidcClaims("userinfo request failed: " + err.Error())
		}
		for k, v := range userinfoClaims {
			claims[k] = v
		}
	}

	return claims, nil
}

func (c *Client) fetchUserinfo(ctx context.Context, accessToken string) (Claims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var claims Claims
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
