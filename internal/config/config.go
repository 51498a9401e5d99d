// Package config loads the gateway's TOML configuration file and applies
// SECTION__KEY environment variable overrides on top of it.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"authgate/internal/apperr"
)

// ServerConfig is the `[server]` table.
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	WebUIDir        string `toml:"webui_dir"`
	ExternalBaseURL string `toml:"external_base_url"`
}

// OIDCConfig is the `[oidc]` table. A nil *OIDCConfig on AppConfig means
// OIDC is disabled and /auth/login creates a dev session instead.
type OIDCConfig struct {
	ClientID                    string   `toml:"client_id"`
	ClientSecret                string   `toml:"client_secret"`
	WellKnownURL                string   `toml:"well_known_url"`
	IssuerURL                   string   `toml:"issuer_url"`
	AuthorizationEndpoint       string   `toml:"authorization_endpoint"`
	TokenEndpoint               string   `toml:"token_endpoint"`
	UserinfoEndpoint            string   `toml:"userinfo_endpoint"`
	JWKSURI                     string   `toml:"jwks_uri"`
	Scopes                      []string `toml:"-"`
	ScopesRaw                   any      `toml:"scopes"`
	IDTokenSigningAlgValues     []string `toml:"-"`
	IDTokenSigningAlgValuesRaw  any      `toml:"id_token_signing_alg_values_supported"`
	UserinfoSigningAlgValues    []string `toml:"-"`
	UserinfoSigningAlgValuesRaw any      `toml:"userinfo_signing_alg_values_supported"`
	TokenEndpointAuthMethods    []string `toml:"-"`
	TokenEndpointAuthMethodsRaw any      `toml:"token_endpoint_auth_methods_supported"`
	ClaimsCheckScript           string   `toml:"claims_check_script"`
	PKCEEnabled                 bool     `toml:"pkce_enabled"`
	RedirectURI                 string   `toml:"redirect_uri"`
}

// DataConfig is the `[data]` table.
type DataConfig struct {
	Path string `toml:"path"`
}

// AppConfig is the complete parsed configuration.
type AppConfig struct {
	Server ServerConfig `toml:"server"`
	OIDC   *OIDCConfig  `toml:"oidc"`
	Data   DataConfig   `toml:"data"`
}

func defaultConfig() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            7021,
			ExternalBaseURL: "auto",
		},
		Data: DataConfig{
			Path: "./data/data.json",
		},
	}
}

// Load reads the TOML file at path (if present), applies SECTION__KEY
// environment overrides, normalizes comma/whitespace-separated list fields,
// and validates the result.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, apperr.ConfigParse(err)
			}
		} else if !os.IsNotExist(err) {
			return nil, apperr.ConfigRead(err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.OIDC != nil {
		cfg.OIDC.Scopes = normalizeList(cfg.OIDC.ScopesRaw, []string{"openid", "profile", "email"})
		cfg.OIDC.IDTokenSigningAlgValues = normalizeList(cfg.OIDC.IDTokenSigningAlgValuesRaw, nil)
		cfg.OIDC.UserinfoSigningAlgValues = normalizeList(cfg.OIDC.UserinfoSigningAlgValuesRaw, nil)
		cfg.OIDC.TokenEndpointAuthMethods = normalizeList(cfg.OIDC.TokenEndpointAuthMethodsRaw, nil)
		if cfg.OIDC.RedirectURI == "" {
			cfg.OIDC.RedirectURI = "/auth/callback"
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.OIDC == nil {
		return nil
	}
	o := c.OIDC
	if o.WellKnownURL != "" {
		return nil
	}
	missing := []string{}
	if o.IssuerURL == "" {
		missing = append(missing, "issuer_url")
	}
	if o.AuthorizationEndpoint == "" {
		missing = append(missing, "authorization_endpoint")
	}
	if o.TokenEndpoint == "" {
		missing = append(missing, "token_endpoint")
	}
	if o.UserinfoEndpoint == "" {
		missing = append(missing, "userinfo_endpoint")
	}
	if o.JWKSURI == "" {
		missing = append(missing, "jwks_uri")
	}
	if len(missing) > 0 {
		return apperr.InvalidConfig("oidc: missing required endpoint(s) without well_known_url: " + strings.Join(missing, ", "))
	}
	return nil
}

// normalizeList accepts either a comma/whitespace-separated string or a TOML
// array and returns its non-empty items; items split from a string are
// trimmed, array items are kept as given. Falls back to def when raw is nil.
func normalizeList(raw any, def []string) []string {
	switch v := raw.(type) {
	case nil:
		return def
	case string:
		return splitCommaOrSpace(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	default:
		return def
	}
}

func splitCommaOrSpace(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// applyEnvOverrides applies a fixed set of SECTION__KEY environment variables
// (double underscore nesting) on top of the parsed file; the oidc
// *_supported list keys have no environment override. OIDC_ENABLED=false|0
// force-removes the [oidc] section regardless of file contents.
func applyEnvOverrides(cfg *AppConfig) {
	if v, ok := os.LookupEnv("OIDC_ENABLED"); ok {
		if v == "false" || v == "0" {
			cfg.OIDC = nil
		} else if cfg.OIDC == nil {
			cfg.OIDC = &OIDCConfig{}
		}
	}

	setIfPresent := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setIntIfPresent := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBoolIfPresent := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v != "false" && v != "0" && v != ""
		}
	}

	setIfPresent("SERVER__HOST", &cfg.Server.Host)
	setIntIfPresent("SERVER__PORT", &cfg.Server.Port)
	setIfPresent("SERVER__WEBUI_DIR", &cfg.Server.WebUIDir)
	setIfPresent("SERVER__EXTERNAL_BASE_URL", &cfg.Server.ExternalBaseURL)
	setIfPresent("DATA__PATH", &cfg.Data.Path)

	if cfg.OIDC != nil {
		setIfPresent("OIDC__CLIENT_ID", &cfg.OIDC.ClientID)
		setIfPresent("OIDC__CLIENT_SECRET", &cfg.OIDC.ClientSecret)
		setIfPresent("OIDC__WELL_KNOWN_URL", &cfg.OIDC.WellKnownURL)
		setIfPresent("OIDC__ISSUER_URL", &cfg.OIDC.IssuerURL)
		setIfPresent("OIDC__AUTHORIZATION_ENDPOINT", &cfg.OIDC.AuthorizationEndpoint)
		setIfPresent("OIDC__TOKEN_ENDPOINT", &cfg.OIDC.TokenEndpoint)
		setIfPresent("OIDC__USERINFO_ENDPOINT", &cfg.OIDC.UserinfoEndpoint)
		setIfPresent("OIDC__JWKS_URI", &cfg.OIDC.JWKSURI)
		setIfPresent("OIDC__CLAIMS_CHECK_SCRIPT", &cfg.OIDC.ClaimsCheckScript)
		setIfPresent("OIDC__REDIRECT_URI", &cfg.OIDC.RedirectURI)
		setBoolIfPresent("OIDC__PKCE_ENABLED", &cfg.OIDC.PKCEEnabled)
		if v, ok := os.LookupEnv("OIDC__SCOPES"); ok {
			cfg.OIDC.ScopesRaw = v
		}
	}
}
