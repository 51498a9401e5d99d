// Package baseurl reconstructs the externally visible origin of a request
// behind an unknown and possibly multi-hop proxy chain. It is pure: no I/O,
// no globals, safe to call on every login and callback.
package baseurl

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Config selects how the base URL is determined.
type Config struct {
	// Fixed, when non-empty, is returned verbatim (trimmed of trailing '/'),
	// bypassing all header inspection.
	Fixed string
}

// Auto reports whether header-based resolution should be used.
func (c Config) Auto() bool { return c.Fixed == "" }

// ParseExternalBaseURL interprets the `external_base_url` configuration
// value: "auto" (case-insensitive) or an empty value selects header-based
// resolution; anything else is a fixed absolute URL.
func ParseExternalBaseURL(value string) Config {
	if strings.EqualFold(strings.TrimSpace(value), "auto") || value == "" {
		return Config{}
	}
	return Config{Fixed: strings.TrimRight(value, "/")}
}

// Resolve produces an absolute origin "scheme://host[:port]" for the given
// request headers, falling back to the server's own bind address/port when
// no proxy header yields a usable host.
func Resolve(cfg Config, headers http.Header, fallbackHost string, fallbackPort int) string {
	if !cfg.Auto() {
		return cfg.Fixed
	}
	return inferFromHeaders(headers, fallbackHost, fallbackPort)
}

func inferFromHeaders(headers http.Header, fallbackHost string, fallbackPort int) string {
	type pair struct{ host, proto string }
	sources := []pair{}
	{
		h, p := tryForwarded(headers)
		sources = append(sources, pair{h, p})
	}
	{
		h, p := tryXForwarded(headers)
		sources = append(sources, pair{h, p})
	}
	{
		h, _ := tryHostHeader(headers)
		sources = append(sources, pair{h, ""})
	}

	var hostFromHeaders string
	for _, s := range sources {
		if s.host != "" {
			hostFromHeaders = s.host
			break
		}
	}

	host := hostFromHeaders
	if host == "" {
		host = formatFallbackHost(fallbackHost, fallbackPort)
	}

	var protocol string
	for _, s := range sources {
		if s.proto != "" {
			protocol = s.proto
			break
		}
	}
	if protocol == "" {
		if hostFromHeaders != "" {
			protocol = inferProtocolFromHost(hostFromHeaders)
		} else {
			protocol = "http"
		}
	}

	return fmt.Sprintf("%s://%s", protocol, host)
}

// tryForwarded parses the first node of a `Forwarded` header (RFC 7239),
// stripping surrounding quotes from host and proto.
func tryForwarded(headers http.Header) (host, proto string) {
	value := headers.Get("Forwarded")
	if value == "" {
		return "", ""
	}
	firstNode, _, _ := strings.Cut(value, ",")
	for _, field := range strings.Split(firstNode, ";") {
		field = strings.TrimSpace(field)
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.Trim(strings.TrimSpace(v), `"`)
		switch k {
		case "host":
			host = v
		case "proto":
			proto = v
		}
	}
	return host, proto
}

func tryXForwarded(headers http.Header) (host, proto string) {
	host = strings.TrimSpace(headers.Get("X-Forwarded-Host"))
	proto = strings.TrimSpace(headers.Get("X-Forwarded-Proto"))
	return host, proto
}

func tryHostHeader(headers http.Header) (host, proto string) {
	host = strings.TrimSpace(headers.Get("Host"))
	if host == "" {
		host = strings.TrimSpace(headers.Get(":authority"))
	}
	return host, ""
}

func inferProtocolFromHost(host string) string {
	if isLoopbackHost(host) {
		return "http"
	}
	return "https"
}

func formatFallbackHost(host string, port int) string {
	if isDefaultPort("http", port) {
		return host
	}
	return host + ":" + strconv.Itoa(port)
}

func isDefaultPort(proto string, port int) bool {
	return (proto == "http" && port == 80) || (proto == "https" && port == 443)
}

func isLoopbackHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1", "[::1]":
		return true
	}
	if strings.HasPrefix(host, "[") {
		if idx := strings.Index(host, "]"); idx >= 0 {
			return isLoopbackHost(host[:idx+1])
		}
		return false
	}
	if idx := strings.LastIndex(host, ":"); idx >= 0 && strings.Count(host, ":") == 1 {
		return isLoopbackHost(host[:idx])
	}
	return false
}
