// Package apperr defines the stable error kinds surfaced by the core
// subsystems so the HTTP boundary can map them to status codes without
// inspecting message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable error classification, analogous to the sentinel error
// vars in db.Err*, but carrying structured detail where needed.
type Kind int

const (
	KindUnknown Kind = iota
	KindEntryNotFound
	KindGroupNotFound
	KindDuplicateEntryName
	KindDuplicateGroupName
	KindInvalidEntry
	KindAuthFailed
	KindSessionNotFound
	KindSessionExpired
	KindClaimsCheckFailed
	KindInvalidConfig
	KindConfigLoad
	KindConfigRead
	KindConfigParse
	KindDataRead
	KindDataWrite
	KindDataParse
	KindDataSerialize
	KindOidcDiscovery
	KindOidcTokenExchange
	KindOidcClaims
	KindPasswordHash
	KindClaimsCheck
)

// Error is the core error type. Handlers switch on Kind(); the message is
// safe to surface to callers except where noted at the call site.
type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

func new_(k Kind, msg string, wrapped error) *Error {
	return &Error{Kind: k, Message: msg, err: wrapped}
}

func EntryNotFound(id string) *Error {
	return new_(KindEntryNotFound, fmt.Sprintf("entry not found: %s", id), nil)
}

func GroupNotFound(id string) *Error {
	return new_(KindGroupNotFound, fmt.Sprintf("group not found: %s", id), nil)
}

func DuplicateEntryName(name string) *Error {
	return new_(KindDuplicateEntryName, fmt.Sprintf("entry name already in use: %s", name), nil)
}

func DuplicateGroupName(name string) *Error {
	return new_(KindDuplicateGroupName, fmt.Sprintf("group name already in use: %s", name), nil)
}

func InvalidEntry(err error) *Error {
	return new_(KindInvalidEntry, "invalid entry", err)
}

func AuthFailed() *Error {
	return new_(KindAuthFailed, "authentication failed", nil)
}

func SessionNotFound() *Error {
	return new_(KindSessionNotFound, "session not found", nil)
}

func SessionExpired() *Error {
	return new_(KindSessionExpired, "session expired", nil)
}

func ClaimsCheckFailed(message string) *Error {
	if message == "" {
		message = "Unknown error"
	}
	return new_(KindClaimsCheckFailed, message, nil)
}

func InvalidConfig(message string) *Error {
	return new_(KindInvalidConfig, message, nil)
}

func ConfigLoad(err error) *Error {
	return new_(KindConfigLoad, "failed to load configuration", err)
}

func ConfigRead(err error) *Error {
	return new_(KindConfigRead, "failed to read configuration file", err)
}

func ConfigParse(err error) *Error {
	return new_(KindConfigParse, "failed to parse configuration file", err)
}

func DataRead(err error) *Error {
	return new_(KindDataRead, "failed to read data file", err)
}

func DataWrite(err error) *Error {
	return new_(KindDataWrite, "failed to write data file", err)
}

func DataParse(err error) *Error {
	return new_(KindDataParse, "failed to parse data file", err)
}

func DataSerialize(err error) *Error {
	return new_(KindDataSerialize, "failed to serialize data file", err)
}

func OidcDiscovery(message string) *Error {
	return new_(KindOidcDiscovery, message, nil)
}

func OidcTokenExchange(message string) *Error {
	return new_(KindOidcTokenExchange, message, nil)
}

func OidcClaims(message string) *Error {
	return new_(KindOidcClaims, message, nil)
}

func PasswordHash(err error) *Error {
	return new_(KindPasswordHash, "password hashing failed", err)
}

func ClaimsCheck(message string) *Error {
	return new_(KindClaimsCheck, message, nil)
}

// As is a thin convenience wrapper around errors.As for *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
