// Package forwardauth implements the group-scoped credential check used by
// reverse-proxy forward-auth subrequests (Traefik ForwardAuth, Nginx
// auth_request).
package forwardauth

import (
	"github.com/google/uuid"

	"authgate/internal/apperr"
	"authgate/internal/credential"
	"authgate/internal/model"
)

// Store is the subset of the credential store the validator depends on.
type Store interface {
	FindGroupByName(name string) (model.Group, bool)
	EntriesByGroupID(gid uuid.UUID) []model.AuthEntry
}

// Result is the outcome of a successful validation: the name of the entry
// that matched, forwarded downstream as X-Auth-User.
type Result struct {
	EntryName string
}

// Check runs the forward-auth decision procedure:
//  1. resolve the group by name,
//  2. load its entries,
//  3. parse the Authorization header,
//  4. try Basic against kind=basic entries, then Bearer against kind=token
//     entries, first match wins.
//
// Any failure (unknown group, no entries, missing/unparseable header, no
// credential match) returns apperr.AuthFailed().
func Check(st Store, groupName, authorizationHeader string) (Result, error) {
	group, ok := st.FindGroupByName(groupName)
	if !ok {
		return Result{}, apperr.AuthFailed()
	}

	entries := st.EntriesByGroupID(group.ID)
	if len(entries) == 0 {
		return Result{}, apperr.AuthFailed()
	}

	if authorizationHeader == "" {
		return Result{}, apperr.AuthFailed()
	}

	if user, pass, ok := credential.ParseBasicAuthHeader(authorizationHeader); ok {
		if name, ok := checkBasicAuth(entries, user, pass); ok {
			return Result{EntryName: name}, nil
		}
		return Result{}, apperr.AuthFailed()
	}

	if token, ok := credential.ParseBearerAuthHeader(authorizationHeader); ok {
		if name, ok := checkTokenAuth(entries, token); ok {
			return Result{EntryName: name}, nil
		}
		return Result{}, apperr.AuthFailed()
	}

	return Result{}, apperr.AuthFailed()
}

func checkBasicAuth(entries []model.AuthEntry, user, pass string) (string, bool) {
	for _, e := range entries {
		if e.Kind != model.KindBasic || e.Username != user {
			continue
		}
		ok, err := credential.VerifyPassword(pass, e.PasswordHash)
		if err != nil || !ok {
			continue
		}
		return e.Name, true
	}
	return "", false
}

func checkTokenAuth(entries []model.AuthEntry, token string) (string, bool) {
	for _, e := range entries {
		if e.Kind != model.KindToken {
			continue
		}
		if credential.VerifyToken(token, e.TokenHash) {
			return e.Name, true
		}
	}
	return "", false
}
