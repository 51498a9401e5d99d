// Package sandbox evaluates an operator-supplied claims-policy script
// against an OIDC claims object in a bare JavaScript interpreter with no
// host bindings: no file, no network, no clock manipulation.
package sandbox

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"

	"authgate/internal/apperr"
)

// maxRunTime bounds script CPU time; the policy script is untrusted input.
const maxRunTime = 2 * time.Second

// Result is the verdict a claims-policy script returns.
type Result struct {
	Success     bool
	DisplayName string
	Picture     string
	Claims      map[string]any
}

// resultWire mirrors the JSON shape a script returns.
type resultWire struct {
	Success     bool           `json:"success"`
	DisplayName string         `json:"display_name"`
	Picture     string         `json:"picture"`
	Claims      map[string]any `json:"claims"`
	Error       string         `json:"error"`
}

// Run loads, transpiles (if needed), rewrites, and evaluates a claims-policy
// script against claims. isTypeScript should be true when the source file's
// extension is .ts or .mts.
//
// Returns apperr.ClaimsCheckFailed when the script explicitly reports
// success=false, and apperr.ClaimsCheck for any transpile, parse, execute,
// or deserialize failure.
func Run(source string, isTypeScript bool, claims map[string]any) (Result, error) {
	script := source
	if isTypeScript {
		script = TranspileTypeScriptToJS(script)
	}
	script = RewriteExportDefault(script)

	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return Result{}, apperr.ClaimsCheck("failed to encode claims: " + err.Error())
	}

	wrapped := buildWrapper(string(claimsJSON), script)

	raw, err := evaluate(wrapped)
	if err != nil {
		return Result{}, apperr.ClaimsCheck(err.Error())
	}

	var wire resultWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Result{}, apperr.ClaimsCheck("failed to parse script result: " + err.Error())
	}

	if !wire.Success {
		return Result{}, apperr.ClaimsCheckFailed(wire.Error)
	}

	return Result{
		Success:     true,
		DisplayName: wire.DisplayName,
		Picture:     wire.Picture,
		Claims:      wire.Claims,
	}, nil
}

func buildWrapper(claimsJSON, script string) string {
	var b strings.Builder
	b.WriteString("var __claims = JSON.parse(")
	b.WriteString(strconv.Quote(claimsJSON))
	b.WriteString(");\n")
	b.WriteString("var __exports = {};\n")
	b.WriteString(script)
	b.WriteString("\nvar __fn = __exports.default;\n")
	b.WriteString("if (typeof __fn !== 'function') { throw new Error('No default export function found in the script'); }\n")
	b.WriteString("var __result = __fn(__claims);\n")
	b.WriteString("JSON.stringify(__result);\n")
	return b.String()
}

func evaluate(wrapped string) (string, error) {
	vm := goja.New()

	timer := time.AfterFunc(maxRunTime, func() {
		vm.Interrupt("claims check script exceeded its execution time limit")
	})
	defer timer.Stop()

	value, err := vm.RunString(wrapped)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// RewriteExportDefault rewrites `export default [async] function` and bare
// `export default` into an assignment onto the wrapper's local
// `__exports.default` binding.
func RewriteExportDefault(script string) string {
	replacer := []struct{ old, new string }{
		{"export default async function", "__exports.default = async function"},
		{"export default function", "__exports.default = function"},
		{"export default", "__exports.default ="},
	}
	for _, r := range replacer {
		if strings.Contains(script, r.old) {
			return strings.Replace(script, r.old, r.new, 1)
		}
	}
	return script
}

// DefaultExtract implements the no-script fallback: display name from
// claims in priority order preferred_username, nickname, sub; picture if
// present.
func DefaultExtract(claims map[string]any) Result {
	displayName := ""
	for _, key := range []string{"preferred_username", "nickname", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			displayName = v
			break
		}
	}
	picture, _ := claims["picture"].(string)
	return Result{
		Success:     true,
		DisplayName: displayName,
		Picture:     picture,
		Claims:      claims,
	}
}
