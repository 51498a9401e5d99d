package sandbox

import (
	"strings"
	"testing"

	"authgate/internal/apperr"
)

func TestRunSucceedsWithExportDefaultFunction(t *testing.T) {
	script := `
export default function(claims) {
	return { success: true, display_name: claims.preferred_username, claims: claims };
}
`
	result, err := Run(script, false, map[string]any{"preferred_username": "alice"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success || result.DisplayName != "alice" {
		t.Fatalf("got %+v", result)
	}
}

func TestRunReturnsClaimsCheckFailedWhenScriptReportsFailure(t *testing.T) {
	script := `
export default function(claims) {
	return { success: false, error: "claims rejected" };
}
`
	_, err := Run(script, false, map[string]any{})
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindClaimsCheckFailed {
		t.Fatalf("expected ClaimsCheckFailed, got %v", err)
	}
	if ae.Message != "claims rejected" {
		t.Fatalf("got message %q", ae.Message)
	}
}

func TestRunReturnsErrorWhenDefaultExportMissing(t *testing.T) {
	script := `function notDefault(claims) { return { success: true }; }`
	_, err := Run(script, false, map[string]any{})
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "No default export function found"; !strings.Contains(err.Error(), want) {
		t.Fatalf("got %q, want substring %q", err.Error(), want)
	}
}

func TestRewriteExportDefaultFunction(t *testing.T) {
	out := RewriteExportDefault("export default function(c) { return c; }")
	if strings.Contains(out, "export default") {
		t.Fatalf("export default was not rewritten: %q", out)
	}
	if !strings.Contains(out, "__exports.default = function") {
		t.Fatalf("got %q", out)
	}
}

func TestRewriteBareExportDefault(t *testing.T) {
	out := RewriteExportDefault("const fn = (c) => c;\nexport default fn;")
	if !strings.Contains(out, "__exports.default = fn;") {
		t.Fatalf("got %q", out)
	}
}

func TestTranspileTypeScriptStripsAnnotations(t *testing.T) {
	src := `export default function(claims: Record<string, unknown>): Result {
	const name: string = claims.sub as string;
	return { success: true, display_name: name };
}`
	out := TranspileTypeScriptToJS(src)
	if strings.Contains(out, ": Record") || strings.Contains(out, ": Result") || strings.Contains(out, ": string") {
		t.Fatalf("type annotations survived transpile: %q", out)
	}
}

func TestRunEvaluatesTypeScriptScript(t *testing.T) {
	script := `
interface Verdict {
	success: boolean;
	display_name?: string;
}

export default function(claims: Record<string, unknown>): Verdict {
	const name: string = claims.preferred_username as string;
	return { success: true, display_name: name };
}
`
	result, err := Run(script, true, map[string]any{"preferred_username": "ada"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success || result.DisplayName != "ada" {
		t.Fatalf("got %+v", result)
	}
}

func TestDefaultExtractPrefersPreferredUsername(t *testing.T) {
	claims := map[string]any{"preferred_username": "bob", "nickname": "bobby", "sub": "123"}
	result := DefaultExtract(claims)
	if result.DisplayName != "bob" {
		t.Fatalf("got %q", result.DisplayName)
	}
}

func TestDefaultExtractFallsBackToSub(t *testing.T) {
	claims := map[string]any{"sub": "123"}
	result := DefaultExtract(claims)
	if result.DisplayName != "123" {
		t.Fatalf("got %q", result.DisplayName)
	}
}
