package validation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsValidName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"simple", "ledger", true},
		{"hyphen", "ledger-demo", true},
		{"underscore", "ledger_demo", true},
		{"digits", "demo2", true},
		{"leading digit", "2demo", false},
		{"leading hyphen", "-demo", false},
		{"space", "ledger demo", false},
		{"special", "demo@1", false},
		{"empty", "", false},
		{"max length", "a" + strings.Repeat("b", MaxNameLength-1), true},
		{"too long", "a" + strings.Repeat("b", MaxNameLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidName(tt.input); got != tt.expected {
				t.Errorf("IsValidName(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsValidIdentifierChar(t *testing.T) {
	for _, ch := range "azAZ09-_" {
		if !IsValidIdentifierChar(ch) {
			t.Errorf("expected %q to be valid", ch)
		}
	}
	for _, ch := range " .@/\\é" {
		if IsValidIdentifierChar(ch) {
			t.Errorf("expected %q to be invalid", ch)
		}
	}
}

func TestResolveWithin_Valid(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "scenarios"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "scenarios", "demo.yaml"), []byte("name: demo"), 0o644); err != nil {
		t.Fatal(err)
	}

	resolvedBase, err := filepath.EvalSymlinks(base)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		input string
		want  string
	}{
		{"scenarios/demo.yaml", filepath.Join(resolvedBase, "scenarios", "demo.yaml")},
		{"scenarios/./demo.yaml", filepath.Join(resolvedBase, "scenarios", "demo.yaml")},
		{"missing/new.yaml", filepath.Join(resolvedBase, "missing", "new.yaml")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ResolveWithin(base, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveWithin_Rejected(t *testing.T) {
	base := t.TempDir()

	inputs := []string{
		"",
		"/etc/passwd",
		"../outside.yaml",
		"scenarios/../../outside.yaml",
		`..\outside.yaml`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ResolveWithin(base, input)
			var pathErr *PathError
			if !errors.As(err, &pathErr) {
				t.Fatalf("expected PathError, got %v", err)
			}
			if !strings.Contains(pathErr.Error(), "path validation failed") {
				t.Errorf("unexpected message: %s", pathErr.Error())
			}
		})
	}
}

func TestResolveWithin_SymlinkEscape(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(base, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	_, err := ResolveWithin(base, "escape/secret.yaml")
	var pathErr *PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected PathError, got %v", err)
	}
	if pathErr.Reason != "path escapes base directory" {
		t.Errorf("unexpected reason: %s", pathErr.Reason)
	}
}
