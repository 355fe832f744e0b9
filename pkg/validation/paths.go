package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathError represents a path validation failure.
type PathError struct {
	UserPath string // Original user input that was rejected
	Reason   string // Human-readable reason for rejection
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("path validation failed: %s (input: %s)", e.Reason, e.UserPath)
}

// ResolveWithin returns the absolute path of userPath inside baseDir.
//
// userPath must be relative and must not contain ".." components. Symbolic
// links are resolved for whatever part of the path exists, and the result
// must stay inside baseDir. The target itself need not exist.
func ResolveWithin(baseDir, userPath string) (string, error) {
	if userPath == "" {
		return "", &PathError{UserPath: userPath, Reason: "empty path"}
	}
	if filepath.IsAbs(userPath) || strings.HasPrefix(userPath, "/") || strings.HasPrefix(userPath, `\`) {
		return "", &PathError{UserPath: userPath, Reason: "absolute paths are not allowed"}
	}
	for _, part := range strings.FieldsFunc(userPath, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return "", &PathError{UserPath: userPath, Reason: "parent directory references are not allowed"}
		}
	}

	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("cannot resolve base directory: %w", err)
	}
	resolvedBase, err := filepath.EvalSymlinks(base)
	if err != nil {
		return "", fmt.Errorf("cannot resolve base directory: %w", err)
	}

	candidate := filepath.Join(resolvedBase, filepath.Clean(userPath))
	resolved, err := evalExisting(candidate)
	if err != nil {
		return "", &PathError{UserPath: userPath, Reason: err.Error()}
	}

	rel, err := filepath.Rel(resolvedBase, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathError{UserPath: userPath, Reason: "path escapes base directory"}
	}
	return resolved, nil
}

// evalExisting resolves symlinks in the longest existing prefix of path and
// re-appends the missing remainder.
func evalExisting(path string) (string, error) {
	var missing []string
	current := path
	for {
		if _, err := os.Lstat(current); err == nil {
			break
		} else if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		missing = append([]string{filepath.Base(current)}, missing...)
		current = parent
	}

	resolved, err := filepath.EvalSymlinks(current)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{resolved}, missing...)...), nil
}
