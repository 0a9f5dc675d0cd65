package pathutil

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Canonical returns the key under which a file is tracked: absolute, with
// symlinks resolved and, on case-insensitive filesystems (macOS, Windows),
// lower-cased. A path that does not exist yet keeps its absolute form.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	if caseInsensitive() {
		abs = strings.ToLower(abs)
	}
	return abs, nil
}

// SameFile reports whether a and b name the same location. Paths that
// cannot be made absolute never match.
func SameFile(a, b string) bool {
	ca, err := Canonical(a)
	if err != nil {
		return false
	}
	cb, err := Canonical(b)
	if err != nil {
		return false
	}
	return ca == cb
}

func caseInsensitive() bool {
	return runtime.GOOS == "darwin" || runtime.GOOS == "windows"
}
