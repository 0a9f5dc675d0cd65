// Package testutil holds helpers shared by the recorder's package tests.
package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AnchorSpec is a minimal Cypress spec with the default anchor call on
// line 3, column 5.
const AnchorSpec = `describe("shop", () => {
  it("checks out", () => {
    cy.startRecording();
  });
});
`

// chromeBinaries are tried in order by RequireChrome.
var chromeBinaries = []string{
	"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell",
}

// RequireChrome skips the test unless a Chrome binary is on PATH and the
// tests are not running with -short. It returns the binary path.
func RequireChrome(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
	for _, name := range chromeBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("Chrome not available, skipping browser test")
	return ""
}

// Workspace changes into a fresh directory for the rest of the test and
// points XDG_CONFIG_HOME at an empty location so no global configuration
// leaks in.
func Workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Chdir(dir)
	return dir
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// ReadFile returns the content of path.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// EventLine encodes one wire event ({type, data, context}) as a JSON line.
func EventLine(t *testing.T, eventType string, data map[string]interface{}, url string, ts int64) string {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"type":    eventType,
		"data":    data,
		"context": map[string]interface{}{"timestamp": ts, "url": url},
	})
	require.NoError(t, err)
	return string(raw)
}

// EventLog joins event lines into newline-delimited JSON.
func EventLog(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// RandomString generates a random hex string of the given length.
func RandomString(length int) string {
	bytes := make([]byte, (length+1)/2)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}
