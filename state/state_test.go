package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(oldWd) })
	return dir
}

func TestStateOperations(t *testing.T) {
	dir := chdirTemp(t)

	t.Run("Load empty state", func(t *testing.T) {
		state, err := Load()
		require.NoError(t, err)
		assert.Empty(t, state)
	})

	t.Run("Set and Get string value", func(t *testing.T) {
		require.NoError(t, Set("custom", "value"))
		got, err := GetString("custom")
		require.NoError(t, err)
		assert.Equal(t, "value", got)

		_, err = os.Stat(filepath.Join(dir, ".recorder", "state.yml"))
		assert.NoError(t, err)
	})

	t.Run("Non-string value reads as empty", func(t *testing.T) {
		require.NoError(t, Set("count", 3))
		got, err := GetString("count")
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, Delete("custom"))
		got, err := GetString("custom")
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})
}

func TestRemember(t *testing.T) {
	chdirTemp(t)

	require.NoError(t, Remember("s-1", "cypress/e2e/login.cy.js"))
	require.NoError(t, Remember("s-2", ""))

	session, err := LastSession()
	require.NoError(t, err)
	assert.Equal(t, "s-2", session)

	target, err := LastTarget()
	require.NoError(t, err)
	assert.Equal(t, "cypress/e2e/login.cy.js", target, "an empty target keeps the previous one")
}
