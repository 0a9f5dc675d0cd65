package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, max int) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	m, err := New(Options{
		Enabled:     true,
		Directory:   filepath.Join(dir, "backups"),
		MaxPerFile:  max,
		AutoCleanup: true,
	})
	require.NoError(t, err)

	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return m, dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDisabled(t *testing.T) {
	m, err := New(OptionsFrom(config.Defaults()))
	require.NoError(t, err)
	assert.False(t, m.Enabled())

	path := filepath.Join(t.TempDir(), "spec.cy.js")
	writeFile(t, path, "x")

	for i := 0; i < 3; i++ {
		res, err := m.Create(path)
		require.NoError(t, err)
		assert.True(t, res.Skipped)
		assert.Nil(t, res.Record)
		assert.Equal(t, "", res.BackupPath())
	}

	restore := m.Restore(path)
	assert.False(t, restore.Success)
	assert.Empty(t, restore.BackupPath)
	require.Error(t, restore.Err)
	assert.True(t, errors.Is(restore.Err, errors.ErrCodeBackupsDisabled))
	assert.Contains(t, restore.Err.Error(), "backups are disabled")

	records, err := m.List(path)
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestCreateAndRestore(t *testing.T) {
	m, dir := newManager(t, 10)
	path := filepath.Join(dir, "login.cy.js")
	writeFile(t, path, "original")

	res, err := m.Create(path)
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	assert.False(t, res.Skipped)
	assert.Equal(t, int64(len("original")), res.Record.SizeBytes)
	assert.FileExists(t, res.Record.BackupPath)
	assert.Equal(t, filepath.Join(dir, "backups"), filepath.Dir(res.Record.BackupPath))

	writeFile(t, path, "changed")
	restore := m.Restore(path)
	require.True(t, restore.Success, "%v", restore.Err)
	assert.Equal(t, res.Record.BackupPath, restore.BackupPath)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestRestoreUsesMostRecent(t *testing.T) {
	m, dir := newManager(t, 10)
	path := filepath.Join(dir, "a.js")

	writeFile(t, path, "v1")
	_, err := m.Create(path)
	require.NoError(t, err)
	writeFile(t, path, "v2")
	second, err := m.Create(path)
	require.NoError(t, err)

	writeFile(t, path, "v3")
	restore := m.Restore(path)
	require.True(t, restore.Success)
	assert.Equal(t, second.BackupPath(), restore.BackupPath)
	data, _ := os.ReadFile(path)
	assert.Equal(t, "v2", string(data))
}

func TestRetention(t *testing.T) {
	m, dir := newManager(t, 3)
	path := filepath.Join(dir, "a.js")
	writeFile(t, path, "x")

	var created []string
	for i := 0; i < 5; i++ {
		res, err := m.Create(path)
		require.NoError(t, err)
		created = append(created, res.BackupPath())
	}

	records, err := m.List(path)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, created[4], records[0].BackupPath)
	assert.Equal(t, created[2], records[2].BackupPath)
	assert.NoFileExists(t, created[0])
	assert.NoFileExists(t, created[1])
}

func TestSameNameDifferentDirectories(t *testing.T) {
	m, dir := newManager(t, 10)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "one"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "two"), 0o755))
	first := filepath.Join(dir, "one", "spec.js")
	second := filepath.Join(dir, "two", "spec.js")
	writeFile(t, first, "1")
	writeFile(t, second, "2")

	_, err := m.Create(first)
	require.NoError(t, err)
	_, err = m.Create(second)
	require.NoError(t, err)

	r1, _ := m.List(first)
	r2, _ := m.List(second)
	assert.Len(t, r1, 1)
	assert.Len(t, r2, 1)
	assert.NotEqual(t, r1[0].BackupPath, r2[0].BackupPath)

	all, err := m.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	removed, err := m.CleanupForFile(first)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = m.CleanupAll()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestCollisionFreeNames(t *testing.T) {
	m, dir := newManager(t, 0)
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return frozen }

	path := filepath.Join(dir, "a.js")
	writeFile(t, path, "x")

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		res, err := m.Create(path)
		require.NoError(t, err)
		assert.False(t, seen[res.BackupPath()])
		seen[res.BackupPath()] = true
	}
	records, err := m.List(path)
	require.NoError(t, err)
	assert.Len(t, records, 20, "zero per-file maximum keeps everything")
}

func TestCreateMissingFile(t *testing.T) {
	m, dir := newManager(t, 10)
	_, err := m.Create(filepath.Join(dir, "missing.js"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))

	restore := m.Restore(filepath.Join(dir, "missing.js"))
	assert.False(t, restore.Success)
	assert.True(t, errors.Is(restore.Err, errors.ErrCodeBackupFailed))
}

func TestRestoreFromAndRemove(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "t.js")
	bak := filepath.Join(dir, "t.bak")
	writeFile(t, target, "new")
	writeFile(t, bak, "old")

	require.NoError(t, RestoreFrom(target, bak))
	data, _ := os.ReadFile(target)
	assert.Equal(t, "old", string(data))

	require.NoError(t, Remove(bak))
	assert.NoFileExists(t, bak)
	assert.NoError(t, Remove(bak), "removing twice is fine")

	err := RestoreFrom(target, bak)
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))
}

func TestSameTickOrdering(t *testing.T) {
	m, dir := newManager(t, 0)
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return frozen }
	path := filepath.Join(dir, "a.js")

	for trial := 0; trial < 20; trial++ {
		writeFile(t, path, "older")
		_, err := m.Create(path)
		require.NoError(t, err)
		writeFile(t, path, "newer")
		newer, err := m.Create(path)
		require.NoError(t, err)

		writeFile(t, path, "edited")
		restore := m.Restore(path)
		require.True(t, restore.Success)
		require.Equal(t, newer.BackupPath(), restore.BackupPath, "trial %d", trial)
		data, _ := os.ReadFile(path)
		require.Equal(t, "newer", string(data))
	}
}

func TestSameTickRetentionKeepsNewest(t *testing.T) {
	m, dir := newManager(t, 1)
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return frozen }
	path := filepath.Join(dir, "a.js")
	writeFile(t, path, "x")

	for trial := 0; trial < 20; trial++ {
		res, err := m.Create(path)
		require.NoError(t, err)
		require.FileExists(t, res.BackupPath(), "trial %d", trial)

		records, err := m.List(path)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, res.BackupPath(), records[0].BackupPath)
	}
}

func TestSymlinkSharesBackups(t *testing.T) {
	m, dir := newManager(t, 10)
	path := filepath.Join(dir, "a.cy.js")
	writeFile(t, path, "original")
	link := filepath.Join(dir, "link.cy.js")
	require.NoError(t, os.Symlink(path, link))

	res, err := m.Create(link)
	require.NoError(t, err)

	records, err := m.List(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, res.BackupPath(), records[0].BackupPath)
}

func TestParseName(t *testing.T) {
	created, seq, ok := parseName("my.spec.cy.js.0123abcd.1767323045000000000.000042.a1b2c3.bak")
	require.True(t, ok)
	assert.Equal(t, int64(1767323045000000000), created.UnixNano())
	assert.Equal(t, uint64(42), seq)

	_, _, ok = parseName("garbage.bak")
	assert.False(t, ok)
	_, _, ok = parseName("a.js.0123abcd.notanumber.000001.a1b2c3.bak")
	assert.False(t, ok)
}
