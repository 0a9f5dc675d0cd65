package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArchive(t *testing.T) *SQLiteArchive {
	t.Helper()
	a := NewSQLiteArchive(filepath.Join(t.TempDir(), "nested", DefaultFile))
	require.NoError(t, a.Init())
	t.Cleanup(func() { a.Close() })
	return a
}

func recordedSnapshot(t *testing.T, id string) actions.Snapshot {
	t.Helper()
	store := actions.NewStore(0)
	ctx := actions.Context{Timestamp: 1000, URL: "https://app.test/login", Viewport: &actions.Viewport{Width: 1280, Height: 800}}
	_, err := store.Record(id, actions.TypeSessionStart, map[string]interface{}{
		"sessionId": id,
		"viewport":  map[string]interface{}{"width": 1280, "height": 800},
		"userAgent": "Mozilla/5.0",
	}, ctx)
	require.NoError(t, err)
	ctx.Timestamp = 2000
	ctx.Metadata = map[string]interface{}{"source": "test"}
	_, err = store.Record(id, actions.TypeClick, map[string]interface{}{
		"selector":    "#submit",
		"coordinates": map[string]interface{}{"x": 10, "y": 20},
	}, ctx)
	require.NoError(t, err)

	snap, err := store.ExportSession(id)
	require.NoError(t, err)
	return snap
}

func TestInitIsIdempotent(t *testing.T) {
	a := newArchive(t)
	require.NoError(t, a.Init())

	version, err := a.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(a.migrations()), version)
	assert.FileExists(t, a.Path())
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	a := NewSQLiteArchive(path)
	require.NoError(t, a.Init())
	require.NoError(t, a.Save(recordedSnapshot(t, "s1")))
	require.NoError(t, a.Close())

	b := NewSQLiteArchive(path)
	require.NoError(t, b.Init())
	defer b.Close()
	snap, err := b.Load("s1")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Count)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a := newArchive(t)
	want := recordedSnapshot(t, "s1")
	require.NoError(t, a.Save(want))

	got, err := a.Load("s1")
	require.NoError(t, err)
	assert.Equal(t, want.Metadata, got.Metadata)
	require.Len(t, got.Actions, 2)
	assert.Equal(t, 2, got.Count)

	click := got.Actions[1]
	assert.Equal(t, actions.TypeClick, click.Type)
	assert.Equal(t, 2, click.Sequence)
	assert.Equal(t, int64(2000), click.Timestamp)
	assert.Equal(t, "s1", click.SessionID)
	assert.Equal(t, "#submit", click.String("selector"))
	assert.Equal(t, &actions.Viewport{Width: 1280, Height: 800}, click.Viewport)
	assert.Equal(t, "test", click.Metadata["source"])
	assert.Nil(t, got.Actions[0].Metadata)

	// JSON numbers decode as float64
	coords := click.Payload["coordinates"].(map[string]interface{})
	assert.Equal(t, float64(10), coords["x"])
}

func TestSaveReplaces(t *testing.T) {
	a := newArchive(t)
	snap := recordedSnapshot(t, "s1")
	require.NoError(t, a.Save(snap))

	snap.Actions = snap.Actions[:1]
	require.NoError(t, a.Save(snap))

	got, err := a.Load("s1")
	require.NoError(t, err)
	assert.Len(t, got.Actions, 1)

	list, err := a.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].ActionCount)
}

func TestListNewestFirst(t *testing.T) {
	a := newArchive(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		at := base.Add(time.Duration(i) * time.Second)
		a.now = func() time.Time { return at }
		require.NoError(t, a.Save(recordedSnapshot(t, id)))
	}

	list, err := a.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "new", list[0].SessionID)
	assert.Equal(t, "old", list[2].SessionID)
	assert.Equal(t, "https://app.test/login", list[0].URL)
	assert.Equal(t, int64(1000), list[0].StartTime)
	assert.True(t, list[0].SavedAt.Equal(base.Add(2*time.Second)))
}

func TestDelete(t *testing.T) {
	a := newArchive(t)
	require.NoError(t, a.Save(recordedSnapshot(t, "s1")))

	ok, err := a.Delete("s1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.Delete("s1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = a.Load("s1")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestSaveRequiresSessionID(t *testing.T) {
	a := newArchive(t)
	err := a.Save(actions.Snapshot{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestClosedArchive(t *testing.T) {
	a := NewSQLiteArchive(filepath.Join(t.TempDir(), DefaultFile))
	require.NoError(t, a.Init())
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, err := a.List()
	assert.True(t, errors.Is(err, errors.ErrCodeStorageFailed))
	assert.Error(t, a.Init())
}

func TestImportFromArchive(t *testing.T) {
	a := newArchive(t)
	require.NoError(t, a.Save(recordedSnapshot(t, "s1")))
	snap, err := a.Load("s1")
	require.NoError(t, err)

	store := actions.NewStore(0)
	n, err := store.ImportSession(snap)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.GetActionsByTypes("s1", actions.TypeClick), 1)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/work", ".recorder", "sessions.db"), DefaultPath("/work"))
}
