// Package backup snapshots files before they are rewritten and restores
// them on request.
//
// Backups live in a single directory and are named
// <base>.<pathhash8>.<nanos>.<seq>.<rand6>.bak, where pathhash8 is derived
// from the canonical path of the original and seq orders backups taken in
// the same clock tick. The directory listing is the source of truth, so a
// later process can find and restore earlier backups.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/logging"
	"github.com/grovetools/recorder/util/pathutil"
	"github.com/sirupsen/logrus"
)

const extension = ".bak"

// sequence increases with every backup this process writes.
var sequence atomic.Uint64

// Record describes one backup file.
type Record struct {
	OriginalPath string    `json:"originalPath"`
	BackupPath   string    `json:"backupPath"`
	CreatedAt    time.Time `json:"createdAt"`
	SizeBytes    int64     `json:"sizeBytes"`

	seq uint64
}

// CreateResult is returned by Create. Record is nil when Skipped.
type CreateResult struct {
	Record  *Record `json:"record,omitempty"`
	Skipped bool    `json:"skipped"`
}

// BackupPath returns the created backup path, or "" when skipped.
func (r CreateResult) BackupPath() string {
	if r.Record == nil {
		return ""
	}
	return r.Record.BackupPath
}

// RestoreResult is returned by Restore.
type RestoreResult struct {
	Success    bool   `json:"success"`
	BackupPath string `json:"backupPath,omitempty"`
	Err        error  `json:"-"`
}

// Options configure a Manager.
type Options struct {
	Enabled     bool
	Directory   string
	MaxPerFile  int
	AutoCleanup bool
}

// OptionsFrom extracts the backup options from the recorder options.
func OptionsFrom(o config.Options) Options {
	return Options{
		Enabled:     o.BackupFiles,
		Directory:   o.BackupDirectory,
		MaxPerFile:  o.MaxBackupsPerFile,
		AutoCleanup: o.AutoCleanupBackups,
	}
}

// Manager creates, lists, restores and prunes backups. A disabled manager
// turns every operation into a no-op.
type Manager struct {
	opts   Options
	dir    string
	mu     sync.Mutex
	now    func() time.Time
	logger *logrus.Entry
}

// New creates a Manager. A relative Directory resolves against the working
// directory.
func New(opts Options) (*Manager, error) {
	m := &Manager{
		opts:   opts,
		now:    time.Now,
		logger: logging.NewLogger("backup"),
	}
	if !opts.Enabled {
		return m, nil
	}

	dir := opts.Directory
	if dir == "" {
		dir = config.Defaults().BackupDirectory
	}
	abs, err := pathutil.Expand(dir)
	if err != nil {
		return nil, errors.BackupFailed(dir, err)
	}
	m.dir = abs
	return m, nil
}

// Enabled reports whether backups are taken.
func (m *Manager) Enabled() bool {
	return m.opts.Enabled
}

// Directory returns the resolved backup directory, "" when disabled.
func (m *Manager) Directory() string {
	return m.dir
}

// Create copies path into the backup directory and applies the retention
// policy.
func (m *Manager) Create(path string) (CreateResult, error) {
	if !m.opts.Enabled {
		return CreateResult{Skipped: true}, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return CreateResult{}, errors.BackupFailed(path, err)
	}
	key, err := pathutil.Canonical(abs)
	if err != nil {
		return CreateResult{}, errors.BackupFailed(path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return CreateResult{}, errors.FileNotFound(abs)
		}
		return CreateResult{}, errors.FileNotReadable(abs, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return CreateResult{}, errors.FileNotReadable(abs, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return CreateResult{}, errors.BackupFailed(abs, fmt.Errorf("create backup directory %s: %w", m.dir, err))
	}

	created := m.now().UTC()
	backupPath := filepath.Join(m.dir, fileName(key, created, sequence.Add(1)))
	if err := os.WriteFile(backupPath, data, info.Mode().Perm()); err != nil {
		return CreateResult{}, errors.BackupFailed(abs, err)
	}

	rec := &Record{
		OriginalPath: abs,
		BackupPath:   backupPath,
		CreatedAt:    created,
		SizeBytes:    int64(len(data)),
	}
	m.logger.WithFields(logrus.Fields{
		"file":   abs,
		"backup": backupPath,
	}).Info("Created backup")

	if m.opts.AutoCleanup && m.opts.MaxPerFile > 0 {
		if err := m.prune(abs, key); err != nil {
			m.logger.WithError(err).Warn("Failed to prune old backups")
		}
	}
	return CreateResult{Record: rec}, nil
}

// prune deletes the oldest backups of path above MaxPerFile. Callers hold mu.
func (m *Manager) prune(abs, key string) error {
	records, err := m.list(abs, key)
	if err != nil {
		return err
	}
	for _, rec := range records[min(len(records), m.opts.MaxPerFile):] {
		if err := os.Remove(rec.BackupPath); err != nil && !os.IsNotExist(err) {
			return err
		}
		m.logger.WithField("backup", rec.BackupPath).Debug("Pruned backup")
	}
	return nil
}

// Restore overwrites path with its most recent backup.
func (m *Manager) Restore(path string) RestoreResult {
	if !m.opts.Enabled {
		return RestoreResult{Err: errors.BackupsDisabled()}
	}

	records, err := m.List(path)
	if err != nil {
		return RestoreResult{Err: err}
	}
	if len(records) == 0 {
		return RestoreResult{Err: errors.New(errors.ErrCodeBackupFailed,
			fmt.Sprintf("no backup found for %s", path)).WithDetail("path", path)}
	}

	latest := records[0]
	if err := RestoreFrom(latest.OriginalPath, latest.BackupPath); err != nil {
		return RestoreResult{BackupPath: latest.BackupPath, Err: err}
	}
	m.logger.WithFields(logrus.Fields{
		"file":   latest.OriginalPath,
		"backup": latest.BackupPath,
	}).Info("Restored from backup")
	return RestoreResult{Success: true, BackupPath: latest.BackupPath}
}

// RestoreFrom overwrites path with the bytes of backupPath. It works
// regardless of whether backups are enabled.
func RestoreFrom(path, backupPath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFound(backupPath)
		}
		return errors.FileNotReadable(backupPath, err)
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return errors.FileNotWritable(path, err)
	}
	return nil
}

// Remove deletes one backup file if present.
func Remove(backupPath string) error {
	if backupPath == "" {
		return nil
	}
	if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
		return errors.BackupFailed(backupPath, err)
	}
	return nil
}

// List returns the backups of path, most recent first.
func (m *Manager) List(path string) ([]Record, error) {
	if !m.opts.Enabled {
		return nil, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.BackupFailed(path, err)
	}
	key, err := pathutil.Canonical(abs)
	if err != nil {
		return nil, errors.BackupFailed(path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(abs, key)
}

// list finds the backups stored under key. OriginalPath is set to abs, the
// path as the caller named it.
func (m *Manager) list(abs, key string) ([]Record, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.BackupFailed(abs, err)
	}

	prefix := filepath.Base(key) + "." + pathHash(key) + "."
	var records []Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, extension) {
			continue
		}
		created, seq, ok := parseName(name)
		if !ok {
			continue
		}
		rec := Record{
			OriginalPath: abs,
			BackupPath:   filepath.Join(m.dir, name),
			CreatedAt:    created,
			seq:          seq,
		}
		if info, err := e.Info(); err == nil {
			rec.SizeBytes = info.Size()
		}
		records = append(records, rec)
	}

	sortNewestFirst(records)
	return records, nil
}

func sortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].seq > records[j].seq
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

// All returns every backup in the directory, newest first. Names only
// carry the base name, so OriginalPath is left empty.
func (m *Manager) All() ([]Record, error) {
	if !m.opts.Enabled {
		return nil, nil
	}
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.BackupFailed(m.dir, err)
	}
	var records []Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), extension) {
			continue
		}
		created, seq, ok := parseName(e.Name())
		if !ok {
			continue
		}
		rec := Record{BackupPath: filepath.Join(m.dir, e.Name()), CreatedAt: created, seq: seq}
		if info, err := e.Info(); err == nil {
			rec.SizeBytes = info.Size()
		}
		records = append(records, rec)
	}
	sortNewestFirst(records)
	return records, nil
}

// CleanupForFile deletes every backup of path and returns how many were
// removed.
func (m *Manager) CleanupForFile(path string) (int, error) {
	records, err := m.List(path)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, rec := range records {
		if err := Remove(rec.BackupPath); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// CleanupAll deletes every backup in the directory.
func (m *Manager) CleanupAll() (int, error) {
	records, err := m.All()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, rec := range records {
		if err := Remove(rec.BackupPath); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		m.logger.WithField("count", removed).Info("Removed all backups")
	}
	return removed, nil
}

func fileName(key string, created time.Time, seq uint64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s.%s.%019d.%06d.%s%s", filepath.Base(key), pathHash(key), created.UnixNano(), seq, suffix, extension)
}

func pathHash(abs string) string {
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:8]
}

// parseName extracts the creation time and sequence from a backup file name.
func parseName(name string) (time.Time, uint64, bool) {
	parts := strings.Split(strings.TrimSuffix(name, extension), ".")
	if len(parts) < 5 {
		return time.Time{}, 0, false
	}
	nanos, err := strconv.ParseInt(parts[len(parts)-3], 10, 64)
	if err != nil {
		return time.Time{}, 0, false
	}
	seq, err := strconv.ParseUint(parts[len(parts)-2], 10, 64)
	if err != nil {
		return time.Time{}, 0, false
	}
	return time.Unix(0, nanos).UTC(), seq, true
}
