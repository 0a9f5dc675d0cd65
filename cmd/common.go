// Package cmd holds the subcommands of the recorder CLI.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/backup"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/inject"
	"github.com/grovetools/recorder/state"
	"github.com/grovetools/recorder/storage"
)

// openArchive opens the session archive of the working directory.
func openArchive() (*storage.SQLiteArchive, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get current directory")
	}
	archive := storage.NewSQLiteArchive(storage.DefaultPath(cwd))
	if err := archive.Init(); err != nil {
		return nil, err
	}
	return archive, nil
}

// newInjector builds an injector with the backup manager opts describe.
func newInjector(opts config.Options) (*inject.Injector, *backup.Manager, error) {
	backups, err := backup.New(backup.OptionsFrom(opts))
	if err != nil {
		return nil, nil, err
	}
	return inject.New(inject.OptionsFrom(opts), backups), backups, nil
}

// sessionID returns id, or the last recorded session when id is empty.
func sessionID(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	last, err := state.LastSession()
	if err != nil {
		return "", err
	}
	if last == "" {
		return "", errors.InvalidInput("no session given and none recorded yet")
	}
	return last, nil
}

// loadSession loads a session into a fresh store, from a snapshot file when
// file is set and from the archive otherwise. It returns the store and the
// session id.
func loadSession(id, file string, opts config.Options) (*actions.Store, string, error) {
	store := actions.NewStore(opts.MaxActionsPerSession)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, "", errors.FileNotFound(file)
			}
			return nil, "", errors.FileNotReadable(file, err)
		}
		if _, err := store.ImportSessionJSON(data); err != nil {
			return nil, "", err
		}
		sessions := store.Sessions()
		if len(sessions) == 0 {
			return nil, "", errors.InvalidInput("snapshot holds no session").WithDetail("path", file)
		}
		return store, sessions[0], nil
	}

	id, err := sessionID(id)
	if err != nil {
		return nil, "", err
	}
	archive, err := openArchive()
	if err != nil {
		return nil, "", err
	}
	defer archive.Close()
	snap, err := archive.Load(id)
	if err != nil {
		return nil, "", err
	}
	if _, err := store.ImportSession(snap); err != nil {
		return nil, "", err
	}
	return store, id, nil
}

// writeFile writes data to path, creating parent directories.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.FileNotWritable(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.FileNotWritable(path, err)
	}
	return nil
}
