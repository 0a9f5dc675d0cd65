package recorder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/codegen"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/inject"
	"github.com/grovetools/recorder/logging"
	"github.com/grovetools/recorder/util/pathutil"
	"github.com/sirupsen/logrus"
)

// Update reports one regeneration.
type Update struct {
	Actions int
	Result  *inject.Result
	Err     error
}

// Watcher regenerates and re-injects code whenever a session snapshot file
// changes. The target is reset to its content at start before every
// injection, so repeated updates replace the previous output.
type Watcher struct {
	watcher  *fsnotify.Watcher
	snapshot string
	target   string
	original []byte
	mode     os.FileMode
	opts     config.Options
	injector *inject.Injector
	debounce time.Duration
	onUpdate func(Update)
	logger   *logrus.Entry

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches snapshotPath. The directory is watched rather than the
// file so that editors and exporters which replace the file are seen.
func NewWatcher(snapshotPath, target string, opts config.Options, injector *inject.Injector, debounce time.Duration, onUpdate func(Update)) (*Watcher, error) {
	snapshotPath, err := filepath.Abs(snapshotPath)
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, errors.FileNotFound(target)
	}
	original, err := os.ReadFile(target)
	if err != nil {
		return nil, errors.FileNotReadable(target, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "create file watcher")
	}
	if err := fw.Add(filepath.Dir(snapshotPath)); err != nil {
		fw.Close()
		return nil, errors.FileNotReadable(filepath.Dir(snapshotPath), err)
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	if injector == nil {
		injector = inject.New(inject.OptionsFrom(opts), nil)
	}
	return &Watcher{
		watcher:  fw,
		snapshot: snapshotPath,
		target:   target,
		original: original,
		mode:     info.Mode().Perm(),
		opts:     opts,
		injector: injector,
		debounce: debounce,
		onUpdate: onUpdate,
		logger:   logging.NewLogger("watch"),
	}, nil
}

// Start blocks until ctx is cancelled, regenerating after each burst of
// writes to the snapshot.
func (w *Watcher) Start(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !pathutil.SameFile(event.Name, w.snapshot) {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.schedule(ctx)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return
		}
	}
}

// schedule runs Regenerate once writes have been quiet for the debounce
// interval.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		u := w.Regenerate(ctx)
		if w.onUpdate != nil {
			w.onUpdate(u)
		}
	})
}

// Regenerate reads the snapshot, resets the target and injects fresh code.
func (w *Watcher) Regenerate(ctx context.Context) Update {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := os.ReadFile(w.snapshot)
	if err != nil {
		return w.fail(errors.FileNotReadable(w.snapshot, err))
	}
	store := actions.NewStore(w.opts.MaxActionsPerSession)
	n, err := store.ImportSessionJSON(data)
	if err != nil {
		return w.fail(err)
	}
	sessions := store.Sessions()
	if len(sessions) == 0 {
		return w.fail(errors.InvalidInput("snapshot holds no session"))
	}

	res, err := codegen.New(w.opts).GenerateTest(store.StructuredActions(sessions[0]), w.opts.TestName)
	if err != nil {
		return w.fail(err)
	}
	if err := os.WriteFile(w.target, w.original, w.mode); err != nil {
		return w.fail(errors.FileNotWritable(w.target, err))
	}

	ir := w.injector.InjectAfterAnchor(ctx, w.target, res.Snippet())
	u := Update{Actions: n, Result: ir, Err: ir.Err}
	if ir.Success {
		w.logger.WithFields(logrus.Fields{
			"actions":    n,
			"statements": res.StatementCount,
		}).Info("Regenerated recording")
	} else {
		w.logger.WithError(ir.Err).Warn("Re-injection failed")
	}
	return u
}

func (w *Watcher) fail(err error) Update {
	w.logger.WithError(err).Warn("Could not regenerate")
	return Update{Err: err}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
