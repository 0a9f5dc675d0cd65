// Package recorder ties capture, storage, code generation, injection and
// recovery together into a recording session.
package recorder

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/capture"
	"github.com/grovetools/recorder/codegen"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/inject"
	"github.com/grovetools/recorder/logging"
	"github.com/grovetools/recorder/pkg/profiling"
	"github.com/grovetools/recorder/recovery"
	"github.com/sirupsen/logrus"
)

// Config assembles a Session. Store, Injector and Recovery are created from
// Options when nil.
type Config struct {
	ID           string
	Options      config.Options
	Store        *actions.Store
	Injector     *inject.Injector
	Recovery     *recovery.Handler
	FeedCapacity int
}

// Stats counts what happened to incoming events.
type Stats struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// Session records one browser session into the store.
type Session struct {
	ID string

	opts     config.Options
	store    *actions.Store
	gen      *codegen.Generator
	injector *inject.Injector
	recovery *recovery.Handler
	capacity int
	logger   *logrus.Entry

	mu      sync.Mutex
	cancel  context.CancelFunc
	running chan struct{}
	stats   Stats
}

// NewSession creates a session. An empty ID gets a random one.
func NewSession(cfg Config) *Session {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	opts := cfg.Options
	store := cfg.Store
	if store == nil {
		store = actions.NewStore(opts.MaxActionsPerSession)
	}
	gen := codegen.New(opts)
	injector := cfg.Injector
	if injector == nil {
		injector = inject.New(inject.OptionsFrom(opts), nil)
	}
	rec := cfg.Recovery
	if rec == nil {
		rec = recovery.NewHandler(store, gen, recovery.SystemClipboard{})
	}
	return &Session{
		ID:       id,
		opts:     opts,
		store:    store,
		gen:      gen,
		injector: injector,
		recovery: rec,
		capacity: cfg.FeedCapacity,
		logger:   logging.NewLogger("recorder").WithField("session", id),
	}
}

// Store returns the action store the session writes to.
func (s *Session) Store() *actions.Store { return s.store }

// Stats returns the event counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Run drains src into the store until src ends, ctx is cancelled, Stop is
// called or the configured timeout elapses. Every event already queued when
// the source stops is still recorded. A timeout returns SESSION_TIMEOUT and
// a source failure SESSION_FAILED.
func (s *Session) Run(ctx context.Context, src capture.Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.running != nil {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeInternal, "session is already running").WithDetail("sessionId", s.ID)
	}
	running := make(chan struct{})
	s.running, s.cancel = running, cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running, s.cancel = nil, nil
		s.mu.Unlock()
		close(running)
	}()

	var timeout <-chan time.Time
	if s.opts.Timeout > 0 {
		timer := time.NewTimer(time.Duration(s.opts.Timeout) * time.Second)
		defer timer.Stop()
		timeout = timer.C
	}

	defer profiling.Start("record").Stop()

	feed := capture.NewFeed(s.capacity)
	feed.Start(ctx, src)
	s.logger.Info("Recording started")

	timedOut := false
loop:
	for {
		select {
		case ev, ok := <-feed.Events():
			if !ok {
				break loop
			}
			s.accept(ev)
			if ev.Type == actions.TypeSessionEnd {
				cancel()
			}
		case <-timeout:
			timedOut = true
			timeout = nil
			cancel()
		}
	}

	stats := s.Stats()
	s.logger.WithFields(logrus.Fields{
		"accepted": stats.Accepted,
		"rejected": stats.Rejected,
	}).Info("Recording stopped")

	if timedOut {
		return errors.SessionTimeout(s.ID, (time.Duration(s.opts.Timeout) * time.Second).String())
	}
	if err := feed.Err(); err != nil {
		if errors.GetCode(err) == errors.ErrCodeSessionFailed {
			return err
		}
		return errors.SessionFailed(s.ID, err)
	}
	return nil
}

// accept records one event. Rejections are counted, never fatal.
func (s *Session) accept(ev capture.Event) {
	data := ev.Data
	if ev.Type == actions.TypeSessionStart {
		if id, _ := data["sessionId"].(string); id == "" {
			data = copyWith(data, "sessionId", s.ID)
		}
	}

	a, err := s.store.Record(s.ID, ev.Type, data, ev.Context)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.stats.Rejected++
		s.logger.WithError(err).WithField("type", ev.Type).Warn("Rejected event")
		return
	}
	s.stats.Accepted++
	s.logger.WithFields(logrus.Fields{
		"type":     a.Type,
		"sequence": a.Sequence,
	}).Debug("Accepted event")
}

func copyWith(m map[string]interface{}, key string, value interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}

// Stop cancels the source and waits until every queued event has been
// recorded. It is a no-op when the session is not running.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, running := s.cancel, s.running
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-running
}

// Report is the result of Finish.
type Report struct {
	Generated *codegen.Result   `json:"generated"`
	Injection *inject.Result    `json:"injection"`
	Recovery  *recovery.Outcome `json:"recovery,omitempty"`
}

// Finish generates code for the recorded actions and injects it into target.
// When injection fails the recovery handler restores the file and hands the
// code off; the returned report carries both the failure and the recovered
// artifacts.
func (s *Session) Finish(ctx context.Context, target string) (*Report, error) {
	span := profiling.Start("generate")
	res, err := s.gen.GenerateTest(s.store.StructuredActions(s.ID), s.opts.TestName)
	span.Stop()
	if err != nil {
		return nil, err
	}
	code := res.Snippet()

	report := &Report{Generated: res}
	span = profiling.Start("inject")
	report.Injection = s.injector.InjectAfterAnchor(ctx, target, code)
	span.Stop()
	if !report.Injection.Success {
		report.Recovery = s.recovery.AfterInjectionFailure(report.Injection, code)
		return report, report.Injection.Err
	}
	return report, nil
}

// Recover salvages code after Run failed and hands it off next to target.
func (s *Session) Recover(cause error, target string) *recovery.Outcome {
	out := s.recovery.Recover(s.ID, cause)
	s.recovery.HandOff(out, target)
	return out
}

// Export snapshots the session.
func (s *Session) Export() (actions.Snapshot, error) {
	return s.store.ExportSession(s.ID)
}
