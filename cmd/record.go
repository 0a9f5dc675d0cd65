package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/capture"
	"github.com/grovetools/recorder/cli"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/recorder"
	"github.com/grovetools/recorder/state"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Event sources accepted by --source.
const (
	sourceBrowser   = "browser"
	sourceTail      = "tail"
	sourceWebSocket = "websocket"
)

type recordFlags struct {
	source    string
	url       string
	file      string
	follow    bool
	addr      string
	headless  bool
	chrome    string
	target    string
	sessionID string
	noArchive bool
	snapshot  string
}

// NewRecordCmd creates the record command.
func NewRecordCmd() *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "record [url]",
		Short: "Record browser interactions and turn them into a Cypress test",
		Long: `Captures user interactions from a browser and generates Cypress commands
from them. With --target the commands are injected after the anchor call
in that test file; otherwise they are printed.

Recording stops when the page ends the session, the timeout elapses or
Ctrl-C is pressed. When recording or injection fails, everything captured
so far is recovered to the clipboard or to a file next to the target.`,
		Example: `  # Record in a new Chrome window and inject into a spec
  recorder record https://localhost:3000 --target cypress/e2e/login.cy.js

  # Replay events written by a collector to a file
  recorder record --source tail --file events.jsonl

  # Accept events from an in-page collector over a websocket
  recorder record --source websocket --addr 127.0.0.1:8765`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.url = args[0]
			}
			return runRecord(cmd, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.source, "source", sourceBrowser, "Where events come from: browser, tail, websocket")
	fs.StringVar(&f.url, "url", "", "Page to open in the browser")
	fs.StringVar(&f.file, "file", "", "Event file for --source tail (one JSON event per line)")
	fs.BoolVar(&f.follow, "follow", false, "Keep reading the event file as it grows")
	fs.StringVar(&f.addr, "addr", "127.0.0.1:8765", "Listen address for --source websocket")
	fs.BoolVar(&f.headless, "headless", false, "Run Chrome without a window")
	fs.StringVar(&f.chrome, "chrome-path", "", "Chrome binary to launch")
	fs.StringVarP(&f.target, "target", "t", "", "Test file to inject the generated code into")
	fs.StringVar(&f.sessionID, "session-id", "", "Session id (random when empty)")
	fs.BoolVar(&f.noArchive, "no-archive", false, "Do not save the session to the archive")
	fs.StringVar(&f.snapshot, "snapshot", "", "Also write the session snapshot to this JSON file")
	config.RegisterFlags(fs)

	return cmd
}

func runRecord(cmd *cobra.Command, f recordFlags) error {
	opts, err := cli.LoadOptions(cmd)
	if err != nil {
		return err
	}
	logger := cli.GetLogger(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	injector, _, err := newInjector(opts)
	if err != nil {
		return err
	}
	session := recorder.NewSession(recorder.Config{
		ID:       f.sessionID,
		Options:  opts,
		Injector: injector,
	})
	logger = logger.WithField("session", session.ID)

	src, cleanup, err := buildSource(ctx, f, opts, session.ID, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer cleanup()

	var progress *cli.ProgressReporter
	if !cli.GetOptions(cmd).JSONOutput {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "Recording "+session.ID)
	}
	done := make(chan struct{})
	go reportProgress(session, progress, done)

	runErr := session.Run(ctx, src)
	close(done)
	if progress != nil {
		progress.Done(runErr)
	}

	persist(session, f, logger)

	if runErr != nil {
		out := session.Recover(runErr, f.target)
		return cli.WithArtifacts(runErr, cli.ArtifactsFrom(out))
	}
	if session.Store().Count(session.ID) == 0 {
		return errors.InvalidInput("no actions were recorded").WithDetail("sessionId", session.ID)
	}

	if f.target == "" {
		return printGenerated(cmd, session.Store(), session.ID, opts)
	}

	// injection must finish even when the recording was interrupted
	report, err := session.Finish(context.WithoutCancel(ctx), f.target)
	if err != nil {
		if report != nil {
			return cli.WithArtifacts(err, cli.ArtifactsFrom(report.Recovery))
		}
		return err
	}
	return printInjection(cmd, report.Injection, strings.Count(report.Generated.Snippet(), "\n")+1)
}

func reportProgress(s *recorder.Session, p *cli.ProgressReporter, done <-chan struct{}) {
	if p == nil {
		return
	}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			stats := s.Stats()
			var last string
			if acts := s.Store().GetSessionActions(s.ID); len(acts) > 0 {
				last = string(acts[len(acts)-1].Type)
			}
			p.Update(stats.Accepted, stats.Rejected, last)
		}
	}
}

// persist saves the session to the archive and to the snapshot file, and
// remembers it as the latest session. Failures are logged, never fatal.
func persist(s *recorder.Session, f recordFlags, logger *logrus.Entry) {
	snap, err := s.Export()
	if err != nil {
		logger.WithError(err).Debug("Nothing to persist")
		return
	}
	if f.snapshot != "" {
		if data, err := marshalSnapshot(snap); err != nil {
			logger.WithError(err).Warn("Could not encode session snapshot")
		} else if err := writeFile(f.snapshot, data); err != nil {
			logger.WithError(err).Warn("Could not write session snapshot")
		}
	}
	if !f.noArchive {
		if err := saveToArchive(snap); err != nil {
			logger.WithError(err).Warn("Could not archive session")
		}
	}
	if err := state.Remember(s.ID, f.target); err != nil {
		logger.WithError(err).Warn("Could not update local state")
	}
}

func saveToArchive(snap actions.Snapshot) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()
	return archive.Save(snap)
}

// buildSource creates the event source selected by --source. The returned
// cleanup releases browser resources.
func buildSource(ctx context.Context, f recordFlags, opts config.Options, sessionID string, status io.Writer) (capture.Source, func(), error) {
	noop := func() {}
	switch f.source {
	case sourceBrowser:
		if f.url == "" {
			return nil, noop, errors.InvalidInput("a url is required to record in the browser")
		}
		chromeOpts := capture.ChromeOptionsFrom(opts, f.headless)
		chromeOpts.ExecPath = f.chrome
		page, err := capture.NewChromePage(ctx, chromeOpts)
		if err != nil {
			return nil, noop, err
		}
		policy := capture.DefaultPolicy()
		policy.SessionID = sessionID
		src := &capture.BrowserSource{
			Page:   page,
			URL:    f.url,
			Policy: policy,
		}
		return src, page.Close, nil
	case sourceTail:
		if f.file == "" {
			return nil, noop, errors.InvalidInput("--file is required with --source tail")
		}
		return &capture.TailSource{Path: f.file, Follow: f.follow}, noop, nil
	case sourceWebSocket:
		return &capture.WebSocketSource{
			Addr: f.addr,
			OnListen: func(addr string) {
				fmt.Fprintf(status, "Listening for events on ws://%s%s\n", addr, capture.DefaultWebSocketPath)
			},
		}, noop, nil
	}
	return nil, noop, errors.InvalidInput(fmt.Sprintf("unknown source '%s'", f.source)).
		WithDetail("field", "source")
}
