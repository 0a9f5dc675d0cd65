package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/recorder/cli"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/logging"
	"github.com/grovetools/recorder/recorder"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <snapshot> <target>",
		Short: "Re-inject code whenever a session snapshot changes",
		Long: `Watches a session snapshot file, such as the one written by
'recorder record --snapshot', and regenerates the injected code in the
target each time it changes. The target is reset to its content at start
before every injection, so the output is replaced rather than appended.`,
		Example: `  recorder record --source tail --file events.jsonl --follow --snapshot session.json &
  recorder watch session.json cypress/e2e/login.cy.js`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := cli.LoadOptions(cmd)
			if err != nil {
				return err
			}
			injector, _, err := newInjector(opts)
			if err != nil {
				return err
			}

			ulog := logging.NewUnifiedLogger("watch")
			out := logging.WithWriter(cmd.Context(), cmd.OutOrStdout())
			report := func(u recorder.Update) {
				stamp := time.Now().Format(time.TimeOnly)
				if u.Err != nil {
					ulog.Error(fmt.Sprintf("%s  %s", stamp, u.Err)).Err(u.Err).Log(out)
					return
				}
				ulog.Success(fmt.Sprintf("%s  %d actions injected into %s", stamp, u.Actions, args[1])).
					Field("actions", u.Actions).
					Log(out)
			}

			w, err := recorder.NewWatcher(args[0], args[1], opts, injector, debounce, report)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := os.Stat(args[0]); err == nil {
				report(w.Regenerate(ctx))
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl-C to stop)\n", args[0])
			w.Start(ctx)
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "Quiet period before regenerating")
	config.RegisterFlags(cmd.Flags())
	return cmd
}
