package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/cli"
	"github.com/grovetools/recorder/codegen"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/inject"
	"github.com/grovetools/recorder/logging"
	"github.com/grovetools/recorder/recovery"
	"github.com/grovetools/recorder/state"
	"github.com/spf13/cobra"
)

// NewInjectCmd creates the inject command.
func NewInjectCmd() *cobra.Command {
	var (
		id       string
		from     string
		codeFile string
	)
	cmd := &cobra.Command{
		Use:   "inject [target]",
		Short: "Inject generated code after the anchor call of a test file",
		Long: `Generates code for a recorded session and inserts it right after the first
anchor call (cy.startRecording() by default) in the target file. The file is
re-parsed after splicing and only written when the result is valid.

Without a target the file of the latest recording is used. With --code the
given code is injected as-is instead of a session.`,
		Example: `  recorder inject cypress/e2e/login.cy.js
  recorder inject cypress/e2e/login.cy.js --session 6f1c2a --backup
  cat steps.js | recorder inject cypress/e2e/login.cy.js --code -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target string
			if len(args) == 1 {
				target = args[0]
			}
			opts, err := cli.LoadOptions(cmd)
			if err != nil {
				return err
			}
			if target == "" {
				if target, err = state.LastTarget(); err != nil {
					return err
				}
				if target == "" {
					return errors.InvalidInput("no target file given and none remembered")
				}
			}

			store := actions.NewStore(0)
			var code string
			if codeFile != "" {
				if code, err = readCode(cmd.InOrStdin(), codeFile); err != nil {
					return err
				}
			} else {
				var sessionID string
				store, sessionID, err = loadSession(id, from, opts)
				if err != nil {
					return err
				}
				res, err := codegen.New(opts).GenerateTest(store.StructuredActions(sessionID), opts.TestName)
				if err != nil {
					return err
				}
				code = res.Snippet()
			}

			injector, _, err := newInjector(opts)
			if err != nil {
				return err
			}
			res := injector.InjectAfterAnchor(cmd.Context(), target, code)
			if !res.Success {
				out := recovery.NewHandler(store, codegen.New(opts), recovery.SystemClipboard{}).
					AfterInjectionFailure(res, code)
				return cli.WithArtifacts(res.Err, cli.ArtifactsFrom(out))
			}
			if err := state.Set(state.KeyLastTarget, target); err != nil {
				cli.GetLogger(cmd).WithError(err).Warn("Could not update local state")
			}
			return printInjection(cmd, res, strings.Count(code, "\n")+1)
		},
	}
	cmd.Flags().StringVar(&id, "session", "", "Session to inject (latest when empty)")
	cmd.Flags().StringVar(&from, "from", "", "Read the session from a snapshot file instead of the archive")
	cmd.Flags().StringVar(&codeFile, "code", "", "Inject the code in this file ('-' for stdin) instead of a session")
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func readCode(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", errors.FileNotReadable("stdin", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.FileNotFound(path)
		}
		return "", errors.FileNotReadable(path, err)
	}
	return string(data), nil
}

func printInjection(cmd *cobra.Command, res *inject.Result, lines int) error {
	if cli.GetOptions(cmd).JSONOutput {
		return cli.PrintJSON(cmd.OutOrStdout(), res)
	}
	msg := fmt.Sprintf("Injected %d lines into %s", lines, res.FilePath)
	if res.Anchor != nil {
		msg += fmt.Sprintf(" after %s() at line %d", res.Anchor.Name, res.Anchor.Line)
	}
	entry := logging.NewUnifiedLogger("inject").Success(msg).
		Field("file", res.FilePath).
		Field("bytes", res.NewSize-res.OriginalSize)
	if res.BackupPath != "" {
		entry = entry.Field("backup", res.BackupPath)
	}
	ctx := logging.WithWriter(cmd.Context(), cmd.OutOrStdout())
	entry.Log(ctx)
	if res.BackupPath != "" {
		logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).Path("Backup", res.BackupPath)
	}
	return nil
}
