package cmd

import (
	"fmt"

	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/cli"
	"github.com/grovetools/recorder/codegen"
	"github.com/grovetools/recorder/config"
	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	var (
		id      string
		from    string
		output  string
		snippet bool
	)
	cmd := &cobra.Command{
		Use:   "generate [session-id]",
		Short: "Generate a Cypress test from a recorded session",
		Long: `Translates a recorded session into a Cypress test. The session comes from
the archive (the latest one when no id is given) or from a snapshot file.`,
		Example: `  recorder generate
  recorder generate 6f1c2a --output cypress/e2e/checkout.cy.js
  recorder generate --from session.json --snippet`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				id = args[0]
			}
			opts, err := cli.LoadOptions(cmd)
			if err != nil {
				return err
			}
			store, sessionID, err := loadSession(id, from, opts)
			if err != nil {
				return err
			}
			res, err := codegen.New(opts).GenerateTest(store.StructuredActions(sessionID), opts.TestName)
			if err != nil {
				return err
			}

			code := res.Code
			if snippet {
				code = res.Snippet()
			}
			if output != "" {
				if err := writeFile(output, []byte(code+"\n")); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d statements to %s\n", res.StatementCount, output)
				return nil
			}
			return printResult(cmd, res, code)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Read the session from a snapshot file instead of the archive")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the code to a file")
	cmd.Flags().BoolVar(&snippet, "snippet", false, "Emit only the statements, without the describe/it wrapper")
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// printGenerated prints the full test for a recorded session.
func printGenerated(cmd *cobra.Command, store *actions.Store, sessionID string, opts config.Options) error {
	res, err := codegen.New(opts).GenerateTest(store.StructuredActions(sessionID), opts.TestName)
	if err != nil {
		return err
	}
	return printResult(cmd, res, res.Code)
}

func printResult(cmd *cobra.Command, res *codegen.Result, code string) error {
	if cli.GetOptions(cmd).JSONOutput {
		return cli.PrintJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprintln(cmd.OutOrStdout(), code)
	return nil
}
