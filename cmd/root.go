package cmd

import (
	"github.com/grovetools/recorder/cli"
	"github.com/grovetools/recorder/pkg/profiling"
	"github.com/grovetools/recorder/version"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the recorder command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"recorder",
		"Record browser interactions as Cypress tests",
	)
	root.Long = `Captures what a user does in a browser, translates it into Cypress
commands with stable selectors and splices them into an existing test file
after an anchor call.`

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(root)
	root.PersistentPreRun = nil
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cli.Configure(cmd)
		return profiler.PreRun(cmd, args)
	}
	root.PersistentPostRun = profiler.PostRun

	info := version.GetInfo()
	cli.SetVersionTemplate(root, info)

	root.AddCommand(NewRecordCmd())
	root.AddCommand(NewGenerateCmd())
	root.AddCommand(NewInjectCmd())
	root.AddCommand(NewWatchCmd())
	root.AddCommand(NewScanCmd())
	root.AddCommand(NewSessionsCmd())
	root.AddCommand(NewBackupCmd())
	root.AddCommand(NewSelectorCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewPathsCmd())
	root.AddCommand(cli.NewVersionCommand("recorder", info))
	return root
}
