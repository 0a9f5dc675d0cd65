package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/grovetools/recorder/cli"
	"github.com/grovetools/recorder/inject"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	var patterns []string
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Find test files that contain the anchor call",
		Long: `Walks a directory for JavaScript and TypeScript test files and lists the
ones containing the anchor call, with its position. node_modules and other
excluded directories are skipped.`,
		Example: `  recorder scan
  recorder scan cypress --pattern "e2e/**/*.cy.ts"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			opts, err := cli.LoadOptions(cmd)
			if err != nil {
				return err
			}
			injector := inject.New(inject.OptionsFrom(opts), nil)
			files, err := injector.Discover(cmd.Context(), root, patterns)
			if err != nil {
				return err
			}

			type hit struct {
				File   string             `json:"file"`
				Anchor *inject.AnchorInfo `json:"anchor"`
			}
			var hits []hit
			for _, file := range files {
				path := filepath.Join(root, file)
				info, err := injector.Locate(cmd.Context(), path)
				if err != nil {
					cli.GetLogger(cmd).WithError(err).WithField("file", path).Debug("No usable anchor")
					continue
				}
				hits = append(hits, hit{File: path, Anchor: info})
			}

			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), hits)
			}
			if len(hits) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No files with %s() under %s\n", opts.AnchorCall, root)
				return nil
			}
			for _, h := range hits {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d\n", h.File, h.Anchor.Line, h.Anchor.Column)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&patterns, "pattern", nil, "Glob of files to consider, relative to dir (repeatable)")
	return cmd
}
