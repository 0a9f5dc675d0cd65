package cmd

import (
	"fmt"
	"os"

	"github.com/grovetools/recorder/cli"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and check recorder configuration",
		Long: `Configuration is merged from two layers:
1. Global config (~/.config/recorder/recorder.yml)
2. Project config (recorder.yml, .recorder.yml or recorder.toml, found by
   walking up from the current directory)
Command-line flags override both.`,
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSchemaCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			opts := cfg.Options
			if err := config.ApplyFlags(&opts, cmd.Flags()); err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), opts)
			}

			out := cmd.OutOrStdout()
			if cfg.Path != "" {
				fmt.Fprintf(out, "# Source: %s\n", cfg.Path)
			} else {
				fmt.Fprintln(out, "# Source: built-in defaults")
			}
			data, err := yaml.Marshal(opts)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "encode options")
			}
			fmt.Fprint(out, string(data))
			return nil
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of recorder.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a configuration file against the schema and option rules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			path, err := cli.InitConfig(path)
			if err != nil {
				return err
			}
			if path == "" {
				cwd, _ := os.Getwd()
				return errors.ConfigNotFound(cwd)
			}
			if _, err := config.Load(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
			return nil
		},
	}
}
