package cmd

import (
	"os"
	"path/filepath"

	"github.com/grovetools/recorder/cli"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/logging"
	"github.com/grovetools/recorder/state"
	"github.com/grovetools/recorder/storage"
	"github.com/grovetools/recorder/util/pathutil"
	"github.com/spf13/cobra"
)

// PathsOutput lists the files and directories the recorder uses.
type PathsOutput struct {
	ConfigFile string `json:"config_file,omitempty"`
	StateDir   string `json:"state_dir"`
	StateFile  string `json:"state_file"`
	Archive    string `json:"archive"`
	BackupDir  string `json:"backup_dir"`
	LogDir     string `json:"log_dir"`
}

// NewPathsCmd creates the paths command.
func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by the recorder in this directory",
		Long: `Prints where the recorder keeps its files for the current directory:
- config_file: the project configuration in effect, if any
- state_dir: local state (.recorder)
- archive: the SQLite session archive
- backup_dir: injection backups
- log_dir: component log files`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to get current directory")
			}
			out, err := resolvePaths(cmd, cwd)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), out)
			}

			p := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			if out.ConfigFile != "" {
				p.Path("Config", out.ConfigFile)
			} else {
				p.Field("Config", "defaults (no recorder.yml found)")
			}
			p.Path("State", out.StateFile)
			p.Path("Archive", out.Archive)
			p.Path("Backups", out.BackupDir)
			p.Path("Logs", out.LogDir)
			return nil
		},
	}
}

func resolvePaths(cmd *cobra.Command, cwd string) (PathsOutput, error) {
	configFile, err := cli.InitConfig(cli.GetOptions(cmd).ConfigFile)
	if err != nil {
		return PathsOutput{}, err
	}
	opts := config.Defaults()
	if cfg, err := cli.LoadConfig(cmd); err == nil {
		opts = cfg.Options
	}
	backupDir, err := pathutil.ResolveRelative(cwd, opts.BackupDirectory)
	if err != nil {
		return PathsOutput{}, errors.InvalidInput(err.Error()).WithDetail("field", "backupDirectory")
	}

	stateDir := filepath.Join(cwd, state.Dir)
	return PathsOutput{
		ConfigFile: configFile,
		StateDir:   stateDir,
		StateFile:  filepath.Join(stateDir, "state.yml"),
		Archive:    storage.DefaultPath(cwd),
		BackupDir:  backupDir,
		LogDir:     filepath.Join(stateDir, "logs"),
	}, nil
}
