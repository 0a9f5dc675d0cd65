package cli

import (
	"os"

	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommandOptions holds the options shared by every recorder command
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
	NoColor    bool
}

// NewStandardCommand creates a root command with the standard recorder flags.
// The flags take effect before any subcommand runs.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Configure(cmd)
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to recorder.yml config file")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	SetStyledHelp(cmd)

	return cmd
}

// Configure applies --verbose, --json and --no-color to the process-wide
// logging setup.
func Configure(cmd *cobra.Command) {
	opts := GetOptions(cmd)
	if opts.Verbose {
		logging.SetLevel(logrus.DebugLevel)
	}
	if opts.JSONOutput {
		logging.SetFormatter(&logrus.JSONFormatter{})
	}
	logging.SetColorEnabled(!opts.NoColor)
}

// GetLogger returns the component logger for a command
func GetLogger(cmd *cobra.Command) *logrus.Entry {
	return logging.NewLogger("cli").WithField("command", cmd.Name())
}

// GetOptions extracts common options from a command
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	return CommandOptions{
		ConfigFile: configFile,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
		NoColor:    noColor,
	}
}

// InitConfig resolves the configuration file path. An empty result means no
// file was found and defaults apply.
func InitConfig(configFile string) (string, error) {
	if configFile != "" {
		return configFile, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	foundConfigFile, err := config.FindConfigFile(cwd)
	if err != nil {
		// No config file found, that's okay
		return "", nil
	}

	return foundConfigFile, nil
}

// LoadConfig loads the file named by --config, or the layered global and
// project configuration when the flag is not set.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path := GetOptions(cmd).ConfigFile; path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// LoadOptions loads the configuration and overlays the option flags the user
// set on cmd.
func LoadOptions(cmd *cobra.Command) (config.Options, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return config.Options{}, err
	}
	opts := cfg.Options
	if err := config.ApplyFlags(&opts, cmd.Flags()); err != nil {
		if _, ok := errors.As(err); ok {
			return config.Options{}, err
		}
		return config.Options{}, errors.InvalidInput(err.Error())
	}
	return opts, nil
}
