package config

import (
	"github.com/spf13/pflag"
)

// Flag names registered by RegisterFlags.
const (
	FlagTimeout     = "timeout"
	FlagBackup      = "backup"
	FlagBackupDir   = "backup-dir"
	FlagMaxBackups  = "max-backups"
	FlagAnchor      = "anchor"
	FlagTestName    = "test-name"
	FlagSuiteName   = "suite-name"
	FlagAssertions  = "assertions"
	FlagComments    = "comments"
	FlagStable      = "stable-selectors"
	FlagDevice      = "device"
	FlagColorScheme = "color-scheme"
	FlagChain       = "chain"
	FlagScroll      = "scroll"
	FlagMaxActions  = "max-actions"
	FlagVerify      = "verify"
)

// RegisterFlags adds the option overrides shared by the recording and
// generation commands. Defaults shown in help are the built-in defaults;
// only flags the user sets override the loaded configuration.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.Int(FlagTimeout, d.Timeout, "Recording session timeout in seconds")
	fs.Bool(FlagBackup, d.BackupFiles, "Back up target files before injection")
	fs.String(FlagBackupDir, d.BackupDirectory, "Directory that holds backups")
	fs.Int(FlagMaxBackups, d.MaxBackupsPerFile, "Backups kept per target file")
	fs.String(FlagAnchor, d.AnchorCall, "Call after which generated code is injected")
	fs.String(FlagTestName, d.TestName, "Name of the generated test case")
	fs.String(FlagSuiteName, d.SuiteName, "Name of the generated describe block")
	fs.Bool(FlagAssertions, d.AutoAssertions, "Append URL and runtime-error assertions")
	fs.Bool(FlagComments, d.GenerateComments, "Emit a comment above each statement")
	fs.Bool(FlagStable, d.UseStableSelectors, "Never fall back to class-based selectors")
	fs.String(FlagDevice, d.DeviceEmulation, "Viewport preset (mobile|desktop)")
	fs.String(FlagColorScheme, d.ColorScheme, "Emulated color scheme (dark|light)")
	fs.Bool(FlagChain, d.ChainMethods, "Chain consecutive commands on the same element")
	fs.Bool(FlagScroll, d.RecordScrollPosition, "Translate recorded scrolls")
	fs.Int(FlagMaxActions, d.MaxActionsPerSession, "Maximum recorded actions per session (0 = unlimited)")
	fs.Bool(FlagVerify, d.VerifyInjection, "Re-parse and check injected output before writing")
}

// ApplyFlags overlays the flags the user changed onto opts and validates the
// result. Flags that were never registered on fs are ignored.
func ApplyFlags(opts *Options, fs *pflag.FlagSet) error {
	var firstErr error
	setInt := func(name string, target *int) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			v, err := fs.GetInt(name)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			*target = v
		}
	}
	setBool := func(name string, target *bool) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			v, err := fs.GetBool(name)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			*target = v
		}
	}
	setString := func(name string, target *string) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			v, err := fs.GetString(name)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			*target = v
		}
	}

	setInt(FlagTimeout, &opts.Timeout)
	setBool(FlagBackup, &opts.BackupFiles)
	setString(FlagBackupDir, &opts.BackupDirectory)
	setInt(FlagMaxBackups, &opts.MaxBackupsPerFile)
	setString(FlagAnchor, &opts.AnchorCall)
	setString(FlagTestName, &opts.TestName)
	setString(FlagSuiteName, &opts.SuiteName)
	setBool(FlagAssertions, &opts.AutoAssertions)
	setBool(FlagComments, &opts.GenerateComments)
	setBool(FlagStable, &opts.UseStableSelectors)
	setString(FlagDevice, &opts.DeviceEmulation)
	setString(FlagColorScheme, &opts.ColorScheme)
	setBool(FlagChain, &opts.ChainMethods)
	setBool(FlagScroll, &opts.RecordScrollPosition)
	setInt(FlagMaxActions, &opts.MaxActionsPerSession)
	setBool(FlagVerify, &opts.VerifyInjection)

	if firstErr != nil {
		return firstErr
	}
	return opts.Validate()
}
