package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/grovetools/recorder/backup"
	"github.com/grovetools/recorder/cli"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/tui/components/table"
	"github.com/spf13/cobra"
)

// NewBackupCmd creates the backup command group.
func NewBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "List, restore and clean injection backups",
		Long: `Backups are taken before each injection when backupFiles is enabled
(or --backup is passed). They live in backupDirectory, .recorder/backups
by default.`,
	}
	config.RegisterFlags(cmd.PersistentFlags())
	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupRestoreCmd())
	cmd.AddCommand(newBackupCleanCmd())
	return cmd
}

func backupManager(cmd *cobra.Command) (*backup.Manager, error) {
	opts, err := cli.LoadOptions(cmd)
	if err != nil {
		return nil, err
	}
	return backup.New(backup.OptionsFrom(opts))
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [file]",
		Short: "List backups, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := backupManager(cmd)
			if err != nil {
				return err
			}
			if !m.Enabled() {
				return errors.BackupsDisabled()
			}

			var records []backup.Record
			if len(args) == 1 {
				records, err = m.List(args[0])
			} else {
				records, err = m.All()
			}
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No backups in %s\n", m.Directory())
				return nil
			}
			tb := table.NewBuilder().
				WithHeaders("CREATED", "SIZE", "BACKUP").
				WithMutedColumn(0)
			for _, r := range records {
				tb.WithRows([]string{r.CreatedAt.Local().Format(time.DateTime), strconv.FormatInt(r.SizeBytes, 10), r.BackupPath})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tb.Build().String())
			return err
		},
	}
}

func newBackupRestoreCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore a file from its most recent backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			if from != "" {
				if err := backup.RestoreFrom(target, from); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", target, from)
				return nil
			}

			m, err := backupManager(cmd)
			if err != nil {
				return err
			}
			res := m.Restore(target)
			if !res.Success {
				return cli.WithArtifacts(res.Err, cli.Artifacts{BackupPath: res.BackupPath})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", target, res.BackupPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Restore from this backup file instead of the most recent one")
	return cmd
}

func newBackupCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [file]",
		Short: "Delete the backups of a file, or all backups",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := backupManager(cmd)
			if err != nil {
				return err
			}
			if !m.Enabled() {
				return errors.BackupsDisabled()
			}
			var removed int
			if len(args) == 1 {
				removed, err = m.CleanupForFile(args[0])
			} else {
				removed, err = m.CleanupAll()
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d backups\n", removed)
			return nil
		},
	}
}
