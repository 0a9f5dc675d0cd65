package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/cli"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/state"
	"github.com/grovetools/recorder/tui/components/table"
	"github.com/spf13/cobra"
)

// NewSessionsCmd creates the sessions command group.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage archived recording sessions",
	}
	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsShowCmd())
	cmd.AddCommand(newSessionsExportCmd())
	cmd.AddCommand(newSessionsImportCmd())
	cmd.AddCommand(newSessionsDeleteCmd())
	return cmd
}

func marshalSnapshot(snap actions.Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			summaries, err := archive.List()
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), summaries)
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recorded sessions.")
				return nil
			}

			last, _ := state.LastSession()
			tb := table.NewBuilder().
				WithHeaders("SESSION", "ACTIONS", "URL", "SAVED").
				WithMutedColumn(3)
			for _, s := range summaries {
				id := s.SessionID
				if id == last {
					id += " *"
				}
				tb.WithRows([]string{id, strconv.Itoa(s.ActionCount), s.URL, s.SavedAt.Local().Format(time.DateTime)})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tb.Build().String())
			return err
		},
	}
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [session-id]",
		Short: "Show the actions of a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			store, id, err := loadSession(id, "", config.Defaults())
			if err != nil {
				return err
			}
			snap, err := store.ExportSession(id)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), snap)
			}

			out := cmd.OutOrStdout()
			m := snap.Metadata
			fmt.Fprintf(out, "Session:    %s\n", m.SessionID)
			fmt.Fprintf(out, "URL:        %s\n", m.URL)
			fmt.Fprintf(out, "User agent: %s\n", m.UserAgent)
			if m.Viewport != nil {
				fmt.Fprintf(out, "Viewport:   %dx%d\n", m.Viewport.Width, m.Viewport.Height)
			}
			fmt.Fprintf(out, "Actions:    %d\n\n", snap.Count)

			tb := table.NewBuilder().WithHeaders("SEQ", "TYPE", "TARGET", "PAGE")
			for _, a := range snap.Actions {
				tb.WithRows([]string{strconv.Itoa(a.Sequence), string(a.Type), describeTarget(a), a.PageURL})
			}
			_, err = fmt.Fprintln(out, tb.Build().String())
			return err
		},
	}
}

// describeTarget picks the most telling payload field for a listing.
func describeTarget(a actions.Action) string {
	for _, key := range []string{"selector", "url", "key"} {
		if v := a.String(key); v != "" {
			return v
		}
	}
	return ""
}

func newSessionsExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [session-id]",
		Short: "Write a session snapshot as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			store, id, err := loadSession(id, "", config.Defaults())
			if err != nil {
				return err
			}
			snap, err := store.ExportSession(id)
			if err != nil {
				return err
			}
			data, err := marshalSnapshot(snap)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "encode snapshot")
			}
			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if err := writeFile(output, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d actions to %s\n", snap.Count, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write (stdout when empty)")
	return cmd
}

func newSessionsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Validate snapshot files and add them to the archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			for _, file := range args {
				store, id, err := loadSession("", file, config.Options{})
				if err != nil {
					return err
				}
				snap, err := store.ExportSession(id)
				if err != nil {
					return err
				}
				if err := archive.Save(snap); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported session %s (%d actions)\n", id, snap.Count)
			}
			return nil
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>...",
		Short: "Remove sessions from the archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			last, _ := state.LastSession()
			for _, id := range args {
				deleted, err := archive.Delete(id)
				if err != nil {
					return err
				}
				if !deleted {
					fmt.Fprintf(cmd.ErrOrStderr(), "Session %s not found\n", id)
					continue
				}
				if id == last {
					if err := state.Delete(state.KeyLastSession); err != nil && !os.IsNotExist(err) {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", id)
			}
			return nil
		},
	}
}
