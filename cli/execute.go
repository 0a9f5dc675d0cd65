package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs root and reports a failure through an ErrorHandler. It
// returns the process exit code.
func Execute(root *cobra.Command) int {
	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}
	if cmd == nil {
		cmd = root
	}
	opts := GetOptions(cmd)
	h := NewErrorHandler(opts.Verbose)
	h.JSON = opts.JSONOutput
	h.Out = cmd.ErrOrStderr()
	h.Handle(err)
	return 1
}
