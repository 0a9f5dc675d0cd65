package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/recovery"
)

// Artifacts are the partial results a failed command still produced.
type Artifacts struct {
	BackupPath    string `json:"backupPath,omitempty"`
	Restored      bool   `json:"restored,omitempty"`
	ClipboardUsed bool   `json:"clipboardUsed,omitempty"`
	FallbackPath  string `json:"fallbackPath,omitempty"`
}

// ArtifactsFrom collects the artifacts of a recovery outcome. A nil outcome
// yields none.
func ArtifactsFrom(out *recovery.Outcome) Artifacts {
	if out == nil {
		return Artifacts{}
	}
	return Artifacts{
		BackupPath:    out.BackupPath,
		Restored:      out.Restored,
		ClipboardUsed: out.ClipboardUsed,
		FallbackPath:  out.FallbackPath,
	}
}

func (a Artifacts) empty() bool {
	return a == Artifacts{}
}

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	JSON    bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints err with a hint for its code, followed by any artifacts the
// failed operation left behind. It returns err unchanged.
func (h *ErrorHandler) Handle(err error, artifacts ...Artifacts) error {
	if err == nil {
		return nil
	}
	art := artifactsOf(err)
	for _, a := range artifacts {
		art = merge(art, a)
	}

	if h.JSON {
		h.printJSON(err, art)
		return err
	}

	fmt.Fprintf(h.Out, "%s %s\n", errorStyle.Render("Error:"), message(err))
	if hint := Hint(err); hint != "" {
		fmt.Fprintln(h.Out, hintStyle.Render(hint))
	}
	h.printArtifacts(art)

	if h.Verbose {
		if recErr, ok := errors.As(err); ok {
			fmt.Fprintf(h.Out, "\nError details:\n%s\n", recErr.ToJSON())
		}
	}
	return err
}

func merge(a, b Artifacts) Artifacts {
	if b.BackupPath != "" {
		a.BackupPath = b.BackupPath
	}
	if b.FallbackPath != "" {
		a.FallbackPath = b.FallbackPath
	}
	a.Restored = a.Restored || b.Restored
	a.ClipboardUsed = a.ClipboardUsed || b.ClipboardUsed
	return a
}

func message(err error) string {
	if recErr, ok := errors.As(err); ok {
		if recErr.Cause != nil {
			return fmt.Sprintf("%s (%v)", recErr.Message, recErr.Cause)
		}
		return recErr.Message
	}
	return err.Error()
}

func detail(err error, key string) interface{} {
	if recErr, ok := errors.As(err); ok {
		return recErr.Details[key]
	}
	return nil
}

// Hint returns the follow-up advice for err, or "" when there is none.
func Hint(err error) string {
	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		return "Create recorder.yml or run 'recorder config show' to see the defaults."
	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation, errors.ErrCodeSchemaViolation:
		return "Run 'recorder config validate' to list every problem in the file."
	case errors.ErrCodeAnchorNotFound:
		return fmt.Sprintf("Add %v(); inside the test where the recorded steps should go.", detail(err, "anchor"))
	case errors.ErrCodeParseError:
		return fmt.Sprintf("Fix the syntax error near line %v of %v, then inject again.", detail(err, "line"), detail(err, "path"))
	case errors.ErrCodeInjectParseError, errors.ErrCodeVerificationFailed:
		return "The generated code could not be spliced safely. The target file was not changed."
	case errors.ErrCodeFileNotFound:
		return "Check the path of the test file."
	case errors.ErrCodeFileNotReadable, errors.ErrCodeFileNotWritable:
		return "Check the permissions of the file and its directory."
	case errors.ErrCodeFileTooLarge:
		return "Raise maxFileSize in recorder.yml to inject into larger files."
	case errors.ErrCodeBackupsDisabled:
		return "Enable backups with --backup or 'backupFiles: true' in recorder.yml."
	case errors.ErrCodeBackupFailed:
		return "Check that the backup directory is writable, or disable backups."
	case errors.ErrCodeStorageFailed:
		return "The session archive could not be used. Recorded actions are still exported with 'recorder sessions export'."
	case errors.ErrCodeSessionTimeout:
		return fmt.Sprintf("The session ran longer than %v. Raise --timeout for longer recordings.", detail(err, "timeout"))
	case errors.ErrCodeSessionFailed:
		return "The browser connection was lost. Everything recorded before the failure was kept."
	case errors.ErrCodeSessionLimit:
		return "Raise --max-actions or split the flow into several recordings."
	case errors.ErrCodeCommunicationTransient:
		return "The browser did not answer in time. Try again."
	}
	return ""
}

func (h *ErrorHandler) printArtifacts(a Artifacts) {
	if a.empty() {
		return
	}
	fmt.Fprintln(h.Out)
	if a.BackupPath != "" {
		state := "kept at"
		if a.Restored {
			state = "restored from"
		}
		fmt.Fprintf(h.Out, "Backup %s %s\n", state, pathStyle.Render(a.BackupPath))
	}
	if a.ClipboardUsed {
		fmt.Fprintln(h.Out, "Recorded code was copied to the clipboard.")
	}
	if a.FallbackPath != "" {
		fmt.Fprintf(h.Out, "Recorded code was written to %s\n", pathStyle.Render(a.FallbackPath))
	}
}

func (h *ErrorHandler) printJSON(err error, a Artifacts) {
	out := struct {
		Error     interface{} `json:"error"`
		Hint      string      `json:"hint,omitempty"`
		Artifacts *Artifacts  `json:"artifacts,omitempty"`
	}{Error: err.Error(), Hint: Hint(err)}
	if recErr, ok := errors.As(err); ok {
		out.Error = recErr
	}
	if !a.empty() {
		out.Artifacts = &a
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(h.Out, string(data))
}

// artifactError carries artifacts up to the top-level handler.
type artifactError struct {
	err       error
	artifacts Artifacts
}

func (e *artifactError) Error() string { return e.err.Error() }
func (e *artifactError) Unwrap() error { return e.err }

// WithArtifacts attaches artifacts to err. A nil err stays nil.
func WithArtifacts(err error, a Artifacts) error {
	if err == nil {
		return nil
	}
	return &artifactError{err: err, artifacts: a}
}

// artifactsOf collects every artifact attached along the chain of err.
func artifactsOf(err error) Artifacts {
	var a Artifacts
	for err != nil {
		if ae, ok := err.(*artifactError); ok {
			a = merge(a, ae.artifacts)
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return a
}
