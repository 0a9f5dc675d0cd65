package cli

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/logging"
	"github.com/grovetools/recorder/recovery"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logging.SetColorEnabled(false)
}

func TestHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "anchor names the configured call",
			err:  errors.AnchorNotFound("a.cy.js", "cy.record"),
			want: "Add cy.record(); inside the test",
		},
		{
			name: "timeout carries the duration",
			err:  errors.SessionTimeout("s1", "30s"),
			want: "longer than 30s",
		},
		{
			name: "backups disabled",
			err:  errors.BackupsDisabled(),
			want: "--backup",
		},
		{
			name: "wrapped errors are unwrapped",
			err:  WithArtifacts(errors.FileNotFound("x.js"), Artifacts{}),
			want: "Check the path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Hint(tt.err), tt.want)
		})
	}

	assert.Empty(t, Hint(stderrors.New("plain")))
	assert.Empty(t, Hint(errors.New(errors.ErrCodeInternal, "boom")))
}

func TestErrorHandlerText(t *testing.T) {
	var buf bytes.Buffer
	h := &ErrorHandler{Out: &buf}

	err := WithArtifacts(errors.AnchorNotFound("login.cy.js", "cy.startRecording"), Artifacts{
		BackupPath: "/b/login.cy.js.bak",
		Restored:   true,
	})
	returned := h.Handle(err, Artifacts{FallbackPath: "login.recorded.js"})
	assert.Equal(t, err, returned)

	out := buf.String()
	assert.Contains(t, out, "Error: no anchor call cy.startRecording() found in login.cy.js")
	assert.Contains(t, out, "Add cy.startRecording(); inside the test")
	assert.Contains(t, out, "Backup restored from /b/login.cy.js.bak")
	assert.Contains(t, out, "Recorded code was written to login.recorded.js")
	assert.NotContains(t, out, "clipboard")
	assert.NotContains(t, out, "Error details")
}

func TestErrorHandlerCauseAndVerbose(t *testing.T) {
	var buf bytes.Buffer
	h := &ErrorHandler{Out: &buf, Verbose: true}

	h.Handle(errors.FileNotWritable("out.js", stderrors.New("read-only file system")))
	out := buf.String()
	assert.Contains(t, out, "(read-only file system)")
	assert.Contains(t, out, "Error details:")
	assert.Contains(t, out, `"FILE_NOT_WRITABLE"`)
}

func TestErrorHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	h := &ErrorHandler{Out: &buf, JSON: true}

	h.Handle(errors.SessionTimeout("s1", "30s"), Artifacts{ClipboardUsed: true})

	var got struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Hint      string     `json:"hint"`
		Artifacts *Artifacts `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "SESSION_TIMEOUT", got.Error.Code)
	assert.Contains(t, got.Hint, "--timeout")
	require.NotNil(t, got.Artifacts)
	assert.True(t, got.Artifacts.ClipboardUsed)
}

func TestErrorHandlerJSONPlainError(t *testing.T) {
	var buf bytes.Buffer
	h := &ErrorHandler{Out: &buf, JSON: true}
	h.Handle(stderrors.New("plain failure"))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "plain failure", got["error"])
	assert.NotContains(t, got, "artifacts")
}

func TestWithArtifacts(t *testing.T) {
	assert.Nil(t, WithArtifacts(nil, Artifacts{BackupPath: "x"}))

	base := errors.BackupFailed("dir", stderrors.New("denied"))
	err := WithArtifacts(base, Artifacts{BackupPath: "x"})
	assert.Equal(t, base.Error(), err.Error())
	assert.True(t, errors.Is(err, errors.ErrCodeBackupFailed))
	assert.Equal(t, Artifacts{BackupPath: "x"}, artifactsOf(err))
	assert.Equal(t, Artifacts{}, artifactsOf(base))
}

func TestArtifactsFrom(t *testing.T) {
	assert.Equal(t, Artifacts{}, ArtifactsFrom(nil))
	got := ArtifactsFrom(&recovery.Outcome{
		BackupPath:    "b",
		Restored:      true,
		ClipboardUsed: true,
		FallbackPath:  "f",
	})
	assert.Equal(t, Artifacts{BackupPath: "b", Restored: true, ClipboardUsed: true, FallbackPath: "f"}, got)
}

func TestProgressReporter(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf, "Recording s1")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.start = start
	p.now = func() time.Time { return start.Add(3 * time.Second) }

	p.Update(4, 1, "click")
	assert.Equal(t, "\r\033[K[~] Recording s1 [3s] 4 actions, 1 rejected (last: click)", buf.String())

	buf.Reset()
	p.Update(5, 0, "")
	assert.Equal(t, "\r\033[K[~] Recording s1 [3s] 5 actions (last: click)", buf.String())

	buf.Reset()
	p.Done(nil)
	assert.Equal(t, "\r\033[K[*] Recording s1: 5 actions recorded in 3s\n", buf.String())

	buf.Reset()
	p.Done(stderrors.New("lost"))
	assert.True(t, strings.HasPrefix(buf.String(), "\r\033[K[x] "))
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "short", wrapText("short", 40))
	assert.Equal(t, "one two\nthree", wrapText("one two three", 9))
	assert.Equal(t, "keep\n\nparagraphs", wrapText("keep\n\nparagraphs", 40))
}

func TestRenderHelp(t *testing.T) {
	root := NewStandardCommand("recorder", "Record browser interactions")
	sub := &cobra.Command{
		Use:     "inject [target]",
		Short:   "Inject generated code",
		Example: "  # into a spec\n  recorder inject a.cy.js --backup",
		RunE:    func(*cobra.Command, []string) error { return nil },
	}
	sub.Flags().StringP("target", "t", "", "Test file")
	root.AddCommand(sub)

	var buf bytes.Buffer
	renderHelp(&buf, root, 80)
	out := buf.String()
	assert.Contains(t, out, " RECORDER\n")
	assert.Contains(t, out, "COMMANDS")
	assert.Contains(t, out, " inject  Inject generated code")
	assert.Contains(t, out, "Use \"recorder [command] --help\"")

	buf.Reset()
	renderHelp(&buf, sub, 80)
	out = buf.String()
	assert.Contains(t, out, "RECORDER INJECT")
	assert.Contains(t, out, "recorder inject [target]")
	assert.Contains(t, out, "-t, --target")
	assert.Contains(t, out, "GLOBAL FLAGS")
	assert.Contains(t, out, "    --no-color")
	assert.Contains(t, out, "# into a spec")
	assert.Contains(t, out, "  recorder inject a.cy.js --backup")
}

func TestExecuteReportsFailure(t *testing.T) {
	root := NewStandardCommand("recorder", "Record browser interactions")
	root.AddCommand(&cobra.Command{
		Use: "fail",
		RunE: func(*cobra.Command, []string) error {
			return WithArtifacts(errors.FileTooLarge("big.js", 10, 5), Artifacts{FallbackPath: "big.recorded.js"})
		},
	})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)

	root.SetArgs([]string{"fail"})
	assert.Equal(t, 1, Execute(root))
	assert.Contains(t, errOut.String(), "Error:")
	assert.Contains(t, errOut.String(), "maxFileSize")
	assert.Contains(t, errOut.String(), "big.recorded.js")

	root.SetArgs([]string{"help"})
	assert.Equal(t, 0, Execute(root))
}
