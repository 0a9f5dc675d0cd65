package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grovetools/recorder/cli"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/pkg/profiling"
	"github.com/grovetools/recorder/state"
	"github.com/grovetools/recorder/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventLog = `{"type":"session-start","data":{"sessionId":"","url":"https://shop.test/","viewport":{"width":1280,"height":800},"userAgent":"ua"},"context":{"timestamp":1,"url":"https://shop.test/"}}

{"type":"click","data":{"selector":"#buy","coordinates":{"x":3,"y":4}},"context":{"timestamp":2,"url":"https://shop.test/"}}
not json
{"type":"click","data":{"coordinates":{}}}
`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestRecordFromTailInjectsAndArchives(t *testing.T) {
	dir := testutil.Workspace(t)
	testutil.WriteFile(t, filepath.Join(dir, "events.jsonl"), eventLog)
	spec := filepath.Join(dir, "cypress", "e2e", "shop.cy.js")
	testutil.WriteFile(t, spec, testutil.AnchorSpec)

	out, _, err := run(t, "", "record", "--source", "tail", "--file", "events.jsonl",
		"--target", spec, "--session-id", "s1", "--snapshot", "session.json")
	require.NoError(t, err)
	assert.Contains(t, out, "Injected")

	data, err := os.ReadFile(spec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `cy.visit("https://shop.test/");`)
	assert.Contains(t, string(data), `cy.get("#buy").click();`)

	last, err := state.LastSession()
	require.NoError(t, err)
	assert.Equal(t, "s1", last)
	target, err := state.LastTarget()
	require.NoError(t, err)
	assert.Equal(t, spec, target)
	assert.FileExists(t, filepath.Join(dir, "session.json"))

	out, _, err = run(t, "", "sessions", "list", "--json")
	require.NoError(t, err)
	var summaries []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "s1", summaries[0]["sessionId"])
	assert.EqualValues(t, 2, summaries[0]["actionCount"])

	out, _, err = run(t, "", "sessions", "list")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "╭"), out)
	assert.Contains(t, out, "SESSION")
	assert.Contains(t, out, "s1 *")

	// the latest session is the default for generate
	out, _, err = run(t, "", "generate", "--snippet", "--comments=false", "--assertions=false")
	require.NoError(t, err)
	assert.Equal(t, "cy.visit(\"https://shop.test/\");\ncy.get(\"#buy\").click();\n", out)

	out, _, err = run(t, "", "sessions", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Session:    s1")
	assert.Contains(t, out, "#buy")

	out, _, err = run(t, "", "sessions", "delete", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted session s1")
	last, _ = state.LastSession()
	assert.Empty(t, last)
}

func TestRecordWithoutTargetPrintsTest(t *testing.T) {
	dir := testutil.Workspace(t)
	testutil.WriteFile(t, filepath.Join(dir, "events.jsonl"), eventLog)

	out, _, err := run(t, "", "record", "--source", "tail", "--file", "events.jsonl", "--no-archive")
	require.NoError(t, err)
	assert.Contains(t, out, `describe("Recorded test"`)
	assert.Contains(t, out, `cy.get("#buy").click();`)
	assert.NoFileExists(t, filepath.Join(dir, ".recorder", "sessions.db"))
}

func TestRecordRejectsBadSource(t *testing.T) {
	testutil.Workspace(t)
	_, _, err := run(t, "", "record", "--source", "carrier-pigeon")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, _, err = run(t, "", "record")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "browser source needs a url")

	_, _, err = run(t, "", "record", "--source", "tail")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "tail source needs a file")
}

func TestGenerateFromSnapshotToFile(t *testing.T) {
	dir := testutil.Workspace(t)
	testutil.WriteFile(t, filepath.Join(dir, "events.jsonl"), eventLog)
	_, _, err := run(t, "", "record", "--source", "tail", "--file", "events.jsonl",
		"--no-archive", "--snapshot", "session.json")
	require.NoError(t, err)

	_, _, err = run(t, "", "generate", "--from", "session.json", "-o", "out/login.cy.js", "--test-name", "logs in")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "out", "login.cy.js"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `it("logs in"`)

	_, _, err = run(t, "", "generate", "--from", "missing.json")
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))
}

func TestInjectCodeFromStdin(t *testing.T) {
	dir := testutil.Workspace(t)
	spec := filepath.Join(dir, "shop.cy.js")
	testutil.WriteFile(t, spec, testutil.AnchorSpec)

	out, _, err := run(t, `cy.get("a").click();`, "inject", spec, "--code", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "after cy.startRecording() at line 3")

	data, _ := os.ReadFile(spec)
	assert.Contains(t, string(data), "    cy.startRecording();\n    cy.get(\"a\").click();\n")
}

func TestInjectFailureReportsArtifacts(t *testing.T) {
	dir := testutil.Workspace(t)
	spec := filepath.Join(dir, "plain.cy.js")
	testutil.WriteFile(t, spec, "it(\"x\", () => {});\n")

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(`cy.get("a").click();`))
	root.SetArgs([]string{"inject", spec, "--code", "-", "--backup", "--no-color"})

	assert.Equal(t, 1, cli.Execute(root))
	assert.Contains(t, errOut.String(), "no anchor call cy.startRecording()")
	assert.Contains(t, errOut.String(), "Add cy.startRecording(); inside the test")
	assert.Contains(t, errOut.String(), "Backup restored from")
	assert.Contains(t, errOut.String(), "Recorded code was")

	data, _ := os.ReadFile(spec)
	assert.Equal(t, "it(\"x\", () => {});\n", string(data))
}

func TestInjectNeedsTarget(t *testing.T) {
	testutil.Workspace(t)
	_, _, err := run(t, "x();", "inject", "--code", "-")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestBackupCommands(t *testing.T) {
	dir := testutil.Workspace(t)
	spec := filepath.Join(dir, "shop.cy.js")
	testutil.WriteFile(t, spec, testutil.AnchorSpec)

	_, _, err := run(t, `cy.get("a").click();`, "inject", spec, "--code", "-", "--backup")
	require.NoError(t, err)

	out, _, err := run(t, "", "backup", "list", spec, "--backup", "--json")
	require.NoError(t, err)
	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)

	out, _, err = run(t, "", "backup", "list", spec, "--backup")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATED")
	assert.Contains(t, out, records[0]["backupPath"].(string))

	_, _, err = run(t, "", "backup", "restore", spec, "--backup")
	require.NoError(t, err)
	data, _ := os.ReadFile(spec)
	assert.Equal(t, testutil.AnchorSpec, string(data))

	out, _, err = run(t, "", "backup", "clean", "--backup")
	require.NoError(t, err)
	assert.Equal(t, "Removed 1 backups\n", out)

	_, _, err = run(t, "", "backup", "restore", spec)
	assert.True(t, errors.Is(err, errors.ErrCodeBackupsDisabled))
}

func TestSelectorCommands(t *testing.T) {
	testutil.Workspace(t)
	out, _, err := run(t, "", "selector", "generate", "--tag", "button", "--attr", "data-testid=submit")
	require.NoError(t, err)
	assert.Equal(t, "[data-testid=\"submit\"]\n", out)

	out, _, err = run(t, "", "selector", "generate", "--tag", "button", "--attr", "data-testid=submit", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "CONFIDENCE")
	assert.Contains(t, out, "0.98")
	assert.Contains(t, out, "priority-attribute")

	_, _, err = run(t, "", "selector", "generate", "--tag", "a", "--attr", "broken")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	html := `<ul><li class="item">a</li><li class="item">b</li></ul><button id="go">Go</button>`
	out, _, err = run(t, html, "selector", "validate", "#go")
	require.NoError(t, err)
	assert.Equal(t, "#go is unique\n", out)

	out, _, err = run(t, html, "selector", "validate", ".item")
	require.NoError(t, err)
	assert.Equal(t, ".item matches 2 elements\n", out)
}

func TestConfigCommands(t *testing.T) {
	dir := testutil.Workspace(t)

	out, _, err := run(t, "", "config", "show", "--json", "--timeout", "5")
	require.NoError(t, err)
	var opts map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &opts))
	assert.EqualValues(t, 5, opts["timeout"])

	_, _, err = run(t, "", "config", "validate")
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))

	testutil.WriteFile(t, filepath.Join(dir, "recorder.yml"), "timeout: 10\nbackupFiles: true\n")
	out, _, err = run(t, "", "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "recorder.yml is valid")

	out, _, err = run(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "timeout: 10")

	testutil.WriteFile(t, filepath.Join(dir, "bad.yml"), "timeout: 0\n")
	_, _, err = run(t, "", "config", "validate", "bad.yml")
	require.Error(t, err)
	assert.Equal(t, errors.CategoryInvalidInput, errors.CategoryOf(errors.GetCode(err)))

	out, _, err = run(t, "", "config", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "anchorCall")
}

func TestScan(t *testing.T) {
	dir := testutil.Workspace(t)
	testutil.WriteFile(t, filepath.Join(dir, "cypress", "e2e", "shop.cy.js"), testutil.AnchorSpec)
	testutil.WriteFile(t, filepath.Join(dir, "cypress", "e2e", "plain.cy.js"), "it(\"x\", () => {});\n")

	out, _, err := run(t, "", "scan", "cypress")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("cypress", "e2e", "shop.cy.js")+":3:5\n", out)
}

func TestPaths(t *testing.T) {
	dir := testutil.Workspace(t)
	out, _, err := run(t, "", "paths", "--json")
	require.NoError(t, err)

	var p PathsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Empty(t, p.ConfigFile)
	assert.Equal(t, filepath.Join(dir, ".recorder", "sessions.db"), p.Archive)
	assert.Equal(t, filepath.Join(dir, ".recorder", "backups"), p.BackupDir)
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "recorder "))
}

func TestTimingFlag(t *testing.T) {
	dir := testutil.Workspace(t)
	t.Cleanup(profiling.Reset)
	spec := filepath.Join(dir, "shop.cy.js")
	testutil.WriteFile(t, spec, testutil.AnchorSpec)

	_, errOut, err := run(t, `cy.get("a").click();`, "inject", spec, "--code", "-", "--timing")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Timing (")
	assert.Contains(t, errOut, "- parse (")
	assert.Contains(t, errOut, "- verify (")
}
