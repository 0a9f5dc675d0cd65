package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/command"
	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

// VersionScenario tests the 'version' command.
func VersionScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "recorder-basic-version",
		Steps: []harness.Step{
			harness.NewStep("Run 'recorder version'", func(ctx *harness.Context) error {
				bin, err := findRecorderBinary()
				if err != nil {
					return err
				}

				cmd := command.New(bin, "version")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "recorder version should exit successfully"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "Commit:", "Output should contain Commit"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "Platform:", "Output should contain Platform")
			}),
		},
	}
}

// RecordFromEventFileScenario records a session from an event log, injects
// it into a spec and checks the archive afterwards.
func RecordFromEventFileScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "recorder-record-tail",
		Description: "Records from an event file, injects into a spec and archives the session.",
		Tags:        []string{"record", "inject", "sessions"},
		Steps: []harness.Step{
			harness.NewStep("Create project", func(ctx *harness.Context) error {
				projectDir := filepath.Join(ctx.HomeDir(), "shop")
				spec := filepath.Join(projectDir, "cypress", "e2e", "checkout.cy.js")
				if err := fs.WriteString(spec, anchorSpec); err != nil {
					return err
				}
				if err := fs.WriteString(filepath.Join(projectDir, "events.jsonl"), eventLog); err != nil {
					return err
				}
				ctx.Set("projectDir", projectDir)
				ctx.Set("spec", spec)
				return nil
			}),
			harness.NewStep("Record and inject", func(ctx *harness.Context) error {
				projectDir := ctx.GetString("projectDir")
				cmd := ctx.Command("recorder", "record", "--source", "tail", "--file", "events.jsonl",
					"--target", "cypress/e2e/checkout.cy.js", "--session-id", "e2e-1").Dir(projectDir)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("record failed: %w", result.Error)
				}
				if err := assert.Contains(result.Stdout, "Injected", "injection should be reported"); err != nil {
					return err
				}

				data, err := os.ReadFile(ctx.GetString("spec"))
				if err != nil {
					return err
				}
				if err := assert.Contains(string(data), `cy.get("#buy").click();`, "click should be injected"); err != nil {
					return err
				}
				return assert.Contains(string(data), `cy.visit("https://shop.test/");`, "visit should be injected")
			}),
			harness.NewStep("List archived sessions", func(ctx *harness.Context) error {
				cmd := ctx.Command("recorder", "sessions", "list").Dir(ctx.GetString("projectDir"))
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("sessions list failed: %w", result.Error)
				}
				return assert.Contains(result.Stdout, "e2e-1 *", "latest session should be marked")
			}),
			harness.NewStep("Regenerate from the archive", func(ctx *harness.Context) error {
				cmd := ctx.Command("recorder", "generate", "--snippet", "--comments=false").Dir(ctx.GetString("projectDir"))
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("generate failed: %w", result.Error)
				}
				if strings.Contains(result.Stdout, "describe(") {
					return fmt.Errorf("snippet output should not contain the describe wrapper")
				}
				return assert.Contains(result.Stdout, `cy.get("#email")`, "input should be generated")
			}),
		},
	}
}

// InjectWithoutAnchorScenario verifies the failure report when a spec has
// no anchor call.
func InjectWithoutAnchorScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "recorder-inject-no-anchor",
		Description: "Injecting into a spec without the anchor fails with a hint and leaves the file untouched.",
		Tags:        []string{"inject", "recovery"},
		Steps: []harness.Step{
			harness.NewStep("Inject into a spec without anchor", func(ctx *harness.Context) error {
				projectDir := filepath.Join(ctx.HomeDir(), "plain")
				spec := filepath.Join(projectDir, "plain.cy.js")
				original := "it(\"x\", () => {});\n"
				if err := fs.WriteString(spec, original); err != nil {
					return err
				}
				if err := fs.WriteString(filepath.Join(projectDir, "steps.js"), "cy.get(\"a\").click();\n"); err != nil {
					return err
				}

				cmd := ctx.Command("recorder", "inject", "plain.cy.js", "--code", "steps.js", "--no-color").Dir(projectDir)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(1, result.ExitCode, "inject should fail"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stderr, "Add cy.startRecording();", "hint should name the anchor"); err != nil {
					return err
				}
				data, err := os.ReadFile(spec)
				if err != nil {
					return err
				}
				return assert.Equal(original, string(data), "spec should be unchanged")
			}),
		},
	}
}

// BackupRestoreScenario injects with backups enabled and restores the spec.
func BackupRestoreScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "recorder-backup-restore",
		Description: "A backup taken before injection restores the original spec.",
		Tags:        []string{"backup", "inject"},
		Steps: []harness.Step{
			harness.NewStep("Inject with backup and restore", func(ctx *harness.Context) error {
				projectDir := filepath.Join(ctx.HomeDir(), "backup")
				if err := fs.WriteString(filepath.Join(projectDir, "spec.cy.js"), anchorSpec); err != nil {
					return err
				}
				if err := fs.WriteString(filepath.Join(projectDir, "steps.js"), "cy.get(\"a\").click();\n"); err != nil {
					return err
				}

				inject := ctx.Command("recorder", "inject", "spec.cy.js", "--code", "steps.js", "--backup").Dir(projectDir)
				result := inject.Run()
				ctx.ShowCommandOutput(inject.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("inject failed: %w", result.Error)
				}

				restore := ctx.Command("recorder", "backup", "restore", "spec.cy.js", "--backup").Dir(projectDir)
				result = restore.Run()
				ctx.ShowCommandOutput(restore.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("restore failed: %w", result.Error)
				}

				data, err := os.ReadFile(filepath.Join(projectDir, "spec.cy.js"))
				if err != nil {
					return err
				}
				return assert.Equal(anchorSpec, string(data), "spec should match the original")
			}),
		},
	}
}
