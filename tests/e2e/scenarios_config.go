package main

import (
	"fmt"
	"path/filepath"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

// ConfigLayeringScenario checks that project settings override global ones
// and flags override both.
func ConfigLayeringScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "recorder-config-layering",
		Description: "Verifies that global, project and flag settings are merged in order.",
		Tags:        []string{"config"},
		Steps: []harness.Step{
			harness.NewStep("Setup layered configuration", func(ctx *harness.Context) error {
				globalDir := filepath.Join(ctx.HomeDir(), ".config", "recorder")
				if err := fs.CreateDir(globalDir); err != nil {
					return fmt.Errorf("failed to create global config dir: %w", err)
				}
				if err := fs.WriteString(filepath.Join(globalDir, "recorder.yml"), "timeout: 60\nsuiteName: Global suite\n"); err != nil {
					return err
				}
				projectDir := filepath.Join(ctx.HomeDir(), "layered")
				if err := fs.WriteString(filepath.Join(projectDir, "recorder.yml"), "timeout: 90\n"); err != nil {
					return err
				}
				ctx.Set("projectDir", projectDir)
				return nil
			}),
			harness.NewStep("Show merged configuration", func(ctx *harness.Context) error {
				cmd := ctx.Command("recorder", "config", "show", "--test-name", "from flag").Dir(ctx.GetString("projectDir"))
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("`recorder config show` failed: %w", result.Error)
				}

				output := result.Stdout
				if err := assert.Contains(output, "timeout: 90", "project timeout should win"); err != nil {
					return err
				}
				if err := assert.Contains(output, "suiteName: Global suite", "global suite name should be kept"); err != nil {
					return err
				}
				return assert.Contains(output, "testName: from flag", "flag should override files")
			}),
		},
	}
}

// ConfigInvalidScenario verifies that invalid settings are reported.
func ConfigInvalidScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "recorder-config-invalid",
		Description: "An out-of-range option fails validation with a hint.",
		Tags:        []string{"config", "validation"},
		Steps: []harness.Step{
			harness.NewStep("Validate an invalid file", func(ctx *harness.Context) error {
				projectDir := filepath.Join(ctx.HomeDir(), "invalid")
				if err := fs.WriteString(filepath.Join(projectDir, "recorder.yml"), "timeout: 0\n"); err != nil {
					return err
				}

				cmd := ctx.Command("recorder", "config", "validate").Dir(projectDir)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(1, result.ExitCode, "validation should fail"); err != nil {
					return err
				}
				return assert.Contains(result.Stderr, "recorder config validate", "hint should point at validate")
			}),
		},
	}
}
