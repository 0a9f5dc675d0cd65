package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

//go:generate sh -c "cd .. && go run ./tools/schema-generator/"

// Option keys, as they appear in recorder.yml.
const (
	KeyTimeout                  = "timeout"
	KeyAutoAssertions           = "autoAssertions"
	KeyGenerateComments         = "generateComments"
	KeySelectorPriority         = "selectorPriority"
	KeyUseStableSelectors       = "useStableSelectors"
	KeyIncludeAriaAttributes    = "includeAriaAttributes"
	KeyIncludeHoverActions      = "includeHoverActions"
	KeyCaptureKeyboardShortcuts = "captureKeyboardShortcuts"
	KeyRecordScrollPosition     = "recordScrollPosition"
	KeyBackupFiles              = "backupFiles"
	KeyBackupDirectory          = "backupDirectory"
	KeyMaxBackupsPerFile        = "maxBackupsPerFile"
	KeyAutoCleanupBackups       = "autoCleanupBackups"
	KeyUseTypeForInputs         = "useTypeForInputs"
	KeyChainMethods             = "chainMethods"
	KeyDeviceEmulation          = "deviceEmulation"
	KeyColorScheme              = "colorScheme"
	KeyMaxActionsPerSession     = "maxActionsPerSession"
	KeyAnchorCall               = "anchorCall"
	KeyMaxFileSize              = "maxFileSize"
	KeyVerifyInjection          = "verifyInjection"
	KeyMaxHierarchyDepth        = "maxHierarchyDepth"
	KeyHierarchyCombinator      = "hierarchyCombinator"
	KeyTypeSimulationInputTypes = "typeSimulationInputTypes"
	KeyTestName                 = "testName"
	KeySuiteName                = "suiteName"
)

// Enumerated option values.
const (
	DeviceMobile  = "mobile"
	DeviceDesktop = "desktop"

	ColorSchemeDark  = "dark"
	ColorSchemeLight = "light"

	CombinatorChild      = "child"
	CombinatorDescendant = "descendant"
)

// DefaultSelectorPriority is the attribute order tried first when building selectors.
var DefaultSelectorPriority = []string{"data-testid", "data-cy", "data-test", "id", "name", "data-qa", "role"}

// DefaultTypeSimulationInputTypes are the input types filled with keystroke simulation.
var DefaultTypeSimulationInputTypes = []string{"search", "url", "tel", "email"}

// Options is the full set of recognized recorder options.
type Options struct {
	Timeout                  int      `yaml:"timeout" json:"timeout" jsonschema:"minimum=1,description=Recording session timeout in seconds"`
	AutoAssertions           bool     `yaml:"autoAssertions" json:"autoAssertions" jsonschema:"description=Append URL and runtime-error assertions to generated tests"`
	GenerateComments         bool     `yaml:"generateComments" json:"generateComments" jsonschema:"description=Emit a short comment above each generated statement"`
	SelectorPriority         []string `yaml:"selectorPriority" json:"selectorPriority" jsonschema:"description=Ordered attribute names tried first when building selectors"`
	UseStableSelectors       bool     `yaml:"useStableSelectors" json:"useStableSelectors" jsonschema:"description=Never fall back to class-based selectors"`
	IncludeAriaAttributes    bool     `yaml:"includeAriaAttributes" json:"includeAriaAttributes" jsonschema:"description=Include aria-* attributes in attribute selectors"`
	IncludeHoverActions      bool     `yaml:"includeHoverActions" json:"includeHoverActions" jsonschema:"description=Translate recorded hovers into statements"`
	CaptureKeyboardShortcuts bool     `yaml:"captureKeyboardShortcuts" json:"captureKeyboardShortcuts" jsonschema:"description=Translate key presses that carry modifiers"`
	RecordScrollPosition     bool     `yaml:"recordScrollPosition" json:"recordScrollPosition" jsonschema:"description=Translate recorded scrolls into scrollTo statements"`
	BackupFiles              bool     `yaml:"backupFiles" json:"backupFiles" jsonschema:"description=Back up target files before injection"`
	BackupDirectory          string   `yaml:"backupDirectory" json:"backupDirectory" jsonschema:"description=Directory that holds backups"`
	MaxBackupsPerFile        int      `yaml:"maxBackupsPerFile" json:"maxBackupsPerFile" jsonschema:"minimum=0,description=Backups kept per target file"`
	AutoCleanupBackups       bool     `yaml:"autoCleanupBackups" json:"autoCleanupBackups" jsonschema:"description=Prune backups above maxBackupsPerFile"`
	UseTypeForInputs         bool     `yaml:"useTypeForInputs" json:"useTypeForInputs" jsonschema:"description=Use keystroke simulation for search/url/tel/email inputs"`
	ChainMethods             bool     `yaml:"chainMethods" json:"chainMethods" jsonschema:"description=Merge consecutive commands on the same element into one chain"`
	DeviceEmulation          string   `yaml:"deviceEmulation" json:"deviceEmulation" jsonschema:"description=Viewport preset: mobile or desktop"`
	ColorScheme              string   `yaml:"colorScheme" json:"colorScheme" jsonschema:"description=Emulated prefers-color-scheme: dark or light"`
	MaxActionsPerSession     int      `yaml:"maxActionsPerSession" json:"maxActionsPerSession" jsonschema:"minimum=0,description=Maximum recorded actions per session (0 = unlimited)"`

	AnchorCall               string   `yaml:"anchorCall" json:"anchorCall" jsonschema:"description=Call after which generated code is injected"`
	MaxFileSize              int64    `yaml:"maxFileSize" json:"maxFileSize" jsonschema:"minimum=1,description=Largest target file accepted for injection in bytes"`
	VerifyInjection          bool     `yaml:"verifyInjection" json:"verifyInjection" jsonschema:"description=Re-parse and check injected output before writing"`
	MaxHierarchyDepth        int      `yaml:"maxHierarchyDepth" json:"maxHierarchyDepth" jsonschema:"minimum=1,description=Ancestor levels used by hierarchical selectors"`
	HierarchyCombinator      string   `yaml:"hierarchyCombinator" json:"hierarchyCombinator" jsonschema:"enum=child,enum=descendant,description=Combinator joining hierarchical selector levels"`
	TypeSimulationInputTypes []string `yaml:"typeSimulationInputTypes" json:"typeSimulationInputTypes" jsonschema:"description=Input types filled with keystroke simulation"`
	TestName                 string   `yaml:"testName" json:"testName" jsonschema:"description=Default name of generated test cases"`
	SuiteName                string   `yaml:"suiteName" json:"suiteName" jsonschema:"description=Default name of the generated describe block"`
}

// Defaults returns Options populated with the documented defaults.
func Defaults() Options {
	return Options{
		Timeout:                  30,
		AutoAssertions:           true,
		GenerateComments:         true,
		SelectorPriority:         append([]string(nil), DefaultSelectorPriority...),
		UseStableSelectors:       false,
		IncludeAriaAttributes:    true,
		IncludeHoverActions:      true,
		CaptureKeyboardShortcuts: true,
		RecordScrollPosition:     false,
		BackupFiles:              false,
		BackupDirectory:          ".recorder/backups",
		MaxBackupsPerFile:        10,
		AutoCleanupBackups:       true,
		UseTypeForInputs:         true,
		ChainMethods:             false,
		MaxActionsPerSession:     10000,
		AnchorCall:               "cy.startRecording",
		MaxFileSize:              1 << 20,
		VerifyInjection:          true,
		MaxHierarchyDepth:        5,
		HierarchyCombinator:      CombinatorChild,
		TypeSimulationInputTypes: append([]string(nil), DefaultTypeSimulationInputTypes...),
		TestName:                 "recorded interactions",
		SuiteName:                "Recorded test",
	}
}

// Config is a loaded recorder.yml: the recognized options plus any other
// top-level sections (such as "logging") kept as extensions.
type Config struct {
	Options `yaml:",inline"`

	// Extensions holds the top-level sections that are not recorder options.
	Extensions map[string]interface{} `yaml:"-"`

	// Path is the file the configuration was loaded from, empty for defaults.
	Path string `yaml:"-"`
}

// UnmarshalExtension decodes a top-level section of the loaded file into the
// provided target struct. The target must be a pointer. A missing section
// leaves the target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// optionKeys lists the yaml names of every Options field.
var optionKeys = func() map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeOf(Options{})
	for i := 0; i < t.NumField(); i++ {
		name := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
		if name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}()

// IsOption reports whether key names a recognized option.
func IsOption(key string) bool {
	return optionKeys[key]
}
