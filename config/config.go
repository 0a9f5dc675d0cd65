package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/recorder/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Format identifies a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// configNames are searched, in order, in each directory.
var configNames = []string{
	"recorder.yml",
	"recorder.yaml",
	".recorder.yml",
	".recorder.yaml",
	"recorder.toml",
}

// FormatFor picks the syntax from a file extension. Anything that is not
// .toml is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads, validates and decodes a single configuration file.
func Load(path string) (*Config, error) {
	return LoadWithLogger(path, logrus.StandardLogger())
}

// LoadWithLogger is Load with an explicit logger for warnings.
func LoadWithLogger(path string, logger *logrus.Logger) (*Config, error) {
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}

	cfg, err := decodeValidated(raw, logger)
	if err != nil {
		if recErr, ok := errors.As(err); ok {
			recErr.WithDetail("path", path)
		}
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// LoadFromBytes parses configuration from a byte array in the given format.
func LoadFromBytes(data []byte, format Format) (*Config, error) {
	raw, err := parseRaw(data, format)
	if err != nil {
		return nil, err
	}
	return decodeValidated(raw, logrus.StandardLogger())
}

// LoadDefault loads configuration starting from the current directory.
// When no configuration file exists the defaults are returned.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom loads configuration with layered merging:
// 1. Global config (~/.config/recorder/recorder.yml) - base layer
// 2. Project config found by walking up from startDir - overrides global
func LoadFrom(startDir string) (*Config, error) {
	return LoadFromWithLogger(startDir, logrus.StandardLogger())
}

// LoadFromWithLogger is LoadFrom with an explicit logger for warnings.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	merged := make(map[string]interface{})

	globalPath := getXDGConfigPath()
	if globalPath != "" {
		if _, err := os.Stat(globalPath); err == nil {
			logger.WithField("path", globalPath).Debug("Loading global configuration")
			raw, err := readRaw(globalPath)
			if err != nil {
				logger.WithError(err).Warn("Failed to read global configuration, continuing without it")
			} else {
				merged = mergeRaw(merged, raw)
			}
		}
	}

	projectPath, err := FindConfigFile(startDir)
	if err != nil && !errors.Is(err, errors.ErrCodeConfigNotFound) {
		return nil, err
	}
	if projectPath != "" {
		logger.WithField("path", projectPath).Debug("Loading project configuration")
		raw, err := readRaw(projectPath)
		if err != nil {
			return nil, err
		}
		merged = mergeRaw(merged, raw)
	}

	cfg, err := decodeValidated(merged, logger)
	if err != nil {
		return nil, err
	}
	cfg.Path = projectPath
	return cfg, nil
}

// FindConfigFile searches startDir and its parents for a recorder
// configuration file.
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		dir = startDir
	}

	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

func readRaw(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}
	raw, err := parseRaw(data, FormatFor(path))
	if err != nil {
		if recErr, ok := errors.As(err); ok {
			recErr.WithDetail("path", path)
		}
		return nil, err
	}
	return raw, nil
}

func parseRaw(data []byte, format Format) (map[string]interface{}, error) {
	expanded := []byte(expandEnvVars(string(data)))

	raw := make(map[string]interface{})
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
	default:
		if err := yaml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
		}
	}
	if raw == nil {
		raw = make(map[string]interface{})
	}
	return raw, nil
}

func decodeValidated(raw map[string]interface{}, logger *logrus.Logger) (*Config, error) {
	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create validator")
	}

	if err := validator.Validate(raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
	}

	return Decode(raw, logger)
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

// getXDGConfigPath returns the global configuration path.
func getXDGConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "recorder", "recorder.yml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "recorder", "recorder.yml")
}
