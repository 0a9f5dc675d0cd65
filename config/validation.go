package config

import (
	"fmt"
	"strings"

	"github.com/grovetools/recorder/errors"
)

// Validate checks option ranges and enumerations.
func (o *Options) Validate() error {
	if o.Timeout <= 0 {
		return invalidOption(KeyTimeout, o.Timeout, "must be greater than 0")
	}
	if o.MaxBackupsPerFile < 0 {
		return invalidOption(KeyMaxBackupsPerFile, o.MaxBackupsPerFile, "must not be negative")
	}
	if o.MaxActionsPerSession < 0 {
		return invalidOption(KeyMaxActionsPerSession, o.MaxActionsPerSession, "must not be negative")
	}
	if o.MaxFileSize <= 0 {
		return invalidOption(KeyMaxFileSize, o.MaxFileSize, "must be greater than 0")
	}
	if o.MaxHierarchyDepth <= 0 {
		return invalidOption(KeyMaxHierarchyDepth, o.MaxHierarchyDepth, "must be greater than 0")
	}

	if err := validateEnum(KeyDeviceEmulation, o.DeviceEmulation, "", DeviceMobile, DeviceDesktop); err != nil {
		return err
	}
	if err := validateEnum(KeyColorScheme, o.ColorScheme, "", ColorSchemeDark, ColorSchemeLight); err != nil {
		return err
	}
	if err := validateEnum(KeyHierarchyCombinator, o.HierarchyCombinator, CombinatorChild, CombinatorDescendant); err != nil {
		return err
	}

	if strings.TrimSpace(o.AnchorCall) == "" {
		return invalidOption(KeyAnchorCall, o.AnchorCall, "cannot be empty")
	}
	for _, attr := range o.SelectorPriority {
		if strings.TrimSpace(attr) == "" {
			return invalidOption(KeySelectorPriority, o.SelectorPriority, "cannot contain empty attribute names")
		}
	}

	return nil
}

func validateEnum(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	var shown []string
	for _, a := range allowed {
		if a == "" {
			shown = append(shown, "null")
		} else {
			shown = append(shown, a)
		}
	}
	return invalidOption(key, value, fmt.Sprintf("must be one of: %s", strings.Join(shown, ", ")))
}

func invalidOption(key string, value interface{}, reason string) error {
	return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("option '%s' %s", key, reason)).
		WithDetail("key", key).
		WithDetail("value", value)
}
