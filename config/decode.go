package config

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/grovetools/recorder/errors"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
)

// knownSections are top-level keys that are not options but are consumed
// elsewhere and therefore never warned about.
var knownSections = map[string]bool{
	"logging": true,
}

// Decode builds a Config from a raw document. Recognized options are decoded
// strictly over the defaults: a value of the wrong type for a recognized key
// is a CONFIG_INVALID error naming that key. Unknown keys are logged and
// ignored. The result is validated before it is returned.
func Decode(raw map[string]interface{}, logger *logrus.Logger) (*Config, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	cfg := &Config{
		Options:    Defaults(),
		Extensions: make(map[string]interface{}),
	}

	options := make(map[string]interface{})
	var unknown []string
	for key, value := range raw {
		switch {
		case IsOption(key):
			options[key] = value
		case knownSections[key]:
			cfg.Extensions[key] = value
		default:
			cfg.Extensions[key] = value
			unknown = append(unknown, key)
		}
	}

	sort.Strings(unknown)
	for _, key := range unknown {
		logger.WithField("key", key).Warn("Ignoring unknown configuration option")
	}

	if err := decodeOptions(options, &cfg.Options); err != nil {
		return nil, err
	}

	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DecodeOptions is Decode for callers that only need the options.
func DecodeOptions(raw map[string]interface{}) (Options, error) {
	cfg, err := Decode(raw, nil)
	if err != nil {
		return Options{}, err
	}
	return cfg.Options, nil
}

func decodeOptions(options map[string]interface{}, target *Options) error {
	if len(options) == 0 {
		return nil
	}

	err := newDecoder(target).Decode(options)
	if err == nil {
		return nil
	}
	if key, keyErr := firstBadKey(options); key != "" {
		return errors.ConfigType(key, keyErr)
	}
	return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
}

// firstBadKey decodes each option on its own to find the one that failed.
func firstBadKey(options map[string]interface{}) (string, error) {
	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		scratch := Defaults()
		if err := newDecoder(&scratch).Decode(map[string]interface{}{key: options[key]}); err != nil {
			return key, err
		}
	}
	return "", nil
}

func newDecoder(target *Options) *mapstructure.Decoder {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		ZeroFields:       true,
		WeaklyTypedInput: false,
		ErrorUnused:      false,
		DecodeHook:       rejectFractionalInts,
	})
	if err != nil {
		// Only possible with a nil or non-pointer result.
		panic(err)
	}
	return decoder
}

// rejectFractionalInts stops mapstructure from truncating 2.7 into an int
// field. Integral floats, as produced by JSON documents, are accepted.
func rejectFractionalInts(from, to reflect.Type, data interface{}) (interface{}, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	if from.Kind() != reflect.Float32 && from.Kind() != reflect.Float64 {
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("expected an integer, got %v", data)
	}
	return int64(f), nil
}
