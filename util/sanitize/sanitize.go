package sanitize

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxStringLength is the longest string value kept in a recorded payload, in runes.
	MaxStringLength = 10000

	// MaxDepth caps how deeply nested mappings are kept.
	MaxDepth = 10
)

var (
	// multiDashRegex matches multiple consecutive dashes
	multiDashRegex = regexp.MustCompile(`-+`)

	// nonFilenameRegex matches anything that is not a lowercase letter, digit or hyphen
	nonFilenameRegex = regexp.MustCompile(`[^a-z0-9-]+`)
)

// String strips control characters other than tab, newline and carriage
// return, and truncates the result to MaxStringLength runes.
func String(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	count := 0
	for len(s) > 0 && count < MaxStringLength {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if isControl(r) {
			continue
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}

func isControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return unicode.IsControl(r)
}

// Payload returns a sanitized copy of a recorded action payload. Strings are
// cleaned with String, numeric keys are dropped, slices are sanitized element
// by element and any value that is neither a scalar, a slice nor a mapping
// becomes nil. Mappings nested deeper than MaxDepth become nil.
func Payload(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return sanitizeMap(data, 0)
}

func sanitizeMap(m map[string]interface{}, depth int) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if isNumericKey(k) {
			continue
		}
		out[String(k)] = Value(v, depth+1)
	}
	return out
}

// Value sanitizes a single payload value found at the given nesting depth.
func Value(v interface{}, depth int) interface{} {
	if depth > MaxDepth {
		return nil
	}

	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return String(val)
	case bool, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return val
	case map[string]interface{}:
		return sanitizeMap(val, depth)
	case map[interface{}]interface{}:
		// yaml.v2-style maps; non-string keys are dropped
		converted := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if ks, ok := k.(string); ok {
				converted[ks] = inner
			}
		}
		return sanitizeMap(converted, depth)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = Value(item, depth+1)
		}
		return out
	case []string:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = String(item)
		}
		return out
	default:
		return reflected(reflect.ValueOf(v), depth)
	}
}

// reflected handles typed maps, slices and named scalar types such as
// map[string]string or []map[string]interface{}. Structs, pointers, funcs
// and channels become nil.
func reflected(rv reflect.Value, depth int) interface{} {
	switch rv.Kind() {
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Map:
		converted := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key()
			if k.Kind() == reflect.Interface {
				k = k.Elem()
			}
			if k.Kind() != reflect.String {
				continue
			}
			converted[k.String()] = iter.Value().Interface()
		}
		return sanitizeMap(converted, depth)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = Value(rv.Index(i).Interface(), depth+1)
		}
		return out
	default:
		return nil
	}
}

func isNumericKey(k string) bool {
	if k == "" {
		return false
	}
	_, err := strconv.Atoi(k)
	return err == nil
}

// ForFilename sanitizes a string for use in a filename (kebab-case).
func ForFilename(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	// Remove non-alphanumeric characters, except hyphens
	s = nonFilenameRegex.ReplaceAllString(s, "")
	// Collapse multiple hyphens
	s = multiDashRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 { // Truncate long names
		s = s[:50]
	}
	return s
}
