package selector

import (
	"fmt"
	"strings"
	"unicode"
)

// cssSpecial are the characters that must be backslash-escaped inside an
// identifier (id or class name).
const cssSpecial = "!\"#$%&'()*+,./:;<=>?@[\\]^`{|}~"

// EscapeIdentifier escapes s for use after '#' or '.' in a CSS selector.
// Special characters get a backslash, leading digits and whitespace or
// control characters become hex escapes.
func EscapeIdentifier(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == 0:
			b.WriteRune(unicode.ReplacementChar)
		case unicode.IsDigit(r) && (i == 0 || (i == 1 && runes[0] == '-')):
			hexEscape(&b, r)
		case unicode.IsSpace(r) || unicode.IsControl(r):
			hexEscape(&b, r)
		case r == '-' && i == 0 && len(runes) == 1:
			b.WriteString("\\-")
		case strings.ContainsRune(cssSpecial, r):
			b.WriteRune('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EscapeAttributeValue escapes s for use inside a double-quoted attribute
// selector value.
func EscapeAttributeValue(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n', '\r', '\f':
			hexEscape(&b, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hexEscape(b *strings.Builder, r rune) {
	fmt.Fprintf(b, "\\%x ", r)
}

// attributeSelector renders [name="value"].
func attributeSelector(name, value string) string {
	return fmt.Sprintf(`[%s="%s"]`, name, EscapeAttributeValue(value))
}
