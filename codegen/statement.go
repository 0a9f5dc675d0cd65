package codegen

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Class groups statements by role.
type Class string

const (
	ClassNavigation  Class = "navigation"
	ClassInteraction Class = "interaction"
	ClassAssertion   Class = "assertion"
)

// Statement is one emitted line of test code.
type Statement struct {
	// Expression is the full call expression without the trailing semicolon.
	Expression string `json:"expression"`
	Comment    string `json:"comment,omitempty"`
	Class      Class  `json:"class"`

	// subject and chain split interaction expressions at the element query
	// so consecutive commands on the same element can be merged.
	subject string
	chain   string
}

func interaction(sel, chain, comment string) Statement {
	subject := "cy.get(" + Quote(sel) + ")"
	return Statement{
		Expression: subject + chain,
		Comment:    comment,
		Class:      ClassInteraction,
		subject:    subject,
		chain:      chain,
	}
}

// Lines renders the statement as source lines, comment first.
func (s Statement) Lines(withComment bool) []string {
	var lines []string
	if withComment && s.Comment != "" {
		lines = append(lines, "// "+commentText(s.Comment))
	}
	return append(lines, s.Expression+";")
}

// chainStatements merges runs of interactions on the same subject.
func chainStatements(in []Statement) []Statement {
	var out []Statement
	for _, s := range in {
		if n := len(out); n > 0 && s.subject != "" && out[n-1].subject == s.subject {
			prev := &out[n-1]
			prev.chain += s.chain
			prev.Expression = prev.subject + prev.chain
			if s.Comment != "" {
				if prev.Comment != "" {
					prev.Comment += ", then "
				}
				prev.Comment += lowerFirst(s.Comment)
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// Quote renders s as a double-quoted JavaScript string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&b, `\u%04x`, r)
		case utf8.RuneError:
			b.WriteString(`\ufffd`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// commentText keeps a comment on one line.
func commentText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029' {
			return ' '
		}
		return r
	}, s)
	if utf8.RuneCountInString(s) > maxCommentLength {
		s = string([]rune(s)[:maxCommentLength-3]) + "..."
	}
	return s
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return strings.ToLower(string(r)) + s[size:]
}
