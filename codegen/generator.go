// Package codegen translates recorded actions into Cypress test code.
//
// Each action type maps to one handler in a lookup table. A handler emits
// zero or one statement; the generator then optionally merges chains,
// appends assertions and wraps everything in a describe/it block.
package codegen

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/logging"
	"github.com/grovetools/recorder/selector"
	"github.com/sirupsen/logrus"
)

const (
	indent           = "  "
	maxCommentLength = 120
)

// Result is the output of GenerateTest.
type Result struct {
	Code           string      `json:"code"`
	TestName       string      `json:"testName"`
	SuiteName      string      `json:"suiteName"`
	ActionCount    int         `json:"actionCount"`
	StatementCount int         `json:"statementCount"`
	HasAssertions  bool        `json:"hasAssertions"`
	UsedSelectors  []string    `json:"usedSelectors"`
	Statements     []Statement `json:"statements"`
	comments       bool
}

// Snippet renders the statements alone, one per line, for injection into an
// existing test body.
func (r *Result) Snippet() string {
	var lines []string
	for _, s := range r.Statements {
		lines = append(lines, s.Lines(r.comments)...)
	}
	return strings.Join(lines, "\n")
}

// Generator holds the translation policy. It is safe for concurrent use.
type Generator struct {
	opts      config.Options
	selectors *selector.Generator
	typeSim   map[string]bool
	logger    *logrus.Entry
}

// New creates a Generator for the given options.
func New(opts config.Options) *Generator {
	typeSim := make(map[string]bool, len(opts.TypeSimulationInputTypes))
	for _, t := range opts.TypeSimulationInputTypes {
		typeSim[strings.ToLower(t)] = true
	}
	return &Generator{
		opts:      opts,
		selectors: selector.New(selector.OptionsFrom(opts)),
		typeSim:   typeSim,
		logger:    logging.NewLogger("codegen"),
	}
}

// genState carries per-run bookkeeping between handlers.
type genState struct {
	used map[string]bool
	sels []string
}

func (st *genState) use(sel string) {
	if !st.used[sel] {
		st.used[sel] = true
		st.sels = append(st.sels, sel)
	}
}

// GenerateTest translates an ordered action sequence into a complete test
// file. testName falls back to the configured default.
func (g *Generator) GenerateTest(acts []actions.Action, testName string) (*Result, error) {
	if len(acts) == 0 {
		return nil, errors.InvalidInput("no actions to generate a test from")
	}
	if strings.TrimSpace(testName) == "" {
		testName = g.opts.TestName
	}
	suiteName := g.opts.SuiteName
	if suiteName == "" {
		suiteName = config.Defaults().SuiteName
	}

	st := &genState{used: make(map[string]bool)}
	var stmts []Statement
	for _, a := range acts {
		h, ok := handlers[a.Type]
		if !ok {
			g.logger.WithField("type", a.Type).Warn("No handler for action type")
			continue
		}
		stmts = append(stmts, h(g, a, st)...)
	}

	if g.opts.ChainMethods {
		stmts = chainStatements(stmts)
	}

	hasAssertions := false
	if g.opts.AutoAssertions {
		stmts = append(stmts, g.assertions(acts)...)
		hasAssertions = true
	}

	res := &Result{
		TestName:       testName,
		SuiteName:      suiteName,
		ActionCount:    len(acts),
		StatementCount: len(stmts),
		HasAssertions:  hasAssertions,
		UsedSelectors:  st.sels,
		Statements:     stmts,
		comments:       g.opts.GenerateComments,
	}
	res.Code = g.render(res)

	g.logger.WithFields(logrus.Fields{
		"actions":    res.ActionCount,
		"statements": res.StatementCount,
	}).Debug("Generated test")
	return res, nil
}

func (g *Generator) render(r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "describe(%s, () => {\n", Quote(r.SuiteName))
	fmt.Fprintf(&b, "%sit(%s, () => {\n", indent, Quote(r.TestName))
	for _, s := range r.Statements {
		for _, line := range s.Lines(r.comments) {
			b.WriteString(indent + indent + line + "\n")
		}
	}
	b.WriteString(indent + "});\n")
	b.WriteString("});\n")
	return b.String()
}

// assertions builds the trailing checks: the URL of the latest
// non-session-start action that is not the site root, then no runtime errors.
func (g *Generator) assertions(acts []actions.Action) []Statement {
	var out []Statement
	for i := len(acts) - 1; i >= 0; i-- {
		a := acts[i]
		if a.Type == actions.TypeSessionStart {
			continue
		}
		path := urlPath(actionURL(a))
		if path == "" || path == "/" {
			continue
		}
		out = append(out, Statement{
			Expression: fmt.Sprintf("cy.url().should(\"include\", %s)", Quote(path)),
			Comment:    "Verify the final URL",
			Class:      ClassAssertion,
		})
		break
	}
	return append(out, Statement{
		Expression: "cy.assertNoRuntimeErrors()",
		Comment:    "Verify no runtime errors occurred",
		Class:      ClassAssertion,
	})
}

func actionURL(a actions.Action) string {
	if a.Type == actions.TypeNavigation {
		if u := a.String("url"); u != "" {
			return u
		}
	}
	return a.PageURL
}

// urlPath reduces an absolute URL to its path and query. Values that do not
// parse are used as given.
func urlPath(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme == "" && u.Host == "") {
		return raw
	}
	p := u.EscapedPath()
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

// resolveSelector prefers an explicit selector in the payload, then builds
// one from the element description, then falls back to the tag name.
func (g *Generator) resolveSelector(a actions.Action) string {
	if sel := strings.TrimSpace(a.String("selector")); sel != "" {
		return sel
	}

	desc := describe(a.Payload)
	c, err := g.selectors.Generate(desc)
	if err == nil {
		return c.Selector
	}
	g.logger.WithError(err).WithField("sequence", a.Sequence).Debug("Selector generation failed")
	if desc.Tag != "" {
		return strings.ToLower(desc.Tag)
	}
	return "body"
}

// describe builds a selector descriptor from the element fields a capture
// script attaches to a payload.
func describe(payload map[string]interface{}) selector.Descriptor {
	var d selector.Descriptor
	d.Tag = firstString(payload, "tagName", "tag")
	d.Classes = firstString(payload, "className", "classes")
	d.Attributes = stringMap(payload["attributes"])
	if d.Attributes == nil {
		d.Attributes = map[string]string{}
	}
	for _, key := range []string{"id", "name", "type", "placeholder"} {
		if v, ok := payload[key].(string); ok && v != "" {
			if _, exists := d.Attributes[key]; !exists {
				d.Attributes[key] = v
			}
		}
	}
	d.SiblingIndex = intValue(payload["siblingIndex"])
	if list, ok := payload["ancestors"].([]interface{}); ok {
		for _, item := range list {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			d.Ancestors = append(d.Ancestors, selector.Ancestor{
				Tag:          firstString(m, "tagName", "tag"),
				Attributes:   stringMap(m["attributes"]),
				SiblingIndex: intValue(m["siblingIndex"]),
			})
		}
	}
	return d
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func stringMap(v interface{}) map[string]string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}

func intValue(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
