package selector

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultGenerator() *Generator {
	return New(OptionsFrom(config.Defaults()))
}

func TestGeneratePriorityAttributes(t *testing.T) {
	tests := []struct {
		name       string
		desc       Descriptor
		selector   string
		confidence float64
		attribute  string
	}{
		{
			name: "test id wins over id and classes",
			desc: Descriptor{Tag: "button", Attributes: map[string]string{
				"data-testid": "submit-button",
				"id":          "btn-submit",
				"class":       "btn btn-primary",
			}},
			selector:   `[data-testid="submit-button"]`,
			confidence: 0.98,
			attribute:  "data-testid",
		},
		{
			name:       "name attribute",
			desc:       Descriptor{Tag: "input", Attributes: map[string]string{"name": "email", "type": "email"}},
			selector:   `[name="email"]`,
			confidence: 0.9,
			attribute:  "name",
		},
		{
			name:       "id",
			desc:       Descriptor{Tag: "DIV", Attributes: map[string]string{"id": "main"}},
			selector:   "#main",
			confidence: 0.95,
			attribute:  "id",
		},
		{
			name:       "id needing escapes",
			desc:       Descriptor{Tag: "div", Attributes: map[string]string{"id": "1st:item"}},
			selector:   `#\31 st\:item`,
			confidence: 0.95,
			attribute:  "id",
		},
		{
			name:       "empty attribute skipped",
			desc:       Descriptor{Tag: "a", Attributes: map[string]string{"data-testid": " ", "data-cy": "nav"}},
			selector:   `[data-cy="nav"]`,
			confidence: 0.9,
			attribute:  "data-cy",
		},
		{
			name:       "quotes escaped",
			desc:       Descriptor{Tag: "a", Attributes: map[string]string{"role": `say "hi"`}},
			selector:   `[role="say \"hi\""]`,
			confidence: 0.9,
			attribute:  "role",
		},
	}

	g := defaultGenerator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := g.Generate(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.selector, c.Selector)
			assert.Equal(t, tt.confidence, c.Confidence)
			assert.Equal(t, StrategyPriorityAttribute, c.Strategy)
			assert.Equal(t, tt.attribute, c.Attribute)
			assert.True(t, c.Stable)
		})
	}
}

func TestGenerateTagAttributes(t *testing.T) {
	g := defaultGenerator()

	c, err := g.Generate(Descriptor{Tag: "input", Attributes: map[string]string{
		"type":        "submit",
		"value":       "Send",
		"aria-label":  "send form",
		"placeholder": "",
	}})
	require.NoError(t, err)
	assert.Equal(t, `input[type="submit"][value="Send"][aria-label="send form"]`, c.Selector)
	assert.Equal(t, StrategyTagAttributes, c.Strategy)
	assert.Equal(t, 0.8, c.Confidence)
	assert.True(t, c.Stable)

	// user-entered values never leak into selectors
	c, err = g.Generate(Descriptor{Tag: "input", Attributes: map[string]string{
		"type":  "text",
		"value": "secret",
	}})
	require.NoError(t, err)
	assert.Equal(t, `input[type="text"]`, c.Selector)

	noAria := New(Options{IncludeAria: false})
	c, err = noAria.Generate(Descriptor{Tag: "textarea", Attributes: map[string]string{
		"placeholder": "Comment",
		"aria-label":  "comment",
	}})
	require.NoError(t, err)
	assert.Equal(t, `textarea[placeholder="Comment"]`, c.Selector)
}

func TestGenerateClasses(t *testing.T) {
	g := defaultGenerator()

	c, err := g.Generate(Descriptor{Tag: "span", Classes: "css-1x2y3z _private badge sc-bdVaJa label 1234567 hashed big extra"})
	require.NoError(t, err)
	assert.Equal(t, "span.badge.label.big", c.Selector)
	assert.Equal(t, StrategyClass, c.Strategy)
	assert.Equal(t, 0.7, c.Confidence)
	assert.False(t, c.Stable)

	// class attribute is used when Classes is empty
	c, err = g.Generate(Descriptor{Tag: "li", Attributes: map[string]string{"class": "menu-item"}})
	require.NoError(t, err)
	assert.Equal(t, "li.menu-item", c.Selector)

	stable := New(Options{UseStable: true})
	c, err = stable.Generate(Descriptor{Tag: "li", Classes: "menu-item"})
	require.NoError(t, err)
	assert.NotEqual(t, StrategyClass, c.Strategy)
}

func TestReliableClasses(t *testing.T) {
	tests := []struct {
		class    string
		reliable bool
	}{
		{"btn", true},
		{"btn-primary", true},
		{"_hidden", false},
		{"item-1234567", false},
		{"css-1a2b3c", false},
		{"jss42", false},
		{"sc-AxjAm", false},
		{"emotion-0", false},
		{"makeStyles-root-1", false},
		{"jsx-123", false},
		{"Button_primary__a1B2c", false},
		{"randomName", false},
		{"HashValue", false},
		{"tempo", false},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			assert.Equal(t, tt.reliable, isReliableClass(tt.class))
		})
	}
}

func TestGenerateHierarchy(t *testing.T) {
	g := defaultGenerator()

	desc := Descriptor{
		Tag:          "span",
		SiblingIndex: 2,
		Ancestors: []Ancestor{
			{Tag: "li", SiblingIndex: 3},
			{Tag: "ul"},
			{Tag: "nav", Attributes: map[string]string{"data-testid": "main-nav"}},
			{Tag: "body"},
		},
	}
	c, err := g.Generate(desc)
	require.NoError(t, err)
	assert.Equal(t, `[data-testid="main-nav"] > ul > li:nth-child(3) > span:nth-child(2)`, c.Selector)
	assert.Equal(t, StrategyHierarchy, c.Strategy)
	assert.Equal(t, 0.6, c.Confidence)
	assert.False(t, c.Stable)

	descendant := New(Options{Combinator: config.CombinatorDescendant, MaxHierarchyDepth: 2})
	c, err = descendant.Generate(desc)
	require.NoError(t, err)
	assert.Equal(t, "li:nth-child(3) span:nth-child(2)", c.Selector)

	c, err = g.Generate(Descriptor{Tag: "p", Ancestors: []Ancestor{{Tag: "section", Attributes: map[string]string{"id": "intro"}}}})
	require.NoError(t, err)
	assert.Equal(t, "#intro > p", c.Selector)
}

func TestGenerateBareTag(t *testing.T) {
	c, err := defaultGenerator().Generate(Descriptor{Tag: "section"})
	require.NoError(t, err)
	assert.Equal(t, "section", c.Selector)
	assert.Equal(t, StrategyTag, c.Strategy)
	assert.Equal(t, 0.3, c.Confidence)
	assert.False(t, c.Stable)
}

func TestGenerateMissingTag(t *testing.T) {
	_, err := defaultGenerator().Generate(Descriptor{Attributes: map[string]string{"id": "x"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = defaultGenerator().Candidates(Descriptor{Tag: "  "})
	assert.Error(t, err)
}

func TestCandidates(t *testing.T) {
	desc := Descriptor{
		Tag: "button",
		Attributes: map[string]string{
			"data-testid": "save",
			"id":          "save-btn",
			"name":        "save",
			"type":        "button",
		},
		Classes:   "btn",
		Ancestors: []Ancestor{{Tag: "form"}},
	}

	cands, err := defaultGenerator().Candidates(desc)
	require.NoError(t, err)

	var selectors []string
	for _, c := range cands {
		selectors = append(selectors, c.Selector)
	}
	assert.Equal(t, []string{
		`[data-testid="save"]`,
		"#save-btn",
		`[name="save"]`,
		`button[type="button"]`,
		"button.btn",
		"form > button",
	}, selectors)

	for i := 1; i < len(cands); i++ {
		assert.GreaterOrEqual(t, cands[i-1].Confidence, cands[i].Confidence)
	}
}

func TestGenerateIdempotent(t *testing.T) {
	g := defaultGenerator()
	desc := Descriptor{Tag: "input", Attributes: map[string]string{"type": "search", "aria-label": "q", "aria-describedby": "hint"}}

	first, err := g.Generate(desc)
	require.NoError(t, err)
	second, err := g.Generate(desc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDescriptorJSON(t *testing.T) {
	var d Descriptor
	require.NoError(t, json.Unmarshal([]byte(`{
		"tag": "a",
		"attributes": {"href": "/home"},
		"ancestors": [{"tag": "nav", "attributes": {"id": "top"}}]
	}`), &d))

	c, err := defaultGenerator().Generate(d)
	require.NoError(t, err)
	assert.Equal(t, "#top > a", c.Selector)
}

func TestTestIDProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	g := defaultGenerator()
	properties.Property("non-empty data-testid always wins", prop.ForAll(
		func(testID, id, class string) bool {
			if strings.TrimSpace(testID) == "" {
				return true
			}
			c, err := g.Generate(Descriptor{Tag: "div", Attributes: map[string]string{
				"data-testid": testID,
				"id":          id,
				"class":       class,
			}})
			if err != nil {
				return false
			}
			want := `[data-testid="` + EscapeAttributeValue(strings.TrimSpace(testID)) + `"]`
			return c.Selector == want && c.Confidence == 0.98 && c.Stable
		},
		gen.AnyString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestEscapeIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"a.b", `a\.b`},
		{"x:y", `x\:y`},
		{"1abc", `\31 abc`},
		{"-1a", `-\31 a`},
		{"-", `\-`},
		{"a b", `a\20 b`},
		{"w[0]", `w\[0\]`},
		{`q"t`, `q\"t`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, EscapeIdentifier(tt.input))
		})
	}
}

func TestEscapeAttributeValue(t *testing.T) {
	assert.Equal(t, `a\\b`, EscapeAttributeValue(`a\b`))
	assert.Equal(t, `say \"hi\"`, EscapeAttributeValue(`say "hi"`))
	assert.Equal(t, `line\a next`, EscapeAttributeValue("line\nnext"))
}
