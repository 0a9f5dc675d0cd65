package codegen

import (
	"strings"
	"testing"

	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func act(seq int, typ actions.Type, url string, payload map[string]interface{}) actions.Action {
	return actions.Action{
		Type:      typ,
		Payload:   payload,
		PageURL:   url,
		SessionID: "s",
		Sequence:  seq,
		Timestamp: int64(1000 * seq),
	}
}

func loginFlow() []actions.Action {
	const base = "http://localhost:3000"
	return []actions.Action{
		act(1, actions.TypeSessionStart, base+"/login", map[string]interface{}{"sessionId": "s", "viewport": map[string]interface{}{}, "userAgent": "ua"}),
		act(2, actions.TypeClick, base+"/login", map[string]interface{}{"selector": "#email", "coordinates": map[string]interface{}{"x": 3.0, "y": 4.0}}),
		act(3, actions.TypeInput, base+"/login", map[string]interface{}{"selector": "#email", "value": "user@test.com", "inputType": "email"}),
		act(4, actions.TypeInput, base+"/login", map[string]interface{}{"selector": "#password", "value": "hunter2", "inputType": "password"}),
		act(5, actions.TypeKeyPress, base+"/login", map[string]interface{}{"key": "Enter", "modifiers": map[string]interface{}{}}),
		act(6, actions.TypeNavigation, base+"/login", map[string]interface{}{"type": "pushState", "url": base + "/dashboard"}),
		act(7, actions.TypeFocus, base+"/dashboard", map[string]interface{}{"selector": "#search"}),
	}
}

func TestGenerateTestLoginFlow(t *testing.T) {
	res, err := New(config.Defaults()).GenerateTest(loginFlow(), "login flow")
	require.NoError(t, err)

	expected := `describe("Recorded test", () => {
  it("login flow", () => {
    // Visit http://localhost:3000/login
    cy.visit("http://localhost:3000/login");
    // Click on #email
    cy.get("#email").click();
    // Fill 'user@test.com' in #email
    cy.get("#email").clear().type("user@test.com");
    // Fill 'hunter2' in #password
    cy.get("#password").clear().type("hunter2", { delay: 0 });
    // Press Enter
    cy.get("body").type("{enter}");
    // Navigate to http://localhost:3000/dashboard
    cy.visit("http://localhost:3000/dashboard");
    // Verify the final URL
    cy.url().should("include", "/dashboard");
    // Verify no runtime errors occurred
    cy.assertNoRuntimeErrors();
  });
});
`
	assert.Equal(t, expected, res.Code)
	assert.Equal(t, "login flow", res.TestName)
	assert.Equal(t, 7, res.ActionCount)
	assert.Equal(t, 8, res.StatementCount)
	assert.True(t, res.HasAssertions)
	assert.Equal(t, []string{"#email", "#password", "body"}, res.UsedSelectors)
	assert.Equal(t, ClassNavigation, res.Statements[0].Class)
	assert.Equal(t, ClassAssertion, res.Statements[7].Class)
}

func TestGenerateTestEmpty(t *testing.T) {
	_, err := New(config.Defaults()).GenerateTest(nil, "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestSnippetAndDefaults(t *testing.T) {
	opts := config.Defaults()
	opts.GenerateComments = false
	opts.AutoAssertions = false

	res, err := New(opts).GenerateTest([]actions.Action{
		act(1, actions.TypeSessionStart, "", map[string]interface{}{}),
		act(2, actions.TypeDoubleClick, "", map[string]interface{}{"selector": "li.item"}),
		act(3, actions.TypeRightClick, "", map[string]interface{}{"selector": "li.item"}),
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "recorded interactions", res.TestName)
	assert.False(t, res.HasAssertions)
	assert.Equal(t, "cy.visit(\"/\");\ncy.get(\"li.item\").dblclick();\ncy.get(\"li.item\").rightclick();", res.Snippet())
	assert.NotContains(t, res.Code, "//")
}

func TestAssertionsSkipRootURLs(t *testing.T) {
	opts := config.Defaults()
	opts.GenerateComments = false

	res, err := New(opts).GenerateTest([]actions.Action{
		act(1, actions.TypeSessionStart, "http://app/start", map[string]interface{}{}),
		act(2, actions.TypeClick, "http://app/", map[string]interface{}{"selector": "#a"}),
	}, "t")
	require.NoError(t, err)

	assert.NotContains(t, res.Code, "cy.url()")
	assert.Contains(t, res.Code, "cy.assertNoRuntimeErrors();")
	assert.True(t, res.HasAssertions)
}

func TestChangeHandling(t *testing.T) {
	opts := config.Defaults()
	opts.GenerateComments = false
	opts.AutoAssertions = false
	g := New(opts)

	res, err := g.GenerateTest([]actions.Action{
		act(1, actions.TypeChange, "", map[string]interface{}{"selector": "#country", "value": "NL", "tagName": "SELECT"}),
		act(2, actions.TypeChange, "", map[string]interface{}{"selector": "#terms", "value": "on", "tagName": "input", "inputType": "checkbox", "checked": true}),
		act(3, actions.TypeChange, "", map[string]interface{}{"selector": "#news", "value": "on", "tagName": "input", "type": "checkbox", "checked": false}),
		act(4, actions.TypeChange, "", map[string]interface{}{"selector": "#plan-pro", "value": "pro", "tagName": "input", "inputType": "radio"}),
		act(5, actions.TypeChange, "", map[string]interface{}{"selector": "#name", "value": "x", "tagName": "input", "inputType": "text"}),
	}, "t")
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		`cy.get("#country").select("NL");`,
		`cy.get("#terms").check();`,
		`cy.get("#news").uncheck();`,
		`cy.get("#plan-pro").check();`,
	}, "\n"), res.Snippet())
}

func TestKeyPress(t *testing.T) {
	opts := config.Defaults()
	opts.AutoAssertions = false

	res, err := New(opts).GenerateTest([]actions.Action{
		act(1, actions.TypeKeyPress, "", map[string]interface{}{"key": "a", "modifiers": map[string]interface{}{"shiftKey": true, "ctrlKey": true, "altKey": false}}),
		act(2, actions.TypeKeyPress, "", map[string]interface{}{"key": "k", "modifiers": []interface{}{"Meta"}, "selector": "#editor"}),
		act(3, actions.TypeKeyPress, "", map[string]interface{}{"key": "", "modifiers": []interface{}{}}),
		act(4, actions.TypeKeyPress, "", map[string]interface{}{"key": "{", "modifiers": nil}),
	}, "t")
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"// Press Control+Shift+a",
		`cy.get("body").type("{ctrl}{shift}a");`,
		"// Press Meta+k",
		`cy.get("#editor").type("{meta}k");`,
		"// Press {",
		`cy.get("body").type("{{}");`,
	}, "\n"), res.Snippet())

	opts.CaptureKeyboardShortcuts = false
	res, err = New(opts).GenerateTest([]actions.Action{
		act(1, actions.TypeKeyPress, "", map[string]interface{}{"key": "s", "modifiers": []interface{}{"ctrl"}}),
		act(2, actions.TypeKeyPress, "", map[string]interface{}{"key": "Escape", "modifiers": []interface{}{}}),
	}, "t")
	require.NoError(t, err)
	require.Len(t, res.Statements, 1)
	assert.Equal(t, `cy.get("body").type("{esc}")`, res.Statements[0].Expression)
}

func TestOptionalHandlers(t *testing.T) {
	hover := act(1, actions.TypeHover, "", map[string]interface{}{"selector": ".menu", "action": "enter"})
	scroll := act(2, actions.TypeScroll, "", map[string]interface{}{"scrollX": 0.0, "scrollY": 250.0})
	leave := act(3, actions.TypeHover, "", map[string]interface{}{"selector": ".menu", "action": "leave"})

	opts := config.Defaults()
	opts.AutoAssertions = false
	opts.GenerateComments = false

	res, err := New(opts).GenerateTest([]actions.Action{hover, scroll, leave}, "t")
	require.NoError(t, err)
	assert.Equal(t, "cy.get(\".menu\").trigger(\"mouseover\");\ncy.get(\".menu\").trigger(\"mouseout\");", res.Snippet())

	opts.IncludeHoverActions = false
	opts.RecordScrollPosition = true
	res, err = New(opts).GenerateTest([]actions.Action{hover, scroll}, "t")
	require.NoError(t, err)
	assert.Equal(t, "cy.scrollTo(0, 250);", res.Snippet())
}

func TestNavigationSubtypes(t *testing.T) {
	opts := config.Defaults()
	opts.AutoAssertions = false
	opts.GenerateComments = false

	res, err := New(opts).GenerateTest([]actions.Action{
		act(1, actions.TypeNavigation, "http://app/a", map[string]interface{}{"type": "load", "url": "http://app/a"}),
		act(2, actions.TypeNavigation, "http://app/b", map[string]interface{}{"type": "popstate", "url": ""}),
		act(3, actions.TypeNavigation, "", map[string]interface{}{"type": "replaceState", "url": ""}),
	}, "t")
	require.NoError(t, err)
	assert.Equal(t, "cy.visit(\"http://app/b\");\ncy.visit(\"/\");", res.Snippet())
}

func TestInputVariants(t *testing.T) {
	opts := config.Defaults()
	opts.AutoAssertions = false
	opts.GenerateComments = false
	opts.UseTypeForInputs = false

	res, err := New(opts).GenerateTest([]actions.Action{
		act(1, actions.TypeInput, "", map[string]interface{}{"selector": "#q", "value": "go {now}", "inputType": "search"}),
		act(2, actions.TypeInput, "", map[string]interface{}{"selector": "#q", "value": "", "inputType": "search"}),
	}, "t")
	require.NoError(t, err)
	assert.Equal(t, "cy.get(\"#q\").clear().type(\"go {{}now}\", { delay: 0 });\ncy.get(\"#q\").clear();", res.Snippet())
}

func TestSelectorResolution(t *testing.T) {
	opts := config.Defaults()
	opts.AutoAssertions = false
	opts.GenerateComments = false

	res, err := New(opts).GenerateTest([]actions.Action{
		act(1, actions.TypeClick, "", map[string]interface{}{
			"tagName":    "BUTTON",
			"attributes": map[string]interface{}{"data-testid": "save", "class": "btn"},
		}),
		act(2, actions.TypeClick, "", map[string]interface{}{"tagName": "a", "id": "home"}),
		act(3, actions.TypeSubmit, "", map[string]interface{}{"data": map[string]interface{}{}}),
	}, "t")
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		`cy.get("[data-testid=\"save\"]").click();`,
		`cy.get("#home").click();`,
		`cy.get("body").submit();`,
	}, "\n"), res.Snippet())
	assert.Equal(t, []string{`[data-testid="save"]`, "#home", "body"}, res.UsedSelectors)
}

func TestChainMethods(t *testing.T) {
	opts := config.Defaults()
	opts.AutoAssertions = false
	opts.ChainMethods = true

	res, err := New(opts).GenerateTest([]actions.Action{
		act(1, actions.TypeClick, "", map[string]interface{}{"selector": "#a"}),
		act(2, actions.TypeInput, "", map[string]interface{}{"selector": "#a", "value": "x", "inputType": "text"}),
		act(3, actions.TypeClick, "", map[string]interface{}{"selector": "#b"}),
	}, "t")
	require.NoError(t, err)

	require.Len(t, res.Statements, 2)
	assert.Equal(t, `cy.get("#a").click().clear().type("x", { delay: 0 })`, res.Statements[0].Expression)
	assert.Equal(t, "Click on #a, then fill 'x' in #a", res.Statements[0].Comment)
	assert.Equal(t, 2, res.StatementCount)
}

func TestDeviceAndColorScheme(t *testing.T) {
	opts := config.Defaults()
	opts.AutoAssertions = false
	opts.GenerateComments = false
	opts.DeviceEmulation = config.DeviceMobile
	opts.ColorScheme = config.ColorSchemeDark

	res, err := New(opts).GenerateTest([]actions.Action{
		act(1, actions.TypeSessionStart, "http://app/", map[string]interface{}{}),
	}, "t")
	require.NoError(t, err)

	require.Len(t, res.Statements, 2)
	assert.Equal(t, `cy.viewport("iphone-x")`, res.Statements[0].Expression)
	assert.True(t, strings.HasPrefix(res.Statements[1].Expression, `cy.visit("http://app/", { onBeforeLoad: (win) => {`))
	assert.Contains(t, res.Statements[1].Expression, `withArgs("(prefers-color-scheme: dark)")`)

	opts.DeviceEmulation = config.DeviceDesktop
	opts.ColorScheme = ""
	res, err = New(opts).GenerateTest([]actions.Action{
		act(1, actions.TypeSessionStart, "http://app/", map[string]interface{}{}),
	}, "t")
	require.NoError(t, err)
	assert.Equal(t, "cy.viewport(1280, 800);\ncy.visit(\"http://app/\");", res.Snippet())
}

func TestHandlersCoverVocabulary(t *testing.T) {
	for _, typ := range actions.Vocabulary {
		assert.Contains(t, handlers, typ, "no handler for %s", typ)
	}
	assert.Len(t, handlers, len(actions.Vocabulary))
}

func TestQuote(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{`a\b`, `"a\\b"`},
		{"line1\nline2\ttab", `"line1\nline2\ttab"`},
		{"nul\x00", `"nul\x00"`},
		{"sep\u2028", `"sep\u2028"`},
		{"héllo ✓", `"héllo ✓"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Quote(tt.input))
		})
	}
}

func TestCommentText(t *testing.T) {
	assert.Equal(t, "a b", commentText("a\nb"))
	long := commentText(strings.Repeat("x", 500))
	assert.Len(t, long, maxCommentLength)
	assert.True(t, strings.HasSuffix(long, "..."))
}
