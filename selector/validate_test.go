package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const page = `<!doctype html>
<html><body>
  <form id="login">
    <input name="email" type="email">
    <input name="password" type="password">
    <button class="btn" data-testid="submit-button">Sign in</button>
    <button class="btn">Cancel</button>
  </form>
</body></html>`

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		expected Validation
	}{
		{"unique test id", `[data-testid="submit-button"]`, Validation{Valid: true, Unique: true, MatchCount: 1}},
		{"shared class", "button.btn", Validation{Valid: true, Unique: false, MatchCount: 2}},
		{"hierarchy", "#login > input:nth-child(2)", Validation{Valid: true, Unique: true, MatchCount: 1}},
		{"no match", "#missing", Validation{}},
		{"malformed", "button[", Validation{}},
		{"empty", "   ", Validation{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Validate(tt.selector, page))
		})
	}
}

func TestValidateNeverPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		Validate(":::", "")
		Validate("div", "<<<not html")
		Validate(`[a="\"]`, page)
	})
}

func TestBest(t *testing.T) {
	cands := []Candidate{
		{Selector: "button.btn"},
		{Selector: `[data-testid="submit-button"]`},
	}
	c, v := Best(cands, page)
	assert.Equal(t, `[data-testid="submit-button"]`, c.Selector)
	assert.True(t, v.Unique)

	c, v = Best([]Candidate{{Selector: "button"}}, page)
	assert.Equal(t, "button", c.Selector)
	assert.Equal(t, 2, v.MatchCount)

	c, _ = Best(nil, page)
	assert.Empty(t, c.Selector)
}
