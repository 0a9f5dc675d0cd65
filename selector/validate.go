package selector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Validation reports how a selector behaves against a document.
type Validation struct {
	Valid      bool `json:"isValid"`
	Unique     bool `json:"isUnique"`
	MatchCount int  `json:"matchCount"`
}

// Validate counts the elements of html matched by selector. Malformed
// selectors and unparsable documents report invalid with zero matches.
func Validate(selector, html string) Validation {
	if strings.TrimSpace(selector) == "" {
		return Validation{}
	}

	sel, err := cascadia.Compile(selector)
	if err != nil {
		return Validation{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Validation{}
	}

	count := doc.FindMatcher(sel).Length()
	return Validation{
		Valid:      count > 0,
		Unique:     count == 1,
		MatchCount: count,
	}
}

// Best returns the first candidate that uniquely matches html, or the first
// candidate when none does.
func Best(candidates []Candidate, html string) (Candidate, Validation) {
	var first Validation
	for i, c := range candidates {
		v := Validate(c.Selector, html)
		if i == 0 {
			first = v
		}
		if v.Unique {
			return c, v
		}
	}
	if len(candidates) == 0 {
		return Candidate{}, Validation{}
	}
	return candidates[0], first
}
