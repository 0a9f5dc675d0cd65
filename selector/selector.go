// Package selector derives CSS selectors for recorded DOM elements.
//
// Generation tries four heuristics in order: a priority attribute (test ids,
// id, name), tag plus distinguishing attributes, reliable class names, and
// finally the element's position below its nearest identifiable ancestors.
package selector

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/logging"
	"github.com/sirupsen/logrus"
)

// Strategy names the heuristic that produced a candidate.
type Strategy string

const (
	StrategyPriorityAttribute Strategy = "priority-attribute"
	StrategyTagAttributes     Strategy = "tag-attributes"
	StrategyClass             Strategy = "class"
	StrategyHierarchy         Strategy = "hierarchy"
	StrategyTag               Strategy = "tag"
)

// Confidence scores per strategy.
const (
	ConfidenceTestID         = 0.98
	ConfidenceID             = 0.95
	ConfidencePriority       = 0.90
	ConfidenceTagAttributes  = 0.8
	ConfidenceClass          = 0.7
	ConfidenceHierarchy      = 0.6
	ConfidenceTag            = 0.3
	maxClasses               = 3
	defaultMaxHierarchyDepth = 5
)

// Ancestor describes one element above the target, nearest parent first.
type Ancestor struct {
	Tag          string            `json:"tag"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	SiblingIndex int               `json:"siblingIndex,omitempty"`
}

// Descriptor is the partial description of an element captured at record time.
type Descriptor struct {
	Tag        string            `json:"tag"`
	Attributes map[string]string `json:"attributes,omitempty"`
	// Classes is the element's class string. When empty the "class"
	// attribute is used.
	Classes string `json:"classes,omitempty"`
	// SiblingIndex is the 1-based nth-child position, 0 when unknown.
	SiblingIndex int `json:"siblingIndex,omitempty"`
	// Ancestors are ordered nearest parent first.
	Ancestors []Ancestor `json:"ancestors,omitempty"`
}

// Candidate is one generated selector.
type Candidate struct {
	Selector   string   `json:"selector"`
	Strategy   Strategy `json:"strategy"`
	Attribute  string   `json:"attribute,omitempty"`
	Confidence float64  `json:"confidence"`
	Stable     bool     `json:"stable"`
}

// Options tune generation.
type Options struct {
	Priority          []string
	IncludeAria       bool
	UseStable         bool
	MaxHierarchyDepth int
	Combinator        string
}

// OptionsFrom extracts the selector options from the recorder options.
func OptionsFrom(o config.Options) Options {
	return Options{
		Priority:          o.SelectorPriority,
		IncludeAria:       o.IncludeAriaAttributes,
		UseStable:         o.UseStableSelectors,
		MaxHierarchyDepth: o.MaxHierarchyDepth,
		Combinator:        o.HierarchyCombinator,
	}
}

// Generator builds selectors. It holds no mutable state and is safe for
// concurrent use.
type Generator struct {
	opts Options
	log  *logrus.Entry
}

// New creates a Generator, filling unset options with defaults.
func New(opts Options) *Generator {
	if len(opts.Priority) == 0 {
		opts.Priority = config.DefaultSelectorPriority
	}
	if opts.MaxHierarchyDepth <= 0 {
		opts.MaxHierarchyDepth = defaultMaxHierarchyDepth
	}
	if opts.Combinator == "" {
		opts.Combinator = config.CombinatorChild
	}
	return &Generator{opts: opts, log: logging.NewLogger("selector")}
}

var unreliableClassPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^_`),
	regexp.MustCompile(`\d{6,}`),
	regexp.MustCompile(`^css-`),
	regexp.MustCompile(`^jss\d+`),
	// css-in-js generators
	regexp.MustCompile(`^sc-[a-zA-Z]`),
	regexp.MustCompile(`^(emotion|styled)-`),
	regexp.MustCompile(`^makeStyles-`),
	regexp.MustCompile(`^jsx-\d+`),
	// css modules
	regexp.MustCompile(`^[A-Za-z]+_[A-Za-z]+__[A-Za-z0-9]{5}$`),
	regexp.MustCompile(`(?i)random|hash|temp`),
}

// Generate returns the best selector for d.
func (g *Generator) Generate(d Descriptor) (Candidate, error) {
	d, err := normalize(d)
	if err != nil {
		return Candidate{}, err
	}

	if c, ok := g.priorityCandidates(d, true); ok {
		return c[0], nil
	}
	if c, ok := g.tagAttributes(d); ok {
		return c, nil
	}
	if !g.opts.UseStable {
		if c, ok := g.classBased(d); ok {
			return c, nil
		}
	}
	c := g.hierarchical(d)
	g.log.WithFields(logrus.Fields{"tag": d.Tag, "selector": c.Selector}).Debug("Fell back to structural selector")
	return c, nil
}

// Candidates runs every strategy and returns all results, best first.
// Equal confidences keep strategy order.
func (g *Generator) Candidates(d Descriptor) ([]Candidate, error) {
	d, err := normalize(d)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	if c, ok := g.priorityCandidates(d, false); ok {
		out = append(out, c...)
	}
	if c, ok := g.tagAttributes(d); ok {
		out = append(out, c)
	}
	if c, ok := g.classBased(d); ok {
		out = append(out, c)
	}
	out = append(out, g.hierarchical(d))

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out, nil
}

func normalize(d Descriptor) (Descriptor, error) {
	d.Tag = strings.ToLower(strings.TrimSpace(d.Tag))
	if d.Tag == "" {
		return d, errors.InvalidInput("element descriptor requires a tag name").WithDetail("field", "tag")
	}
	if d.Classes == "" {
		d.Classes = d.Attributes["class"]
	}
	return d, nil
}

func (g *Generator) priorityCandidates(d Descriptor, firstOnly bool) ([]Candidate, bool) {
	var out []Candidate
	for _, attr := range g.opts.Priority {
		value := strings.TrimSpace(d.Attributes[attr])
		if value == "" {
			continue
		}

		c := Candidate{
			Strategy:   StrategyPriorityAttribute,
			Attribute:  attr,
			Confidence: ConfidencePriority,
			Stable:     true,
		}
		switch attr {
		case "id":
			c.Selector = "#" + EscapeIdentifier(value)
			c.Confidence = ConfidenceID
		case "data-testid":
			c.Selector = attributeSelector(attr, value)
			c.Confidence = ConfidenceTestID
		default:
			c.Selector = attributeSelector(attr, value)
		}

		out = append(out, c)
		if firstOnly {
			break
		}
	}
	return out, len(out) > 0
}

func (g *Generator) tagAttributes(d Descriptor) (Candidate, bool) {
	var parts []string
	inputType := strings.ToLower(d.Attributes["type"])

	if (d.Tag == "input" || d.Tag == "button") && inputType != "" {
		parts = append(parts, attributeSelector("type", inputType))
	}
	if v := d.Attributes["placeholder"]; v != "" {
		parts = append(parts, attributeSelector("placeholder", v))
	}
	if v := d.Attributes["value"]; v != "" && (d.Tag == "input" || d.Tag == "button") {
		switch inputType {
		case "submit", "button", "reset":
			parts = append(parts, attributeSelector("value", v))
		}
	}
	if g.opts.IncludeAria {
		var aria []string
		for name := range d.Attributes {
			if strings.HasPrefix(name, "aria-") && d.Attributes[name] != "" {
				aria = append(aria, name)
			}
		}
		sort.Strings(aria)
		for _, name := range aria {
			parts = append(parts, attributeSelector(name, d.Attributes[name]))
		}
	}

	if len(parts) == 0 {
		return Candidate{}, false
	}
	return Candidate{
		Selector:   d.Tag + strings.Join(parts, ""),
		Strategy:   StrategyTagAttributes,
		Confidence: ConfidenceTagAttributes,
		Stable:     true,
	}, true
}

// ReliableClasses filters a class string down to names that look hand-written.
func ReliableClasses(classes string) []string {
	var out []string
	for _, cls := range strings.Fields(classes) {
		if isReliableClass(cls) {
			out = append(out, cls)
		}
	}
	return out
}

func isReliableClass(cls string) bool {
	for _, p := range unreliableClassPatterns {
		if p.MatchString(cls) {
			return false
		}
	}
	return true
}

func (g *Generator) classBased(d Descriptor) (Candidate, bool) {
	classes := ReliableClasses(d.Classes)
	if len(classes) == 0 {
		return Candidate{}, false
	}
	if len(classes) > maxClasses {
		classes = classes[:maxClasses]
	}

	var b strings.Builder
	b.WriteString(d.Tag)
	for _, cls := range classes {
		b.WriteByte('.')
		b.WriteString(EscapeIdentifier(cls))
	}
	return Candidate{
		Selector:   b.String(),
		Strategy:   StrategyClass,
		Confidence: ConfidenceClass,
		Stable:     false,
	}, true
}

func (g *Generator) hierarchical(d Descriptor) Candidate {
	if len(d.Ancestors) == 0 {
		return Candidate{
			Selector:   d.Tag,
			Strategy:   StrategyTag,
			Confidence: ConfidenceTag,
			Stable:     false,
		}
	}

	segments := []string{positional(d.Tag, d.SiblingIndex)}
	for _, a := range d.Ancestors {
		if len(segments) >= g.opts.MaxHierarchyDepth {
			break
		}
		segment, anchored := ancestorSegment(a)
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
		if anchored {
			break
		}
	}

	// segments run element-first; selectors read root-first
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	joiner := " > "
	if g.opts.Combinator == config.CombinatorDescendant {
		joiner = " "
	}
	return Candidate{
		Selector:   strings.Join(segments, joiner),
		Strategy:   StrategyHierarchy,
		Confidence: ConfidenceHierarchy,
		Stable:     false,
	}
}

// ancestorSegment renders one ancestor level. anchored is true when the
// level is identified by id or test id, which ends the walk.
func ancestorSegment(a Ancestor) (string, bool) {
	if id := strings.TrimSpace(a.Attributes["id"]); id != "" {
		return "#" + EscapeIdentifier(id), true
	}
	if tid := strings.TrimSpace(a.Attributes["data-testid"]); tid != "" {
		return attributeSelector("data-testid", tid), true
	}
	tag := strings.ToLower(strings.TrimSpace(a.Tag))
	if tag == "" {
		return "", false
	}
	return positional(tag, a.SiblingIndex), false
}

func positional(tag string, index int) string {
	if index > 0 {
		return fmt.Sprintf("%s:nth-child(%d)", tag, index)
	}
	return tag
}
