package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/config"
)

// handler translates one action into zero or more statements. Only
// session-start may emit more than one (viewport plus visit).
type handler func(g *Generator, a actions.Action, st *genState) []Statement

// handlers covers the whole vocabulary; TestHandlersCoverVocabulary keeps it
// that way.
var handlers = map[actions.Type]handler{
	actions.TypeSessionStart:       handleSessionStart,
	actions.TypeClick:              clickFamily("click", "Click on"),
	actions.TypeDoubleClick:        clickFamily("dblclick", "Double-click on"),
	actions.TypeRightClick:         clickFamily("rightclick", "Right-click on"),
	actions.TypeInput:              handleInput,
	actions.TypeChange:             handleChange,
	actions.TypeSubmit:             handleSubmit,
	actions.TypeKeyPress:           handleKeyPress,
	actions.TypeScroll:             handleScroll,
	actions.TypeHover:              handleHover,
	actions.TypeNavigation:         handleNavigation,
	actions.TypeFocus:              ignore,
	actions.TypeBlur:               ignore,
	actions.TypeSessionEnd:         ignore,
	actions.TypeHeartbeat:          ignore,
	actions.TypeDOMAdded:           ignore,
	actions.TypeVisibilityChange:   ignore,
	actions.TypeBeforeUnload:       ignore,
	actions.TypeCommunicationError: ignore,
}

func ignore(*Generator, actions.Action, *genState) []Statement { return nil }

func one(s Statement) []Statement { return []Statement{s} }

func handleSessionStart(g *Generator, a actions.Action, _ *genState) []Statement {
	target := a.PageURL
	if target == "" {
		target = a.String("url")
	}
	if target == "" {
		target = "/"
	}

	var out []Statement
	switch g.opts.DeviceEmulation {
	case config.DeviceMobile:
		out = append(out, Statement{
			Expression: `cy.viewport("iphone-x")`,
			Comment:    "Emulate a mobile viewport",
			Class:      ClassNavigation,
		})
	case config.DeviceDesktop:
		out = append(out, Statement{
			Expression: "cy.viewport(1280, 800)",
			Comment:    "Emulate a desktop viewport",
			Class:      ClassNavigation,
		})
	}

	visit := "cy.visit(" + Quote(target)
	if scheme := g.opts.ColorScheme; scheme != "" {
		query := Quote("(prefers-color-scheme: " + scheme + ")")
		visit += fmt.Sprintf(", { onBeforeLoad: (win) => { cy.stub(win, \"matchMedia\").callThrough().withArgs(%s).returns({ matches: true, media: %s, addListener() {}, removeListener() {}, addEventListener() {}, removeEventListener() {} }); } }", query, query)
	}
	visit += ")"

	return append(out, Statement{
		Expression: visit,
		Comment:    "Visit " + target,
		Class:      ClassNavigation,
	})
}

func clickFamily(method, verb string) handler {
	return func(g *Generator, a actions.Action, st *genState) []Statement {
		sel := g.resolveSelector(a)
		st.use(sel)
		return one(interaction(sel, "."+method+"()", verb+" "+sel))
	}
}

func handleInput(g *Generator, a actions.Action, st *genState) []Statement {
	sel := g.resolveSelector(a)
	st.use(sel)

	value := stringValue(a.Payload["value"])
	if value == "" {
		return one(interaction(sel, ".clear()", "Clear "+sel))
	}

	inputType := strings.ToLower(a.String("inputType"))
	chain := ".clear().type(" + Quote(typeText(value))
	if !(g.opts.UseTypeForInputs && g.typeSim[inputType]) {
		chain += ", { delay: 0 }"
	}
	chain += ")"
	return one(interaction(sel, chain, fmt.Sprintf("Fill '%s' in %s", value, sel)))
}

// handleChange emits select() for select elements and check()/uncheck()
// for checkbox and radio inputs. Other change events are dropped.
func handleChange(g *Generator, a actions.Action, st *genState) []Statement {
	tag := strings.ToLower(firstString(a.Payload, "tagName", "tag"))
	inputType := strings.ToLower(firstString(a.Payload, "inputType", "type"))

	sel := g.resolveSelector(a)
	switch {
	case tag == "select":
		value := stringValue(a.Payload["value"])
		st.use(sel)
		return one(interaction(sel, ".select("+Quote(value)+")", fmt.Sprintf("Select '%s' in %s", value, sel)))
	case inputType == "checkbox":
		st.use(sel)
		if checked, ok := a.Payload["checked"].(bool); ok && !checked {
			return one(interaction(sel, ".uncheck()", "Uncheck "+sel))
		}
		return one(interaction(sel, ".check()", "Check "+sel))
	case inputType == "radio":
		st.use(sel)
		return one(interaction(sel, ".check()", "Choose "+sel))
	}
	return nil
}

func handleSubmit(g *Generator, a actions.Action, st *genState) []Statement {
	sel := g.resolveSelector(a)
	st.use(sel)
	return one(interaction(sel, ".submit()", "Submit "+sel))
}

func handleKeyPress(g *Generator, a actions.Action, st *genState) []Statement {
	key := a.String("key")
	if key == "" {
		return nil
	}
	mods := modifiers(a.Payload["modifiers"])
	if len(mods) > 0 && !g.opts.CaptureKeyboardShortcuts {
		return nil
	}

	sel := strings.TrimSpace(a.String("selector"))
	if sel == "" {
		sel = "body"
	}
	st.use(sel)

	return one(interaction(sel, ".type("+Quote(keySequence(mods, key))+")", "Press "+combination(mods, key)))
}

func handleScroll(g *Generator, a actions.Action, _ *genState) []Statement {
	if !g.opts.RecordScrollPosition {
		return nil
	}
	x, y := number(a.Payload["scrollX"]), number(a.Payload["scrollY"])
	return one(Statement{
		Expression: fmt.Sprintf("cy.scrollTo(%s, %s)", x, y),
		Comment:    fmt.Sprintf("Scroll to %s, %s", x, y),
		Class:      ClassInteraction,
	})
}

func handleHover(g *Generator, a actions.Action, st *genState) []Statement {
	if !g.opts.IncludeHoverActions {
		return nil
	}
	sel := g.resolveSelector(a)
	st.use(sel)

	event, verb := "mouseover", "Hover over"
	switch strings.ToLower(a.String("action")) {
	case "leave", "out", "mouseleave", "mouseout":
		event, verb = "mouseout", "Move away from"
	}
	return one(interaction(sel, ".trigger("+Quote(event)+")", verb+" "+sel))
}

func handleNavigation(_ *Generator, a actions.Action, _ *genState) []Statement {
	switch strings.ToLower(a.String("type")) {
	case "pushstate", "replacestate", "popstate":
	default:
		return nil
	}

	target := a.String("url")
	if target == "" {
		target = a.PageURL
	}
	if target == "" {
		target = "/"
	}
	return one(Statement{
		Expression: "cy.visit(" + Quote(target) + ")",
		Comment:    "Navigate to " + target,
		Class:      ClassNavigation,
	})
}

// typeText escapes the characters cy.type() treats as special sequences.
func typeText(s string) string {
	return strings.ReplaceAll(s, "{", "{{}")
}

func stringValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func number(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		if _, err := strconv.ParseFloat(x, 64); err == nil {
			return x
		}
	}
	return "0"
}
