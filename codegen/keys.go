package codegen

import "strings"

// Modifier order used for both the readable combination and cy.type().
var modifierOrder = []string{"Control", "Shift", "Alt", "Meta"}

var modifierAliases = map[string]string{
	"control":  "Control",
	"ctrl":     "Control",
	"ctrlkey":  "Control",
	"shift":    "Shift",
	"shiftkey": "Shift",
	"alt":      "Alt",
	"altkey":   "Alt",
	"option":   "Alt",
	"meta":     "Meta",
	"metakey":  "Meta",
	"cmd":      "Meta",
	"command":  "Meta",
}

var cypressModifiers = map[string]string{
	"Control": "{ctrl}",
	"Shift":   "{shift}",
	"Alt":     "{alt}",
	"Meta":    "{meta}",
}

var cypressKeys = map[string]string{
	"Enter":      "{enter}",
	"Escape":     "{esc}",
	"Esc":        "{esc}",
	"Backspace":  "{backspace}",
	"Delete":     "{del}",
	"ArrowUp":    "{uparrow}",
	"ArrowDown":  "{downarrow}",
	"ArrowLeft":  "{leftarrow}",
	"ArrowRight": "{rightarrow}",
	"Home":       "{home}",
	"End":        "{end}",
	"PageUp":     "{pageup}",
	"PageDown":   "{pagedown}",
	"Insert":     "{insert}",
	"{":          "{{}",
}

// modifiers normalizes the two payload shapes capture scripts send: a map
// of flags ({"ctrl": true}) or a list of names (["Control"]). The result
// follows modifierOrder.
func modifiers(v interface{}) []string {
	present := map[string]bool{}
	switch m := v.(type) {
	case map[string]interface{}:
		for k, val := range m {
			if on, ok := val.(bool); ok && on {
				if name, ok := modifierAliases[strings.ToLower(k)]; ok {
					present[name] = true
				}
			}
		}
	case []interface{}:
		for _, item := range m {
			if s, ok := item.(string); ok {
				if name, ok := modifierAliases[strings.ToLower(s)]; ok {
					present[name] = true
				}
			}
		}
	case []string:
		for _, s := range m {
			if name, ok := modifierAliases[strings.ToLower(s)]; ok {
				present[name] = true
			}
		}
	}

	var out []string
	for _, name := range modifierOrder {
		if present[name] {
			out = append(out, name)
		}
	}
	return out
}

// combination renders "Control+Shift+a".
func combination(mods []string, key string) string {
	return strings.Join(append(append([]string(nil), mods...), key), "+")
}

// keySequence renders the cy.type() argument for a key with modifiers.
func keySequence(mods []string, key string) string {
	var b strings.Builder
	for _, m := range mods {
		b.WriteString(cypressModifiers[m])
	}
	switch {
	case cypressKeys[key] != "":
		b.WriteString(cypressKeys[key])
	case len([]rune(key)) == 1:
		b.WriteString(key)
	default:
		b.WriteString("{" + strings.ToLower(key) + "}")
	}
	return b.String()
}
