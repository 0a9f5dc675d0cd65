package actions

import "time"

// Type tags a recorded action. The vocabulary is fixed.
type Type string

const (
	TypeClick              Type = "click"
	TypeDoubleClick        Type = "double-click"
	TypeRightClick         Type = "right-click"
	TypeInput              Type = "input"
	TypeChange             Type = "change"
	TypeFocus              Type = "focus"
	TypeBlur               Type = "blur"
	TypeSubmit             Type = "submit"
	TypeKeyPress           Type = "key-press"
	TypeScroll             Type = "scroll"
	TypeHover              Type = "hover"
	TypeNavigation         Type = "navigation"
	TypeSessionStart       Type = "session-start"
	TypeSessionEnd         Type = "session-end"
	TypeHeartbeat          Type = "heartbeat"
	TypeDOMAdded           Type = "dom-added"
	TypeVisibilityChange   Type = "visibility-change"
	TypeBeforeUnload       Type = "before-unload"
	TypeCommunicationError Type = "communication-error"
)

// Vocabulary lists every action type in declaration order.
var Vocabulary = []Type{
	TypeClick, TypeDoubleClick, TypeRightClick, TypeInput, TypeChange,
	TypeFocus, TypeBlur, TypeSubmit, TypeKeyPress, TypeScroll, TypeHover,
	TypeNavigation, TypeSessionStart, TypeSessionEnd, TypeHeartbeat,
	TypeDOMAdded, TypeVisibilityChange, TypeBeforeUnload, TypeCommunicationError,
}

// requiredFields is the minimum payload schema per type.
var requiredFields = map[Type][]string{
	TypeClick:              {"selector", "coordinates"},
	TypeDoubleClick:        {"selector"},
	TypeRightClick:         {"selector"},
	TypeInput:              {"selector", "value", "inputType"},
	TypeChange:             {"selector", "value"},
	TypeFocus:              {"selector"},
	TypeBlur:               {"selector"},
	TypeSubmit:             {"selector", "data"},
	TypeKeyPress:           {"key", "modifiers"},
	TypeScroll:             {"scrollX", "scrollY"},
	TypeHover:              {"selector", "action"},
	TypeNavigation:         {"type", "url"},
	TypeSessionStart:       {"sessionId", "viewport", "userAgent"},
	TypeSessionEnd:         {"sessionId", "totalActions"},
	TypeHeartbeat:          {},
	TypeDOMAdded:           {"target", "elements"},
	TypeVisibilityChange:   {"selector", "visible"},
	TypeBeforeUnload:       {"url"},
	TypeCommunicationError: {"error"},
}

// IsKnown reports whether t belongs to the vocabulary.
func IsKnown(t Type) bool {
	_, ok := requiredFields[t]
	return ok
}

// RequiredFields returns the payload keys a type must carry.
func RequiredFields(t Type) []string {
	return append([]string(nil), requiredFields[t]...)
}

// Viewport is the browser viewport size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Context accompanies each action coming out of the browser.
type Context struct {
	// Timestamp is in Unix milliseconds. Zero means "now".
	Timestamp int64                  `json:"timestamp,omitempty"`
	URL       string                 `json:"url,omitempty"`
	Viewport  *Viewport              `json:"viewport,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Action is one validated, sanitized recorded action. Actions are
// immutable once stored; callers must not modify Payload.
type Action struct {
	Type      Type                   `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp int64                  `json:"timestamp"`
	PageURL   string                 `json:"pageUrl,omitempty"`
	SessionID string                 `json:"sessionId"`
	Sequence  int                    `json:"sequence"`
	Viewport  *Viewport              `json:"viewport,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Time returns the action timestamp as a time.Time.
func (a Action) Time() time.Time {
	return time.UnixMilli(a.Timestamp)
}

// String returns the payload value for key when it is a string.
func (a Action) String(key string) string {
	s, _ := a.Payload[key].(string)
	return s
}

// SessionMetadata aggregates per-session facts.
type SessionMetadata struct {
	SessionID      string    `json:"sessionId"`
	StartTime      int64     `json:"startTime"`
	LastActionTime int64     `json:"lastActionTime"`
	UserAgent      string    `json:"userAgent,omitempty"`
	Viewport       *Viewport `json:"viewport,omitempty"`
	URL            string    `json:"url,omitempty"`
}

// Snapshot is the serializable export of one session.
type Snapshot struct {
	Metadata   SessionMetadata `json:"metadata"`
	Actions    []Action        `json:"actions"`
	Count      int             `json:"actionCount"`
	ExportedAt time.Time       `json:"exportedAt"`
}
