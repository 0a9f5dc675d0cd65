// Package capture moves raw interaction events from a browser-side
// collector into the recorder. Sources push events into a bounded Feed; the
// recorder session drains it and validates each event against the action
// store.
package capture

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/errors"
)

// Event is one captured interaction as it arrives from the browser, before
// validation.
type Event struct {
	Type    actions.Type           `json:"type"`
	Data    map[string]interface{} `json:"data"`
	Context actions.Context        `json:"context"`
}

// Source produces events until it is exhausted or ctx is cancelled. Run
// returns nil on a clean end, including cancellation.
type Source interface {
	Run(ctx context.Context, out chan<- Event) error
}

// DecodeEvent parses one JSON event. A missing type is rejected here; the
// payload schema is checked later by the store.
func DecodeEvent(raw []byte) (Event, error) {
	raw = bytes.TrimSpace(raw)
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, errors.Wrap(err, errors.ErrCodeInvalidInput, "malformed event")
	}
	if ev.Type == "" {
		return Event{}, errors.InvalidInput("event has no type").WithDetail("field", "type")
	}
	return ev, nil
}

// send delivers ev unless ctx ends first.
func send(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
