// Package recovery salvages recorded work when a session or an injection
// fails. It turns whatever actions were captured into code and hands that
// code to the user through the clipboard or a fallback file.
package recovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/codegen"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/inject"
	"github.com/grovetools/recorder/logging"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
)

// FallbackSuffix replaces the target's extension for the fallback file.
const FallbackSuffix = ".recorded.js"

// Clipboard receives recovered code.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

// WriteAll implements Clipboard.
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility available")
	}
	return clipboard.WriteAll(text)
}

// ActionSource is the view of the action store recovery reads from.
type ActionSource interface {
	StructuredActions(sessionID string) []actions.Action
	RawActions(sessionID string) []map[string]interface{}
}

// Outcome reports what was salvaged. Cause is the failure that triggered
// recovery; it is never cleared.
type Outcome struct {
	SessionID     string `json:"sessionId,omitempty"`
	Code          string `json:"code,omitempty"`
	ActionCount   int    `json:"actionCount"`
	Cause         error  `json:"-"`
	ErrorCode     string `json:"errorCode,omitempty"`
	BackupPath    string `json:"backupPath,omitempty"`
	Restored      bool   `json:"restored"`
	ClipboardUsed bool   `json:"clipboardUsed"`
	FallbackPath  string `json:"fallbackPath,omitempty"`
}

// Error returns the cause message.
func (o *Outcome) Error() string {
	if o.Cause == nil {
		return ""
	}
	return o.Cause.Error()
}

// Handler performs recovery.
type Handler struct {
	source    ActionSource
	gen       *codegen.Generator
	clipboard Clipboard
	logger    *logrus.Entry
}

// NewHandler creates a Handler. clip may be nil to always use the fallback
// file.
func NewHandler(source ActionSource, gen *codegen.Generator, clip Clipboard) *Handler {
	return &Handler{
		source:    source,
		gen:       gen,
		clipboard: clip,
		logger:    logging.NewLogger("recovery"),
	}
}

// Recover builds best-effort code from what sessionID captured before cause.
// It never fails: an empty Code means nothing usable was recorded.
func (h *Handler) Recover(sessionID string, cause error) *Outcome {
	out := &Outcome{SessionID: sessionID, Cause: cause, ErrorCode: string(errors.GetCode(cause))}

	acts := h.source.StructuredActions(sessionID)
	res, err := h.generate(acts)
	if err != nil {
		acts = h.revalidate(sessionID)
		res, err = h.generate(acts)
	}
	if err != nil {
		h.logger.WithError(cause).WithField("session", sessionID).Warn("Session failed before any usable action was recorded")
		return out
	}

	out.ActionCount = len(acts)
	out.Code = header(sessionID, cause) + res.Code
	h.logger.WithFields(logrus.Fields{
		"session":    sessionID,
		"actions":    out.ActionCount,
		"statements": res.StatementCount,
	}).Info("Recovered partial code")
	return out
}

func (h *Handler) generate(acts []actions.Action) (*codegen.Result, error) {
	if len(acts) == 0 {
		return nil, errors.InvalidInput("no actions")
	}
	return h.gen.GenerateTest(acts, "")
}

// revalidate replays the raw records through a scratch store, dropping any
// that no longer pass validation.
func (h *Handler) revalidate(sessionID string) []actions.Action {
	scratch := actions.NewStore(0)
	for i, raw := range h.source.RawActions(sessionID) {
		typ, _ := raw["type"].(string)
		data, _ := raw["data"].(map[string]interface{})
		var ctx actions.Context
		if err := decodeContext(raw["context"], &ctx); err != nil {
			h.logger.WithError(err).WithField("index", i).Debug("Ignoring malformed action context")
		}
		if _, err := scratch.Record(sessionID, actions.Type(typ), data, ctx); err != nil {
			h.logger.WithError(err).WithField("index", i).Debug("Dropping raw action")
		}
	}
	return scratch.StructuredActions(sessionID)
}

// decodeContext maps a wire context ({timestamp, url, viewport, metadata})
// onto actions.Context. Numbers may arrive as float64 after a JSON trip.
func decodeContext(in interface{}, out *actions.Context) error {
	if in == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

func header(sessionID string, cause error) string {
	reason := "unknown error"
	if cause != nil {
		reason = strings.ReplaceAll(cause.Error(), "\n", " ")
	}
	return fmt.Sprintf("// Partial recording of session %s\n// Stopped by: %s\n", sessionID, reason)
}

// AfterInjectionFailure restores the target from its backup when one was
// taken, then hands code to the clipboard, falling back to a file next to
// the target.
func (h *Handler) AfterInjectionFailure(res *inject.Result, code string) *Outcome {
	out := &Outcome{Code: code, BackupPath: res.BackupPath}
	if res.Err != nil {
		out.Cause = res.Err
		out.ErrorCode = string(errors.GetCode(res.Err))
	}
	logger := h.logger.WithField("file", res.FilePath)

	if res.BackupPath != "" {
		if err := inject.RestoreFromBackup(res.FilePath, res.BackupPath); err != nil {
			logger.WithError(err).Warn("Could not restore from backup")
		} else {
			out.Restored = true
		}
	}

	h.HandOff(out, res.FilePath)
	return out
}

// HandOff delivers out.Code to the clipboard, or to the fallback file next
// to target when the clipboard is unavailable.
func (h *Handler) HandOff(out *Outcome, target string) {
	if out.Code == "" {
		return
	}
	if h.clipboard != nil {
		err := h.clipboard.WriteAll(out.Code)
		if err == nil {
			out.ClipboardUsed = true
			h.logger.Info("Copied recovered code to the clipboard")
			return
		}
		h.logger.WithError(err).Debug("Clipboard unavailable")
	}
	if target == "" {
		return
	}

	path := FallbackPath(target)
	if err := os.WriteFile(path, []byte(out.Code+"\n"), 0o644); err != nil {
		h.logger.WithError(err).WithField("path", path).Warn("Could not write fallback file")
		return
	}
	out.FallbackPath = path
	h.logger.WithField("path", path).Info("Wrote recovered code to fallback file")
}

// FallbackPath is the file recovered code goes to when the clipboard is not
// available: login.cy.ts becomes login.cy.recorded.js in the same directory.
func FallbackPath(target string) string {
	dir, base := filepath.Split(target)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+FallbackSuffix)
}
