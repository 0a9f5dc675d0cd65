// Package actions validates, sanitizes and holds recorded browser actions
// per session.
package actions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/logging"
	"github.com/grovetools/recorder/util/sanitize"
	"github.com/sirupsen/logrus"
)

// DefaultMaxActions is the per-session ceiling used when none is configured.
const DefaultMaxActions = 10000

type session struct {
	meta    SessionMetadata
	actions []Action
}

// Store keeps the ordered action sequence of every session. Sessions are
// independent; the lock only guards the session map and each sequence.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*session
	maxActions int
	now        func() time.Time
	logger     *logrus.Entry
}

// NewStore creates a store. maxActions <= 0 disables the per-session ceiling.
func NewStore(maxActions int) *Store {
	return &Store{
		sessions:   make(map[string]*session),
		maxActions: maxActions,
		now:        time.Now,
		logger:     logging.NewLogger("actions"),
	}
}

// Record validates and appends one action to a session, creating the
// session on first use.
func (s *Store) Record(sessionID string, actionType Type, data map[string]interface{}, ctx Context) (Action, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Action{}, errors.InvalidInput("session id is required").WithDetail("field", "sessionId")
	}
	// Validate what will be stored: values the sanitizer drops count as
	// missing.
	payload := sanitize.Payload(data)
	if err := validate(actionType, payload); err != nil {
		return Action{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if ok && s.maxActions > 0 && len(sess.actions) >= s.maxActions {
		return Action{}, errors.SessionLimit(sessionID, s.maxActions)
	}

	ts := ctx.Timestamp
	if ts == 0 {
		ts = s.now().UnixMilli()
	}
	if !ok {
		sess = &session{meta: SessionMetadata{SessionID: sessionID, StartTime: ts}}
		s.sessions[sessionID] = sess
	}
	if n := len(sess.actions); n > 0 && ts < sess.actions[n-1].Timestamp {
		ts = sess.actions[n-1].Timestamp
	}

	action := Action{
		Type:      actionType,
		Payload:   payload,
		Timestamp: ts,
		PageURL:   sanitize.String(ctx.URL),
		SessionID: sessionID,
		Sequence:  len(sess.actions) + 1,
		Viewport:  ctx.Viewport,
	}
	if len(ctx.Metadata) > 0 {
		action.Metadata = sanitize.Payload(ctx.Metadata)
	}
	sess.actions = append(sess.actions, action)
	sess.touch(action)

	s.logger.WithFields(logrus.Fields{
		"session":  sessionID,
		"type":     actionType,
		"sequence": action.Sequence,
	}).Debug("Recorded action")
	return action, nil
}

func (sess *session) touch(a Action) {
	sess.meta.LastActionTime = a.Timestamp
	if a.PageURL != "" {
		sess.meta.URL = a.PageURL
	}
	if a.Viewport != nil {
		sess.meta.Viewport = a.Viewport
	}
	if a.Type == TypeSessionStart {
		if ua := a.String("userAgent"); ua != "" {
			sess.meta.UserAgent = ua
		}
	}
}

// validate checks the type and its required payload fields. A field counts
// as missing when absent or nil.
func validate(actionType Type, data map[string]interface{}) error {
	if !IsKnown(actionType) {
		return errors.UnknownActionType(string(actionType))
	}
	var missing []string
	for _, field := range requiredFields[actionType] {
		if v, ok := data[field]; !ok || v == nil {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return errors.MissingFields(string(actionType), missing)
	}
	return nil
}

// GetSessionActions returns a copy of a session's actions in sequence order.
func (s *Store) GetSessionActions(sessionID string) []Action {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	return append([]Action(nil), sess.actions...)
}

// GetActionsInRange returns actions whose sequence lies in [start, end].
func (s *Store) GetActionsInRange(sessionID string, start, end int) []Action {
	var out []Action
	for _, a := range s.GetSessionActions(sessionID) {
		if a.Sequence >= start && a.Sequence <= end {
			out = append(out, a)
		}
	}
	return out
}

// GetActionsByTypes returns the actions of the given types in recorded order.
func (s *Store) GetActionsByTypes(sessionID string, types ...Type) []Action {
	want := make(map[Type]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []Action
	for _, a := range s.GetSessionActions(sessionID) {
		if want[a.Type] {
			out = append(out, a)
		}
	}
	return out
}

// StructuredActions returns the recorded actions for the recovery path.
func (s *Store) StructuredActions(sessionID string) []Action {
	return s.GetSessionActions(sessionID)
}

// RawActions returns the actions in their wire form
// ({type, data, context, sequence}).
func (s *Store) RawActions(sessionID string) []map[string]interface{} {
	list := s.GetSessionActions(sessionID)
	out := make([]map[string]interface{}, 0, len(list))
	for _, a := range list {
		ctx := map[string]interface{}{
			"timestamp": a.Timestamp,
			"url":       a.PageURL,
		}
		if a.Viewport != nil {
			ctx["viewport"] = map[string]interface{}{"width": a.Viewport.Width, "height": a.Viewport.Height}
		}
		if a.Metadata != nil {
			ctx["metadata"] = a.Metadata
		}
		out = append(out, map[string]interface{}{
			"type":     string(a.Type),
			"data":     a.Payload,
			"context":  ctx,
			"sequence": a.Sequence,
		})
	}
	return out
}

// Metadata returns the aggregate for a session.
func (s *Store) Metadata(sessionID string) (SessionMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return SessionMetadata{}, false
	}
	return sess.meta, true
}

// Count returns the number of actions recorded for a session.
func (s *Store) Count(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[sessionID]; ok {
		return len(sess.actions)
	}
	return 0
}

// Sessions lists known session ids, sorted.
func (s *Store) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClearSession drops a session and its metadata. It reports whether the
// session existed.
func (s *Store) ClearSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return ok
}

// ExportSession snapshots a session.
func (s *Store) ExportSession(sessionID string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Snapshot{}, errors.InvalidInput(fmt.Sprintf("unknown session '%s'", sessionID)).
			WithDetail("sessionId", sessionID)
	}
	return Snapshot{
		Metadata:   sess.meta,
		Actions:    append([]Action(nil), sess.actions...),
		Count:      len(sess.actions),
		ExportedAt: s.now().UTC(),
	}, nil
}

// ImportSession replaces any session with the snapshot's id. Actions that
// fail validation are logged and skipped; survivors are re-sequenced from 1
// in their original order. It returns the number of imported actions.
func (s *Store) ImportSession(snap Snapshot) (int, error) {
	sessionID := snap.Metadata.SessionID
	if sessionID == "" && len(snap.Actions) > 0 {
		sessionID = snap.Actions[0].SessionID
	}
	if strings.TrimSpace(sessionID) == "" {
		return 0, errors.InvalidInput("snapshot has no session id").WithDetail("field", "sessionId")
	}

	sess := &session{meta: snap.Metadata}
	sess.meta.SessionID = sessionID

	for i, a := range snap.Actions {
		payload := sanitize.Payload(a.Payload)
		if err := validate(a.Type, payload); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"session": sessionID,
				"index":   i,
			}).Warn("Skipping invalid action during import")
			continue
		}
		if s.maxActions > 0 && len(sess.actions) >= s.maxActions {
			s.logger.WithField("session", sessionID).Warnf("Import truncated at %d actions", s.maxActions)
			break
		}
		if n := len(sess.actions); n > 0 && a.Timestamp < sess.actions[n-1].Timestamp {
			a.Timestamp = sess.actions[n-1].Timestamp
		}
		a.Payload = payload
		a.SessionID = sessionID
		a.Sequence = len(sess.actions) + 1
		sess.actions = append(sess.actions, a)
	}
	if len(sess.actions) > 0 {
		if sess.meta.StartTime == 0 {
			sess.meta.StartTime = sess.actions[0].Timestamp
		}
		last := sess.actions[len(sess.actions)-1]
		if sess.meta.LastActionTime < last.Timestamp {
			sess.meta.LastActionTime = last.Timestamp
		}
	}

	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"session":  sessionID,
		"imported": len(sess.actions),
		"skipped":  len(snap.Actions) - len(sess.actions),
	}).Info("Imported session")
	return len(sess.actions), nil
}

// ImportSessionJSON decodes an exported snapshot document. Each action is
// decoded on its own so one corrupt entry does not sink the import.
func (s *Store) ImportSessionJSON(data []byte) (int, error) {
	var doc struct {
		Metadata SessionMetadata   `json:"metadata"`
		Actions  []json.RawMessage `json:"actions"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid session snapshot")
	}

	snap := Snapshot{Metadata: doc.Metadata}
	for i, raw := range doc.Actions {
		var a Action
		if err := json.Unmarshal(raw, &a); err != nil {
			s.logger.WithError(err).WithField("index", i).Warn("Skipping malformed action during import")
			continue
		}
		snap.Actions = append(snap.Actions, a)
	}
	return s.ImportSession(snap)
}
