package state

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Well-known keys.
const (
	KeyLastSession = "last_session"
	KeyLastTarget  = "last_target"
)

// State is the local recorder state as a generic map of key-value pairs.
type State map[string]interface{}

// Dir is the directory, relative to the working directory, that holds
// recorder state, backups and the session archive.
const Dir = ".recorder"

// stateFilePath returns the path of .recorder/state.yml in the current
// working directory.
func stateFilePath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current directory: %w", err)
	}
	return filepath.Join(cwd, Dir, "state.yml"), nil
}

// Load loads the state from the state file.
// Returns an empty state if the file doesn't exist.
func Load() (State, error) {
	path, err := stateFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(State), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if state == nil {
		state = make(State)
	}
	return state, nil
}

// Save saves the state to the state file.
func Save(state State) error {
	path, err := stateFilePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// GetString returns a string value from state, or "" when the key is
// missing or holds something else.
func GetString(key string) (string, error) {
	state, err := Load()
	if err != nil {
		return "", err
	}
	str, _ := state[key].(string)
	return str, nil
}

// Set sets a value in the state.
func Set(key string, value interface{}) error {
	return Update(map[string]interface{}{key: value})
}

// Update sets several values with a single write.
func Update(values map[string]interface{}) error {
	state, err := Load()
	if err != nil {
		return err
	}
	for k, v := range values {
		state[k] = v
	}
	return Save(state)
}

// Delete removes a key from the state.
func Delete(key string) error {
	state, err := Load()
	if err != nil {
		return err
	}
	delete(state, key)
	return Save(state)
}

// LastSession returns the id of the most recently recorded session.
func LastSession() (string, error) {
	return GetString(KeyLastSession)
}

// LastTarget returns the most recent injection target.
func LastTarget() (string, error) {
	return GetString(KeyLastTarget)
}

// Remember records the latest session and, when non-empty, target file.
func Remember(sessionID, target string) error {
	values := map[string]interface{}{KeyLastSession: sessionID}
	if target != "" {
		values[KeyLastTarget] = target
	}
	return Update(values)
}
