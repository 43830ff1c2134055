package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	activeFile = "active.json"
)

// ActiveState is the namespace selected with "memoria use". Commands fall
// back to it when no --namespace flag is given.
type ActiveState struct {
	Namespace  string    `json:"namespace"`
	SelectedAt time.Time `json:"selected_at"`
}

// LoadActive loads the active namespace from a target .memoria/active.json.
// Returns nil, nil if no namespace has been selected.
func (m *Manager) LoadActive(overrideDir string) (*ActiveState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, activeFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading active namespace: %w", err)
	}

	state := &ActiveState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing active namespace: %w", err)
	}

	return state, nil
}

// SaveActive persists the active namespace.
func (m *Manager) SaveActive(state *ActiveState, overrideDir string) error {
	if state == nil || state.Namespace == "" {
		return errors.New("cannot save empty active namespace")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling active namespace: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, activeFile), data, 0o600); err != nil {
		return fmt.Errorf("writing active namespace: %w", err)
	}

	return nil
}

// ClearActive removes the active namespace file. Returns nil if the file
// doesn't exist.
func (m *Manager) ClearActive(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, activeFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing active namespace: %w", err)
	}

	return nil
}
