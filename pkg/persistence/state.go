package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/sigcntrl/lampagent/pkg/heartbeat"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// ErrUnsupportedVersion is returned for state files written by a newer agent.
var ErrUnsupportedVersion = errors.New("persistence: unsupported state version")

// AgentState is the persisted agent state.
type AgentState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Variant is the board variant the agent last ran with.
	Variant string `json:"variant,omitempty"`

	// Runs counts completed agent runs.
	Runs uint64 `json:"runs"`

	// Shutdowns counts runs ended by a supervisor END command.
	Shutdowns uint64 `json:"shutdowns"`

	// Lifetime is the sum of all session counters.
	Lifetime heartbeat.Stats `json:"lifetime"`

	// LastSession describes the most recent session.
	LastSession *SessionRecord `json:"last_session,omitempty"`
}

// SessionRecord summarizes one heartbeat session.
type SessionRecord struct {
	// ID is the session identifier.
	ID string `json:"id"`

	// Remote is the supervisor address.
	Remote string `json:"remote,omitempty"`

	// StartedAt and EndedAt bound the session.
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	// Reason is why the session ended.
	Reason string `json:"reason,omitempty"`

	// Stats are the session's own counters.
	Stats heartbeat.Stats `json:"stats"`
}

// Record folds a finished session into the state.
func (s *AgentState) Record(rec SessionRecord, shutdown bool) {
	s.Runs++
	if shutdown {
		s.Shutdowns++
	}
	s.Lifetime = s.Lifetime.Add(rec.Stats)
	s.LastSession = &rec
}

// StateStore manages persistence of agent state to a JSON file.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates a new state store.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the state file path.
func (s *StateStore) Path() string {
	return s.path
}

// Save persists the state to disk atomically.
func (s *StateStore) Save(state *AgentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ensure parent directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	state.Version = StateVersion
	state.SavedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return renameio.WriteFile(s.path, data, 0o644)
}

// Load reads the state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *StateStore) Load() (*AgentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &AgentState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, state.Version)
	}

	return state, nil
}

// Update loads the state, applies fn and saves the result. A missing file
// starts from an empty state.
func (s *StateStore) Update(fn func(*AgentState)) (*AgentState, error) {
	state, err := s.Load()
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &AgentState{}
	}
	fn(state)
	if err := s.Save(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Clear removes the state file.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
