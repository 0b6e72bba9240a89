package eventbus

import (
	"encoding/json"
	"sync"
	"time"
)

// SharedState is one published version of an extension's queryable state.
type SharedState struct {
	Version   int
	Data      map[string]any
	EventID   string
	CreatedAt time.Time
}

// SharedStates holds the versioned shared state of every extension. Readers
// get copies; only the hub lane writes.
type SharedStates struct {
	mu     sync.RWMutex
	states map[string][]SharedState
}

func NewSharedStates() *SharedStates {
	return &SharedStates{states: make(map[string][]SharedState)}
}

// Set appends a new version for extension. trigger may be nil for state
// shared without a triggering event.
func (s *SharedStates) Set(extension string, data map[string]any, trigger *Event) SharedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := SharedState{
		Version:   len(s.states[extension]) + 1,
		Data:      cloneTree(data),
		CreatedAt: time.Now(),
	}
	if trigger != nil {
		state.EventID = trigger.ID
	}
	s.states[extension] = append(s.states[extension], state)
	return state
}

// Latest returns the most recent version for extension.
func (s *SharedStates) Latest(extension string) (SharedState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.states[extension]
	if len(versions) == 0 {
		return SharedState{}, false
	}
	latest := versions[len(versions)-1]
	latest.Data = cloneTree(latest.Data)
	return latest, true
}

// Versions returns how many versions extension has published.
func (s *SharedStates) Versions(extension string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states[extension])
}

// cloneTree copies a JSON-shaped tree. Values that cannot be encoded are
// dropped, which never happens for trees built from consent payloads.
func cloneTree(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
