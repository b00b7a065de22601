package emergency

import (
	"errors"
	"sync"
)

var ErrBusy = errors.New("an emergency is already being handled")

// ActiveStore holds the single active incident behind one mutex. Callers get
// defensive copies; mutation happens only inside Mutate's critical section,
// and the lock is never held across a network call.
type ActiveStore struct {
	mu       sync.Mutex
	incident *Incident
}

func NewActiveStore() *ActiveStore {
	return &ActiveStore{}
}

// Get returns a copy of the active incident, if any.
func (s *ActiveStore) Get() (Incident, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incident == nil {
		return Incident{}, false
	}
	return *s.incident, true
}

// Set installs a new incident. Exactly one concurrent caller wins; the rest
// get ErrBusy.
func (s *ActiveStore) Set(inc *Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incident != nil {
		return ErrBusy
	}
	copied := *inc
	s.incident = &copied
	return nil
}

// Mutate runs fn against the active incident when its id matches, returning
// whether fn ran. A missing or mismatched incident is a silent no-op so that
// provider callbacks can race against a concluded incident safely.
func (s *ActiveStore) Mutate(id string, fn func(*Incident)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incident == nil || s.incident.ID != id {
		return false
	}
	fn(s.incident)
	return true
}

// Clear drops the active incident. Clearing an empty store is a no-op.
func (s *ActiveStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incident = nil
}
