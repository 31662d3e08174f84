package state

import (
	"sync"

	"costtracker/internal/core"
	"costtracker/internal/remote"
)

// Change names passed to observers.
const (
	ChangeItems      = "items"
	ChangeOtherCosts = "otherCosts"
	ChangeUser       = "user"
)

// Observer is called after every transition, on the writing goroutine.
type Observer func(change string)

// Store is the local state: the identity plus both collections. Owner is
// the uid the collections belong to; it survives sign-out so mirrored data
// can be matched to the next sign-in.
type Store struct {
	Items      *Slice[core.Item]
	OtherCosts *Slice[core.OtherCost]

	mu    sync.RWMutex
	user  *core.User
	owner string

	obsMu     sync.RWMutex
	observers []Observer
}

func NewStore() *Store {
	s := &Store{
		Items:      NewSlice[core.Item](remote.Items.Name),
		OtherCosts: NewSlice[core.OtherCost](remote.OtherCosts.Name),
	}
	s.Items.changed = s.emit
	s.OtherCosts.changed = s.emit
	return s
}

func (s *Store) Observe(fn Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) emit(change string) {
	s.obsMu.RLock()
	obs := append([]Observer(nil), s.observers...)
	s.obsMu.RUnlock()
	for _, fn := range obs {
		fn(change)
	}
}

// User returns the signed-in identity.
func (s *Store) User() (core.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return core.User{}, false
	}
	return *s.user, true
}

// SetUser records the identity and takes ownership of the collections.
func (s *Store) SetUser(u core.User) {
	s.mu.Lock()
	s.user = &u
	s.owner = u.UID
	s.mu.Unlock()
	s.emit(ChangeUser)
}

func (s *Store) ClearUser() {
	s.mu.Lock()
	had := s.user != nil
	s.user = nil
	s.mu.Unlock()
	if had {
		s.emit(ChangeUser)
	}
}

func (s *Store) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// SetOwner is used when restoring mirrored collections.
func (s *Store) SetOwner(uid string) {
	s.mu.Lock()
	s.owner = uid
	s.mu.Unlock()
}

// ResetCollections empties both collections and drops ownership.
func (s *Store) ResetCollections() {
	s.mu.Lock()
	s.owner = ""
	s.mu.Unlock()
	s.Items.reset()
	s.OtherCosts.reset()
}

// View is a point-in-time copy for readers.
type View struct {
	User       *core.User
	Items      []core.Item
	OtherCosts []core.OtherCost
}

func (s *Store) View() View {
	var v View
	if u, ok := s.User(); ok {
		v.User = &u
	}
	v.Items = s.Items.All()
	v.OtherCosts = s.OtherCosts.All()
	return v
}
