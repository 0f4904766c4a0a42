package scheme

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownType is returned when a qualified name has no registration
var ErrUnknownType = errors.New("unknown type")

// RequestTypes declares the request value created for each body carrying verb.
// A nil factory means the verb declares no request type.
type RequestTypes struct {
	Post   func() any
	Put    func() any
	Delete func() any
}

// Registration binds a qualified type name to a handler constructor
type Registration struct {
	GroupKind GroupKind

	// New returns a fresh handler value for a single call
	New func() any

	// NoToken marks handlers that may be called without an authentication token
	NoToken bool

	RequestTypes RequestTypes
}

// Scheme is the registry of handler types known to the dispatcher.
// It is safe for concurrent use.
type Scheme struct {
	mu    sync.RWMutex
	types map[string]*Registration
}

// NewScheme returns an empty Scheme
func NewScheme() *Scheme {
	return &Scheme{
		types: make(map[string]*Registration),
	}
}

// AddKnownType registers reg under its qualified name
func (s *Scheme) AddKnownType(reg Registration) error {
	if reg.GroupKind.Empty() {
		return errors.New("registration must have a group and kind")
	}
	if reg.New == nil {
		return fmt.Errorf("registration %s has no constructor", reg.GroupKind)
	}
	name := reg.GroupKind.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[name]; ok {
		return fmt.Errorf("type %s is already registered", name)
	}
	s.types[name] = &reg
	return nil
}

// MustAddKnownTypes registers all regs and panics on the first failure
func (s *Scheme) MustAddKnownTypes(regs ...Registration) {
	for _, reg := range regs {
		if err := s.AddKnownType(reg); err != nil {
			panic(fmt.Errorf("BUG: %w", err))
		}
	}
}

// Lookup returns the registration for the qualified name
func (s *Scheme) Lookup(name string) (*Registration, bool) {
	s.mu.RLock()
	reg, ok := s.types[name]
	s.mu.RUnlock()
	return reg, ok
}

// New creates a new handler value for the qualified name
func (s *Scheme) New(name string) (any, error) {
	reg, ok := s.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return reg.New(), nil
}

// KnownTypes returns the sorted qualified names of all registrations
func (s *Scheme) KnownTypes() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.types))
	for name := range s.types {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}
