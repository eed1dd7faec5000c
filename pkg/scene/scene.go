// Package scene holds the named brushes of a map and the operations that
// span all of them: bulk clipping and validation.
package scene

import (
	"errors"
	"fmt"

	"github.com/chazu/brushwork/pkg/brush"
	"github.com/samber/lo"
)

// Sentinel errors for name lookups.
var (
	ErrDuplicateName = errors.New("scene: duplicate brush name")
	ErrNotFound      = errors.New("scene: no such brush")
)

// Brush is a named convex solid.
type Brush struct {
	Name     string          `json:"name"`
	Line     int             `json:"line,omitempty"` // source line that created it, 0 if unknown
	Geometry *brush.Geometry `json:"-"`
}

// Scene is an ordered collection of uniquely named brushes. Brushes are
// listed in insertion order. A Scene is not safe for concurrent mutation.
type Scene struct {
	brushes map[string]*Brush
	order   []string
	version uint64
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{brushes: make(map[string]*Brush)}
}

// Add inserts a brush. Names must be non-empty and unique.
func (s *Scene) Add(b *Brush) error {
	if b.Name == "" {
		return fmt.Errorf("scene: brush name must not be empty")
	}
	if b.Geometry == nil {
		return fmt.Errorf("scene: brush %q has no geometry", b.Name)
	}
	if _, ok := s.brushes[b.Name]; ok {
		return fmt.Errorf("scene: add %q: %w", b.Name, ErrDuplicateName)
	}
	s.brushes[b.Name] = b
	s.order = append(s.order, b.Name)
	s.version++
	return nil
}

// Get returns the brush with the given name, or nil.
func (s *Scene) Get(name string) *Brush {
	return s.brushes[name]
}

// Lookup is Get with an error for missing names.
func (s *Scene) Lookup(name string) (*Brush, error) {
	b, ok := s.brushes[name]
	if !ok {
		return nil, fmt.Errorf("scene: lookup %q: %w", name, ErrNotFound)
	}
	return b, nil
}

// Remove deletes the named brush and reports whether it existed.
func (s *Scene) Remove(name string) bool {
	if _, ok := s.brushes[name]; !ok {
		return false
	}
	delete(s.brushes, name)
	s.order = lo.Without(s.order, name)
	s.version++
	return true
}

// Brushes returns the brushes in insertion order.
func (s *Scene) Brushes() []*Brush {
	return lo.Map(s.order, func(n string, _ int) *Brush { return s.brushes[n] })
}

// Names returns the brush names in insertion order.
func (s *Scene) Names() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of brushes.
func (s *Scene) Len() int {
	return len(s.order)
}

// Version increases with every change to the set of brushes or their
// geometry made through the scene.
func (s *Scene) Version() uint64 {
	return s.version
}

// Touch records a change made to a brush geometry outside the scene.
func (s *Scene) Touch() {
	s.version++
}
