// Package exact implements the kernel.Kernel interface on top of the
// half-edge brush engine in pkg/brush. Solids are brush geometries; every
// operation works on a clone, so inputs are never modified.
package exact

import (
	"fmt"

	"github.com/chazu/brushwork/pkg/brush"
	"github.com/chazu/brushwork/pkg/geom"
	"github.com/chazu/brushwork/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*ExactKernel)(nil)

// ExactKernel implements kernel.Kernel with brush geometries.
type ExactKernel struct {
	opts brush.Options
}

// New returns an ExactKernel using opts for every solid it creates.
func New(opts brush.Options) *ExactKernel {
	return &ExactKernel{opts: opts}
}

// unwrap extracts the brush geometry from a kernel.Solid.
func unwrap(s kernel.Solid) (*brush.Geometry, error) {
	g, ok := s.(*brush.Geometry)
	if !ok {
		return nil, fmt.Errorf("exact: solid %T was not created by this kernel", s)
	}
	return g, nil
}

// Box creates an axis-aligned box spanning min to max.
func (k *ExactKernel) Box(min, max v3.Vec) (kernel.Solid, error) {
	g, err := brush.NewBox(sdf.Box3{Min: min, Max: max}, k.opts)
	if err != nil {
		return nil, fmt.Errorf("exact: box: %w", err)
	}
	return g, nil
}

// Polyhedron creates the convex solid bounded by planes.
func (k *ExactKernel) Polyhedron(planes []geom.Plane) (kernel.Solid, error) {
	faces := make([]brush.Boundary, len(planes))
	for i, p := range planes {
		faces[i] = brush.Boundary{Plane: p}
	}
	g, err := brush.BuildFaces(faces, k.opts)
	if err != nil {
		return nil, fmt.Errorf("exact: polyhedron: %w", err)
	}
	return g, nil
}

// Clip returns the part of s behind p.
func (k *ExactKernel) Clip(s kernel.Solid, p geom.Plane) (kernel.Solid, error) {
	g, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	c := g.Clone()
	if err := c.Clip(p); err != nil {
		return nil, fmt.Errorf("exact: clip: %w", err)
	}
	return c, nil
}

// Translate returns s moved by delta.
func (k *ExactKernel) Translate(s kernel.Solid, delta v3.Vec) (kernel.Solid, error) {
	g, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	c := g.Clone()
	c.Translate(delta)
	return c, nil
}

// ToMesh triangulates the sides of s.
func (k *ExactKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	g, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	return g.Mesh(), nil
}
