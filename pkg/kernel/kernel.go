// Package kernel defines the abstract brush kernel interface.
// Implementations (exact, sdfx) build convex solids from planes, clip them
// and tessellate them behind this interface, so callers can swap the exact
// half-edge engine for the SDF preview backend without other changes.
package kernel

import (
	"github.com/chazu/brushwork/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Solid is an opaque handle to a kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract brush kernel interface. Operations never mutate
// their inputs; they return new solids.
type Kernel interface {
	// Primitives
	Box(min, max v3.Vec) (Solid, error)
	Polyhedron(planes []geom.Plane) (Solid, error)

	// Clipping keeps the part of s behind p.
	Clip(s Solid, p geom.Plane) (Solid, error)

	// Transforms
	Translate(s Solid, delta v3.Vec) (Solid, error)

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
