// Package geom holds the leaf primitives of the brush engine: planes, rays,
// point classification and a few polygon helpers. Vectors are sdfx v3.Vec
// values and boxes are sdf.Box3, so the rest of the system can hand geometry
// straight to the sdfx kernel without conversion.
package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultEpsilon is the on-plane tolerance in map units. Too small and
// repeated clips leave duplicated vertices and cracks; too large and thin
// walls are eaten.
const DefaultEpsilon = 0.01

// NormalEpsilon is the shortest normal length accepted before a plane is
// considered degenerate.
const NormalEpsilon = 1e-6

// PointSide is the result of classifying a point against a plane.
type PointSide int

const (
	Back  PointSide = iota // behind the plane (inside)
	On                     // within epsilon of the plane
	Front                  // in front of the plane (outside)
)

func (s PointSide) String() string {
	switch s {
	case Back:
		return "back"
	case On:
		return "on"
	case Front:
		return "front"
	default:
		return "unknown"
	}
}

// Axis names one of the three coordinate axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

// Unit returns the positive unit vector along the axis.
func (a Axis) Unit() v3.Vec {
	switch a {
	case AxisY:
		return v3.Vec{Y: 1}
	case AxisZ:
		return v3.Vec{Z: 1}
	default:
		return v3.Vec{X: 1}
	}
}

// Component returns the coordinate of v along axis a.
func Component(v v3.Vec, a Axis) float64 {
	switch a {
	case AxisY:
		return v.Y
	case AxisZ:
		return v.Z
	default:
		return v.X
	}
}

// NearlyEqual reports whether a and b differ by at most eps.
func NearlyEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// VecNearlyEqual reports whether every component of a and b differs by at
// most eps.
func VecNearlyEqual(a, b v3.Vec, eps float64) bool {
	return NearlyEqual(a.X, b.X, eps) && NearlyEqual(a.Y, b.Y, eps) && NearlyEqual(a.Z, b.Z, eps)
}

// BoundsOf returns the axis-aligned bounding box of the given points. An
// empty slice yields the zero box.
func BoundsOf(points []v3.Vec) sdf.Box3 {
	if len(points) == 0 {
		return sdf.Box3{}
	}
	min, max := points[0], points[0]
	for _, p := range points[1:] {
		min = v3.Vec{X: math.Min(min.X, p.X), Y: math.Min(min.Y, p.Y), Z: math.Min(min.Z, p.Z)}
		max = v3.Vec{X: math.Max(max.X, p.X), Y: math.Max(max.Y, p.Y), Z: math.Max(max.Z, p.Z)}
	}
	return sdf.Box3{Min: min, Max: max}
}

// BoxNearlyEqual compares two boxes corner by corner.
func BoxNearlyEqual(a, b sdf.Box3, eps float64) bool {
	return VecNearlyEqual(a.Min, b.Min, eps) && VecNearlyEqual(a.Max, b.Max, eps)
}

// Centroid returns the arithmetic mean of the points.
func Centroid(points []v3.Vec) v3.Vec {
	if len(points) == 0 {
		return v3.Vec{}
	}
	var sum v3.Vec
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.MulScalar(1 / float64(len(points)))
}
