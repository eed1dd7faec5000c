package geom

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Plane is the set of points p with Normal·p = Distance. Normal is a unit
// vector pointing out of the half-space a brush keeps.
type Plane struct {
	Normal   v3.Vec
	Distance float64
}

// NewPlane normalizes normal and scales distance accordingly. It fails for
// normals shorter than NormalEpsilon.
func NewPlane(normal v3.Vec, distance float64) (Plane, error) {
	l := normal.Length()
	if l < NormalEpsilon || math.IsNaN(l) {
		return Plane{}, fmt.Errorf("geom: plane normal %v has near-zero length", normal)
	}
	return Plane{Normal: normal.MulScalar(1 / l), Distance: distance / l}, nil
}

// PlaneFromPoint returns the plane through point with the given normal.
func PlaneFromPoint(point, normal v3.Vec) (Plane, error) {
	l := normal.Length()
	if l < NormalEpsilon || math.IsNaN(l) {
		return Plane{}, fmt.Errorf("geom: plane normal %v has near-zero length", normal)
	}
	n := normal.MulScalar(1 / l)
	return Plane{Normal: n, Distance: n.Dot(point)}, nil
}

// PlaneFromPoints returns the plane through a, b and c. The normal is
// (b-a)×(c-a), so the points run counter-clockwise seen from the front.
func PlaneFromPoints(a, b, c v3.Vec) (Plane, error) {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Length() < NormalEpsilon {
		return Plane{}, fmt.Errorf("geom: points %v %v %v are collinear", a, b, c)
	}
	return PlaneFromPoint(a, n)
}

// DistanceTo returns the signed distance of p from the plane, positive in
// front.
func (p Plane) DistanceTo(point v3.Vec) float64 {
	return p.Normal.Dot(point) - p.Distance
}

// Classify places point in front of, behind or on the plane.
func (p Plane) Classify(point v3.Vec, eps float64) PointSide {
	d := p.DistanceTo(point)
	switch {
	case math.Abs(d) <= eps:
		return On
	case d > 0:
		return Front
	default:
		return Back
	}
}

// Flip returns the same plane facing the other way.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Neg(), Distance: -p.Distance}
}

// Translate moves the plane by delta.
func (p Plane) Translate(delta v3.Vec) Plane {
	return Plane{Normal: p.Normal, Distance: p.Distance + p.Normal.Dot(delta)}
}

// Equals compares normals and distances within eps.
func (p Plane) Equals(o Plane, eps float64) bool {
	return VecNearlyEqual(p.Normal, o.Normal, eps) && NearlyEqual(p.Distance, o.Distance, eps)
}

// AnchorPoint returns the point of the plane closest to the origin.
func (p Plane) AnchorPoint() v3.Vec {
	return p.Normal.MulScalar(p.Distance)
}

// IntersectSegment returns the point where segment a-b crosses the plane.
// The caller guarantees a and b lie on different sides; for a parallel
// segment the midpoint is returned.
func (p Plane) IntersectSegment(a, b v3.Vec) v3.Vec {
	da := p.DistanceTo(a)
	db := p.DistanceTo(b)
	denom := da - db
	if denom == 0 {
		return a.Add(b).MulScalar(0.5)
	}
	t := da / denom
	return a.Add(b.Sub(a).MulScalar(t))
}

// IntersectRay returns the distance along r at which it meets the plane.
// Rays parallel to the plane and hits behind the origin report false.
func (p Plane) IntersectRay(r Ray) (float64, bool) {
	denom := p.Normal.Dot(r.Direction)
	if math.Abs(denom) < 1e-12 {
		return 0, false
	}
	t := (p.Distance - p.Normal.Dot(r.Origin)) / denom
	if t < 0 || math.IsNaN(t) {
		return 0, false
	}
	return t, true
}

func (p Plane) String() string {
	return fmt.Sprintf("(%g %g %g) %g", p.Normal.X, p.Normal.Y, p.Normal.Z, p.Distance)
}
