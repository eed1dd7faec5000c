package geom

import v3 "github.com/deadsy/sdfx/vec/v3"

// Ray is a half-line. Direction need not be unit length: PointAt and
// Plane.IntersectRay work in units of Direction, while Geometry.Pick
// normalizes it and reports world distances.
type Ray struct {
	Origin    v3.Vec
	Direction v3.Vec
}

// PointAt returns the point at distance t along the ray.
func (r Ray) PointAt(t float64) v3.Vec {
	return r.Origin.Add(r.Direction.MulScalar(t))
}
