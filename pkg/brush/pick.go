package brush

import (
	"math"

	"github.com/chazu/brushwork/pkg/geom"
)

// Pick returns the nearest side the ray enters the solid through. Sides
// facing away from the ray are ignored, so a ray starting inside the solid
// hits nothing. Hit.Distance is measured in world units along the ray.
func (g *Geometry) Pick(ray geom.Ray) (Hit, bool) {
	l := ray.Direction.Length()
	if l < geom.NormalEpsilon {
		return Hit{}, false
	}
	ray.Direction = ray.Direction.MulScalar(1 / l)

	best := Hit{Side: NoSide, Distance: math.Inf(1)}
	for i, s := range g.sides {
		n := s.Boundary.Normal
		if n.Dot(ray.Direction) >= 0 {
			continue
		}
		t, ok := s.Boundary.IntersectRay(ray)
		if !ok || t >= best.Distance {
			continue
		}
		p := ray.PointAt(t)
		if !geom.PointInConvexPolygon(p, g.SidePolygon(SideID(i)), n, g.opts.Epsilon) {
			continue
		}
		best = Hit{Side: SideID(i), Face: s.Face, Distance: t, Point: p}
	}
	return best, best.Side != NoSide
}
