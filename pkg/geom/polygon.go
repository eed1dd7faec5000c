package geom

import v3 "github.com/deadsy/sdfx/vec/v3"

// NewellNormal returns the unnormalized polygon normal computed with
// Newell's method. Its length is twice the polygon area.
func NewellNormal(points []v3.Vec) v3.Vec {
	var n v3.Vec
	for i, cur := range points {
		next := points[(i+1)%len(points)]
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return n
}

// PolygonArea returns the area of a planar polygon.
func PolygonArea(points []v3.Vec) float64 {
	if len(points) < 3 {
		return 0
	}
	return NewellNormal(points).Length() / 2
}

// PointInConvexPolygon reports whether p, assumed to lie on the polygon's
// plane, is inside the counter-clockwise convex polygon with the given
// normal. Points within eps of an edge count as inside.
func PointInConvexPolygon(p v3.Vec, points []v3.Vec, normal v3.Vec, eps float64) bool {
	if len(points) < 3 {
		return false
	}
	for i, a := range points {
		b := points[(i+1)%len(points)]
		edge := b.Sub(a)
		l := edge.Length()
		if l == 0 {
			continue
		}
		// signed distance of p from the edge line, positive on the inner side
		inward := normal.Cross(edge).MulScalar(1 / l)
		if inward.Dot(p.Sub(a)) < -eps {
			return false
		}
	}
	return true
}
