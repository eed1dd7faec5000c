package brush

import (
	"github.com/chazu/brushwork/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Translate moves the geometry by delta. Translation cannot break any
// invariant, so it never fails.
func (g *Geometry) Translate(delta v3.Vec) {
	for i := range g.vertices {
		g.vertices[i].Position = g.vertices[i].Position.Add(delta)
	}
	for i := range g.sides {
		g.sides[i].Boundary = g.sides[i].Boundary.Translate(delta)
	}
	g.invalidate()
}

// Transform applies the affine transform m. Side planes are recomputed from
// the transformed corners and mirroring transforms have their cycles
// reversed so sides stay wound around their outward normals. Singular
// transforms are rejected. On error the geometry is unchanged.
func (g *Geometry) Transform(m sdf.M44) error {
	o := m.MulPosition(v3.Vec{})
	ex := m.MulPosition(v3.Vec{X: 1}).Sub(o)
	ey := m.MulPosition(v3.Vec{Y: 1}).Sub(o)
	ez := m.MulPosition(v3.Vec{Z: 1}).Sub(o)
	det := ex.Dot(ey.Cross(ez))
	if det > -1e-12 && det < 1e-12 {
		return DegenerateInputError{Index: -1, Reason: "transform is singular"}
	}

	positions, polys := g.polygons()
	for i, p := range positions {
		positions[i] = m.MulPosition(p)
	}
	for i := range polys {
		p := &polys[i]
		if det < 0 {
			for a, b := 0, len(p.verts)-1; a < b; a, b = a+1, b-1 {
				p.verts[a], p.verts[b] = p.verts[b], p.verts[a]
			}
		}
		pts := make([]v3.Vec, len(p.verts))
		for j, v := range p.verts {
			pts[j] = positions[v]
		}
		plane, err := geom.PlaneFromPoint(geom.Centroid(pts), geom.NewellNormal(pts))
		if err != nil {
			return DegenerateInputError{Index: i, Plane: p.boundary, Reason: err.Error()}
		}
		p.boundary = plane
	}

	next, problems := assemble(positions, polys, g.opts)
	if len(problems) == 0 {
		problems = next.problems()
	}
	if len(problems) > 0 {
		return NonManifoldError{Vertices: positions, Problems: problems}
	}
	g.replace(next)
	return nil
}

// Flip mirrors the geometry across the plane perpendicular to axis at
// coordinate center.
func (g *Geometry) Flip(axis geom.Axis, center float64) error {
	c := axis.Unit().MulScalar(center)
	s := v3.Vec{X: 1, Y: 1, Z: 1}.Sub(axis.Unit().MulScalar(2))
	m := sdf.Translate3d(c).Mul(sdf.Scale3d(s)).Mul(sdf.Translate3d(c.Neg()))
	return g.Transform(m)
}
