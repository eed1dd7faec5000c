package brush

import (
	"fmt"

	"github.com/chazu/brushwork/pkg/geom"
)

// Check verifies that the geometry is a closed, convex 2-manifold: every
// edge separates two distinct sides and occurs once in each of their
// cycles, every cycle closes, V-E+F = 2, no two vertices coincide, every
// vertex lies behind every side plane, every side is planar and wound
// counter-clockwise around its normal, and the volume is positive.
//
// Every successful build and clip runs this check before committing, so a
// geometry obtained from this package always passes it.
func (g *Geometry) Check() error {
	if problems := g.problems(); len(problems) > 0 {
		return NonManifoldError{Vertices: g.Vertices(), Problems: problems}
	}
	return nil
}

func (g *Geometry) problems() []string {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	eps := g.opts.Epsilon
	nv, ne, ns := len(g.vertices), len(g.edges), len(g.sides)

	for i, e := range g.edges {
		if e.Start == e.End {
			add("edge %d is a loop on vertex %d", i, e.Start)
		}
		if e.Start < 0 || int(e.Start) >= nv || e.End < 0 || int(e.End) >= nv {
			add("edge %d references a missing vertex", i)
		}
		if e.Left == NoSide || e.Right == NoSide {
			add("edge %d has only one side", i)
		} else if e.Left == e.Right {
			add("edge %d has side %d on both sides", i, e.Left)
		}
		if int(e.Left) >= ns || int(e.Right) >= ns {
			add("edge %d references a missing side", i)
		}
	}
	if len(problems) > 0 {
		return problems
	}

	// each edge must be walked exactly once by each of its two sides
	visits := make([]int, ne)
	for i, s := range g.sides {
		sid := SideID(i)
		if len(s.Edges) < 3 {
			add("side %d has %d edges", i, len(s.Edges))
			continue
		}
		for j, e := range s.Edges {
			edge := g.edges[e]
			if edge.Left != sid && edge.Right != sid {
				add("side %d lists edge %d that does not border it", i, e)
				continue
			}
			visits[e]++
			next := s.Edges[(j+1)%len(s.Edges)]
			if g.endVertex(e, sid) != g.startVertex(next, sid) {
				add("side %d cycle breaks between edges %d and %d", i, e, next)
			}
		}
	}
	for i, n := range visits {
		if n != 2 {
			add("edge %d is visited %d times", i, n)
		}
	}
	if len(problems) > 0 {
		return problems
	}

	if chi := nv - ne + ns; chi != 2 {
		add("euler characteristic is %d (V=%d E=%d F=%d)", chi, nv, ne, ns)
	}

	for i := 0; i < nv; i++ {
		for j := i + 1; j < nv; j++ {
			if g.vertices[i].Position.Sub(g.vertices[j].Position).Length() < eps {
				add("vertices %d and %d coincide", i, j)
			}
		}
	}

	for i, s := range g.sides {
		for _, v := range g.SideVertices(SideID(i)) {
			if d := s.Boundary.DistanceTo(g.vertices[v].Position); d > 2*eps || d < -2*eps {
				add("vertex %d is %g off the plane of side %d", v, d, i)
			}
		}
		if n := geom.NewellNormal(g.SidePolygon(SideID(i))); n.Dot(s.Boundary.Normal) <= 0 {
			add("side %d is wound against its normal", i)
		}
		for j, v := range g.vertices {
			if d := s.Boundary.DistanceTo(v.Position); d > eps+1e-9 {
				add("vertex %d lies %g in front of side %d", j, d, i)
			}
		}
	}

	if len(problems) == 0 {
		if vol := g.Volume(); vol <= 0 {
			add("volume %g is not positive", vol)
		}
	}
	return problems
}

// endVertex returns the vertex at which side s leaves edge e.
func (g *Geometry) endVertex(e EdgeID, s SideID) VertexID {
	edge := g.edges[e]
	if edge.Right == s {
		return edge.End
	}
	return edge.Start
}
