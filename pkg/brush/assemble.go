package brush

import (
	"fmt"
	"sort"

	"github.com/chazu/brushwork/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// polygon is a side described by its vertex cycle, the intermediate form
// every edit produces before edges are re-derived.
type polygon struct {
	verts    []int
	boundary geom.Plane
	face     Face
	seed     bool
}

// assemble builds an arena from positions and side cycles. Only referenced
// positions become vertices, renumbered in ascending order. Edges are
// derived from the cycles: the first side to walk a->b becomes the right
// side of edge a->b, the side walking b->a becomes its left side. Linkage
// conflicts are returned as problems; the result is unusable if any are
// reported.
func assemble(positions []v3.Vec, polys []polygon, opts Options) (*Geometry, []string) {
	var problems []string

	used := make(map[int]bool)
	for _, p := range polys {
		for _, v := range p.verts {
			used[v] = true
		}
	}
	old := make([]int, 0, len(used))
	for v := range used {
		old = append(old, v)
	}
	sort.Ints(old)
	renum := make(map[int]VertexID, len(old))

	g := &Geometry{
		vertices: make([]Vertex, len(old)),
		sides:    make([]Side, len(polys)),
		opts:     opts,
	}
	for i, v := range old {
		renum[v] = VertexID(i)
		g.vertices[i] = Vertex{Position: positions[v]}
	}

	type key struct{ lo, hi VertexID }
	lookup := make(map[key]EdgeID)

	for si, p := range polys {
		sid := SideID(si)
		side := Side{
			Edges:    make([]EdgeID, 0, len(p.verts)),
			Boundary: p.boundary,
			Face:     p.face,
			seed:     p.seed,
		}
		if len(p.verts) < 3 {
			problems = append(problems, fmt.Sprintf("side %d has %d vertices", si, len(p.verts)))
		}
		for i := range p.verts {
			a := renum[p.verts[i]]
			b := renum[p.verts[(i+1)%len(p.verts)]]
			if a == b {
				problems = append(problems, fmt.Sprintf("side %d repeats vertex %d", si, a))
				continue
			}
			k := key{a, b}
			if b < a {
				k = key{b, a}
			}
			eid, ok := lookup[k]
			if !ok {
				eid = EdgeID(len(g.edges))
				g.edges = append(g.edges, Edge{Start: a, End: b, Left: NoSide, Right: sid})
				lookup[k] = eid
			} else {
				e := &g.edges[eid]
				switch {
				case e.Start == b && e.End == a && e.Left == NoSide:
					e.Left = sid
				case e.Start == a && e.End == b:
					problems = append(problems, fmt.Sprintf("edge %d-%d walked in the same direction by sides %d and %d", a, b, e.Right, sid))
				default:
					problems = append(problems, fmt.Sprintf("edge %d-%d shared by more than two sides", a, b))
				}
			}
			side.Edges = append(side.Edges, eid)
		}
		g.sides[si] = side
	}
	return g, problems
}

// polygons converts the arena back into side cycles over the vertex
// positions, the inverse of assemble.
func (g *Geometry) polygons() ([]v3.Vec, []polygon) {
	positions := g.Vertices()
	polys := make([]polygon, len(g.sides))
	for i, s := range g.sides {
		ids := g.SideVertices(SideID(i))
		verts := make([]int, len(ids))
		for j, id := range ids {
			verts[j] = int(id)
		}
		polys[i] = polygon{verts: verts, boundary: s.Boundary, face: s.Face, seed: s.seed}
	}
	return positions, polys
}
