package brush

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/brushwork/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Clip keeps the part of the geometry behind plane and discards the part in
// front of it. A plane that misses the solid is a no-op. On error the
// geometry is left exactly as it was.
func (g *Geometry) Clip(plane geom.Plane) error {
	_, err := g.AddFace(Boundary{Plane: plane})
	return err
}

// AddFace clips the geometry by b.Plane and attaches b.Face to the cap side
// the cut creates. It returns the payloads of the sides that disappeared.
// A plane that misses the solid leaves it unchanged and returns no payloads.
func (g *Geometry) AddFace(b Boundary) ([]Face, error) {
	plane, err := geom.NewPlane(b.Plane.Normal, b.Plane.Distance)
	if err != nil {
		return nil, DegenerateInputError{Index: -1, Plane: b.Plane, Reason: err.Error()}
	}
	c := newClipper(g, plane)
	if !c.markVertices() {
		return nil, nil
	}
	if c.keep == 0 {
		return nil, EmptyResultError{Plane: plane}
	}
	c.markEdges()
	c.settle()
	c.markSides()
	return c.rebuild(b.Face)
}

// clipper holds the transient marks of one clip. Nothing in it outlives the
// call, so a geometry never carries stale marks.
type clipper struct {
	g     *Geometry
	plane geom.Plane
	eps   float64

	vmarks []VertexMark
	emarks []EdgeMark
	smarks []SideMark

	// positions holds the old vertices followed by the new intersection
	// vertices; split maps a split edge to its intersection vertex.
	positions []v3.Vec
	split     map[EdgeID]int

	keep, drop int

	// merged is a side lying on the cutting plane and facing the same way.
	// It is dropped and the cap takes its place.
	merged SideID
}

func newClipper(g *Geometry, plane geom.Plane) *clipper {
	return &clipper{
		g:         g,
		plane:     plane,
		eps:       g.opts.Epsilon,
		vmarks:    make([]VertexMark, len(g.vertices)),
		emarks:    make([]EdgeMark, len(g.edges)),
		smarks:    make([]SideMark, len(g.sides)),
		positions: g.Vertices(),
		split:     make(map[EdgeID]int),
		merged:    NoSide,
	}
}

// markVertices classifies every vertex and reports whether any vertex lies
// in front of the plane.
func (c *clipper) markVertices() bool {
	for i, v := range c.g.vertices {
		switch c.plane.Classify(v.Position, c.eps) {
		case geom.Front:
			c.vmarks[i] = VertexDrop
			c.drop++
		case geom.Back:
			c.vmarks[i] = VertexKeep
			c.keep++
		default:
			c.vmarks[i] = VertexUndecided
		}
	}
	return c.drop > 0
}

func (c *clipper) markEdges() {
	for i, e := range c.g.edges {
		s, t := c.vmarks[e.Start], c.vmarks[e.End]
		switch {
		case s == VertexUndecided && t == VertexUndecided:
			c.emarks[i] = EdgeUndecided
		case s == VertexUndecided:
			c.emarks[i] = edgeMarkOf(t)
		case t == VertexUndecided:
			c.emarks[i] = edgeMarkOf(s)
		case s == t:
			c.emarks[i] = edgeMarkOf(s)
		default:
			a := c.g.vertices[e.Start].Position
			b := c.g.vertices[e.End].Position
			c.split[EdgeID(i)] = len(c.positions)
			c.positions = append(c.positions, c.plane.IntersectSegment(a, b))
			c.vmarks = append(c.vmarks, VertexNew)
			c.emarks[i] = EdgeSplit
		}
	}
}

func edgeMarkOf(m VertexMark) EdgeMark {
	if m == VertexDrop {
		return EdgeDrop
	}
	return EdgeKeep
}

// settle resolves undecided vertices whose edges all stay. Such a vertex
// only touches the plane and is kept like any other; it never becomes a
// corner of the cap.
func (c *clipper) settle() {
	open := make([]bool, len(c.g.vertices))
	for i, e := range c.g.edges {
		if c.emarks[i] != EdgeKeep {
			open[e.Start] = true
			open[e.End] = true
		}
	}
	for v, touched := range open {
		if !touched && c.vmarks[v] == VertexUndecided {
			c.vmarks[v] = VertexKeep
		}
	}
}

func (c *clipper) markSides() {
	for i, s := range c.g.sides {
		var keep, drop, split, undecided int
		for _, e := range s.Edges {
			switch c.emarks[e] {
			case EdgeKeep:
				keep++
			case EdgeDrop:
				drop++
			case EdgeSplit:
				split++
			case EdgeUndecided:
				undecided++
			}
		}
		switch {
		case undecided == len(s.Edges):
			// Coplanar with the cut. Something is dropped elsewhere, so
			// the cap covers this side; one facing the same way hands its
			// payload on.
			c.smarks[i] = SideDrop
			if c.merged == NoSide && s.Boundary.Normal.Dot(c.plane.Normal) > 0 {
				c.merged = SideID(i)
			}
		case drop == 0 && split == 0:
			c.smarks[i] = SideKeep
		case keep == 0 && split == 0:
			c.smarks[i] = SideDrop
		default:
			c.smarks[i] = SideSplit
		}
	}
}

// onPlane reports whether the vertex at index v lies on the cutting plane.
func (c *clipper) onPlane(v int) bool {
	m := c.vmarks[v]
	return m == VertexUndecided || m == VertexNew
}

// rebuild produces the clipped arena, checks it and commits it. When the
// cut leaves a rim that cannot be sealed, the surviving corners are
// rebuilt as their convex hull instead.
func (c *clipper) rebuild(face Face) ([]Face, error) {
	inherited := false
	if face == nil && c.merged != NoSide {
		face = c.g.sides[c.merged].Face
		inherited = face != nil
	}

	polys, dropped := c.survivors(inherited)
	polys, collapsed := c.weld(polys)
	dropped = append(dropped, collapsed...)

	next, err := c.seal(polys, face)
	if errors.Is(err, ErrNonManifold) {
		retry, lost, rerr := c.reshape(polys, face, inherited)
		switch {
		case rerr == nil:
			next, err = retry, nil
			dropped = append(dropped, lost...)
		case errors.Is(rerr, ErrEmptyResult):
			err = rerr
		}
	}
	if err != nil {
		return nil, err
	}
	c.g.replace(next)
	return dropped, nil
}

// survivors rebuilds the cycles of the kept and split sides and collects
// the payloads of dropped ones. The payload of the merged side is left out
// when the cap inherits it.
func (c *clipper) survivors(inherited bool) ([]polygon, []Face) {
	g := c.g
	var (
		polys   []polygon
		dropped []Face
	)
	for i, s := range g.sides {
		sid := SideID(i)
		switch c.smarks[i] {
		case SideDrop:
			if s.Face != nil && !(inherited && sid == c.merged) {
				dropped = append(dropped, s.Face)
			}
		case SideKeep:
			ids := g.SideVertices(sid)
			verts := make([]int, len(ids))
			for j, v := range ids {
				verts[j] = int(v)
			}
			polys = append(polys, polygon{verts: verts, boundary: s.Boundary, face: s.Face, seed: s.seed})
		case SideSplit:
			var verts []int
			for _, e := range s.Edges {
				v := int(g.startVertex(e, sid))
				if c.vmarks[v] != VertexDrop {
					verts = append(verts, v)
				}
				if nv, ok := c.split[e]; ok {
					verts = append(verts, nv)
				}
			}
			polys = append(polys, polygon{verts: verts, boundary: s.Boundary, face: s.Face, seed: s.seed})
		}
	}
	return polys, dropped
}

// seal closes the surviving sides with a cap on the cutting plane and
// checks the result.
func (c *clipper) seal(polys []polygon, face Face) (*Geometry, error) {
	rim, err := c.capCycle(polys)
	if err != nil {
		return nil, err
	}
	polys = append(polys[:len(polys):len(polys)], polygon{verts: rim, boundary: c.plane, face: face})

	next, problems := assemble(c.positions, polys, c.g.opts)
	if len(problems) == 0 {
		if flat(next) {
			return nil, EmptyResultError{Plane: c.plane}
		}
		problems = next.problems()
	}
	if len(problems) > 0 {
		return nil, NonManifoldError{Plane: c.plane, Vertices: next.Vertices(), Problems: problems}
	}
	return next, nil
}

// reshape rebuilds the clipped solid as the convex hull of the corners the
// surviving sides reference. Sides keep their planes and payloads where the
// hull reproduces them; the cap is matched against the cutting plane.
func (c *clipper) reshape(polys []polygon, face Face, inherited bool) (*Geometry, []Face, error) {
	seen := make(map[int]bool)
	var order []int
	for _, p := range polys {
		for _, v := range p.verts {
			if !seen[v] {
				seen[v] = true
				order = append(order, v)
			}
		}
	}
	sort.Ints(order)

	candidates := append(polys[:len(polys):len(polys)], polygon{boundary: c.plane, face: face})
	next, unused, err := rebuildHull(c.positions, order, candidates, c.g.opts)
	if errors.Is(err, errFlat) {
		return nil, nil, EmptyResultError{Plane: c.plane}
	}
	if err != nil {
		var nm NonManifoldError
		if errors.As(err, &nm) {
			nm.Plane = c.plane
			return nil, nil, nm
		}
		return nil, nil, NonManifoldError{Plane: c.plane, Vertices: c.positions, Problems: []string{err.Error()}}
	}

	var lost []Face
	for _, i := range unused {
		cand := candidates[i]
		if cand.face == nil || (i == len(polys) && !inherited) {
			continue
		}
		lost = append(lost, cand.face)
	}
	return next, lost, nil
}

// weld merges on-plane vertices closer than epsilon into the one with the
// lowest index, removes the repeats this leaves in the cycles and discards
// sides that collapse below three vertices. Payloads of collapsed sides are
// returned.
func (c *clipper) weld(polys []polygon) ([]polygon, []Face) {
	var on []int
	seen := make(map[int]bool)
	for _, p := range polys {
		for _, v := range p.verts {
			if c.onPlane(v) && !seen[v] {
				seen[v] = true
				on = append(on, v)
			}
		}
	}
	sort.Ints(on)

	rep := make(map[int]int)
	for i, v := range on {
		for _, u := range on[:i] {
			if _, merged := rep[u]; merged {
				continue
			}
			if c.positions[v].Sub(c.positions[u]).Length() <= c.eps {
				rep[v] = u
				break
			}
		}
	}

	var (
		out       []polygon
		collapsed []Face
	)
	for _, p := range polys {
		verts := make([]int, 0, len(p.verts))
		for _, v := range p.verts {
			if r, ok := rep[v]; ok {
				v = r
			}
			if len(verts) > 0 && verts[len(verts)-1] == v {
				continue
			}
			verts = append(verts, v)
		}
		for len(verts) > 1 && verts[0] == verts[len(verts)-1] {
			verts = verts[:len(verts)-1]
		}
		if len(verts) < 3 {
			if p.face != nil {
				collapsed = append(collapsed, p.face)
			}
			continue
		}
		p.verts = verts
		out = append(out, p)
	}
	return out, collapsed
}

// capCycle chains the rim of the hole the dropped sides leave into the
// vertex cycle of the cap. An edge one surviving side walks and no other
// walks back borders the hole; the cap walks it the other way round.
func (c *clipper) capCycle(polys []polygon) ([]int, error) {
	type seg struct{ a, b int }
	walked := make(map[seg]int)
	var order []seg
	for _, p := range polys {
		for i, a := range p.verts {
			s := seg{a, p.verts[(i+1)%len(p.verts)]}
			if walked[s] == 0 {
				order = append(order, s)
			}
			walked[s]++
		}
	}

	var problems []string
	next := make(map[int]int)
	for _, s := range order {
		if walked[seg{s.b, s.a}] > 0 {
			continue
		}
		if n := walked[s]; n > 1 {
			problems = append(problems, fmt.Sprintf("rim edge %d-%d walked %d times", s.a, s.b, n))
		}
		if !c.onPlane(s.a) || !c.onPlane(s.b) {
			problems = append(problems, fmt.Sprintf("rim edge %d-%d leaves the cutting plane", s.a, s.b))
			continue
		}
		if prev, ok := next[s.b]; ok {
			problems = append(problems, fmt.Sprintf("cap vertex %d branches to %d and %d", s.b, prev, s.a))
			continue
		}
		next[s.b] = s.a
	}
	if len(problems) > 0 {
		return nil, NonManifoldError{Plane: c.plane, Vertices: c.positions, Problems: problems}
	}
	if len(next) < 3 {
		return nil, EmptyResultError{Plane: c.plane}
	}

	start := -1
	for a := range next {
		if start < 0 || a < start {
			start = a
		}
	}
	cycle := []int{start}
	for v := next[start]; v != start; v = next[v] {
		if len(cycle) > len(next) {
			return nil, NonManifoldError{Plane: c.plane, Vertices: c.positions, Problems: []string{"cap edges do not close"}}
		}
		if _, ok := next[v]; !ok {
			return nil, NonManifoldError{Plane: c.plane, Vertices: c.positions, Problems: []string{fmt.Sprintf("cap chain ends at vertex %d", v)}}
		}
		cycle = append(cycle, v)
	}
	if len(cycle) != len(next) {
		return nil, NonManifoldError{
			Plane:    c.plane,
			Vertices: c.positions,
			Problems: []string{fmt.Sprintf("cap edges form more than one loop (%d of %d edges chained)", len(cycle), len(next))},
		}
	}

	pts := make([]v3.Vec, len(cycle))
	for i, v := range cycle {
		pts[i] = c.positions[v]
	}
	if geom.PolygonArea(pts) <= c.eps*c.eps {
		return nil, EmptyResultError{Plane: c.plane}
	}
	return cycle, nil
}
