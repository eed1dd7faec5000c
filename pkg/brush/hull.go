package brush

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/brushwork/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// errFlat reports a point set that spans no volume.
var errFlat = errors.New("points span no volume")

// hull is an incremental convex hull over a triangle mesh. Triangles are
// wound counter-clockwise seen from outside; edges maps every directed
// edge to the live triangle walking it.
type hull struct {
	points []v3.Vec
	eps    float64
	tol    float64

	tris  []hullTri
	edges map[[2]int]int
	used  map[int]bool
}

type hullTri struct {
	v    [3]int
	n    v3.Vec
	d    float64
	dead bool
}

// convexHull returns the sides of the convex hull of the points listed in
// order, as cycles of indices into points. A point closer than eps to one
// listed before it is skipped, so order decides which of two near
// duplicates survives. Triangles within eps of a common plane are merged
// into one side, and corners left between only two sides are dropped.
func convexHull(points []v3.Vec, order []int, eps float64) ([]polygon, error) {
	var ids []int
	scale := 1.0
	for _, i := range order {
		p := points[i]
		dup := false
		for _, j := range ids {
			if p.Sub(points[j]).Length() < eps {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		ids = append(ids, i)
		scale = math.Max(scale, math.Max(math.Abs(p.X), math.Max(math.Abs(p.Y), math.Abs(p.Z))))
	}
	if len(ids) < 4 {
		return nil, errFlat
	}

	h := &hull{
		points: points,
		eps:    eps,
		tol:    1e-9 * scale,
		edges:  make(map[[2]int]int),
		used:   make(map[int]bool),
	}
	if err := h.seed(ids); err != nil {
		return nil, err
	}
	for _, i := range ids {
		if h.used[i] {
			continue
		}
		if err := h.add(i); err != nil {
			return nil, err
		}
	}
	return h.sides()
}

// seed builds the starting tetrahedron from four extreme points.
func (h *hull) seed(ids []int) error {
	p := h.points
	a := ids[0]
	for _, i := range ids {
		if p[i].X < p[a].X {
			a = i
		}
	}
	b, best := -1, 0.0
	for _, i := range ids {
		if d := p[i].Sub(p[a]).Length(); d > best {
			b, best = i, d
		}
	}
	if b < 0 || best <= h.eps {
		return errFlat
	}
	axis := p[b].Sub(p[a]).Normalize()
	c, best := -1, 0.0
	for _, i := range ids {
		if d := p[i].Sub(p[a]).Cross(axis).Length(); d > best {
			c, best = i, d
		}
	}
	if c < 0 || best <= h.eps {
		return errFlat
	}
	base, err := geom.PlaneFromPoints(p[a], p[b], p[c])
	if err != nil {
		return errFlat
	}
	d, best := -1, 0.0
	for _, i := range ids {
		if dist := math.Abs(base.DistanceTo(p[i])); dist > best {
			d, best = i, dist
		}
	}
	if d < 0 || best <= h.eps {
		return errFlat
	}
	if base.DistanceTo(p[d]) > 0 {
		b, c = c, b
	}
	for _, t := range [][3]int{{a, b, c}, {b, a, d}, {c, b, d}, {a, c, d}} {
		if err := h.addTri(t[0], t[1], t[2]); err != nil {
			return err
		}
	}
	for _, i := range []int{a, b, c, d} {
		h.used[i] = true
	}
	return nil
}

func (h *hull) addTri(a, b, c int) error {
	p := h.points
	n := p[b].Sub(p[a]).Cross(p[c].Sub(p[a]))
	if l := n.Length(); l > 0 {
		n = n.MulScalar(1 / l)
	}
	id := len(h.tris)
	h.tris = append(h.tris, hullTri{v: [3]int{a, b, c}, n: n, d: n.Dot(p[a])})
	for k := 0; k < 3; k++ {
		e := [2]int{h.tris[id].v[k], h.tris[id].v[(k+1)%3]}
		if _, taken := h.edges[e]; taken {
			return fmt.Errorf("hull edge %d-%d walked twice", e[0], e[1])
		}
		h.edges[e] = id
	}
	return nil
}

func (h *hull) dist(t int, i int) float64 {
	tri := h.tris[t]
	return tri.n.Dot(h.points[i]) - tri.d
}

// add extends the hull by point i. Points inside the hull are ignored.
func (h *hull) add(i int) error {
	start, far := -1, h.tol
	for t, tri := range h.tris {
		if tri.dead {
			continue
		}
		if d := h.dist(t, i); d > far {
			start, far = t, d
		}
	}
	if start < 0 {
		return nil
	}

	visible := map[int]bool{start: true}
	order := []int{start}
	for k := 0; k < len(order); k++ {
		tri := h.tris[order[k]]
		for j := 0; j < 3; j++ {
			nb, ok := h.edges[[2]int{tri.v[(j+1)%3], tri.v[j]}]
			if !ok {
				return fmt.Errorf("hull edge %d-%d has no twin", tri.v[j], tri.v[(j+1)%3])
			}
			if !visible[nb] && h.dist(nb, i) > h.tol {
				visible[nb] = true
				order = append(order, nb)
			}
		}
	}

	var horizon [][2]int
	next := make(map[int]int)
	for _, t := range order {
		tri := h.tris[t]
		for j := 0; j < 3; j++ {
			u, w := tri.v[j], tri.v[(j+1)%3]
			if visible[h.edges[[2]int{w, u}]] {
				continue
			}
			if _, dup := next[u]; dup {
				return fmt.Errorf("hull horizon pinches at point %d", u)
			}
			next[u] = w
			horizon = append(horizon, [2]int{u, w})
		}
	}
	if len(horizon) == 0 {
		return fmt.Errorf("point %d sees the whole hull", i)
	}
	steps := 0
	for v := horizon[0][0]; ; {
		v = next[v]
		steps++
		if v == horizon[0][0] {
			break
		}
		if steps > len(horizon) {
			return fmt.Errorf("hull horizon around point %d does not close", i)
		}
	}
	if steps != len(horizon) {
		return fmt.Errorf("hull horizon around point %d is not one loop", i)
	}

	for _, t := range order {
		tri := &h.tris[t]
		tri.dead = true
		for j := 0; j < 3; j++ {
			delete(h.edges, [2]int{tri.v[j], tri.v[(j+1)%3]})
		}
	}
	for _, e := range horizon {
		if err := h.addTri(e[0], e[1], i); err != nil {
			return err
		}
	}
	h.used[i] = true
	return nil
}

// sides merges the triangles into planar sides. Each side takes the plane
// of its largest triangle, so every hull point stays behind it.
func (h *hull) sides() ([]polygon, error) {
	var live []int
	area := make(map[int]float64)
	for t, tri := range h.tris {
		if tri.dead {
			continue
		}
		live = append(live, t)
		p := h.points
		area[t] = p[tri.v[1]].Sub(p[tri.v[0]]).Cross(p[tri.v[2]].Sub(p[tri.v[0]])).Length()
	}
	sort.SliceStable(live, func(a, b int) bool { return area[live[a]] > area[live[b]] })

	group := make(map[int]int, len(live))
	var seeds []int
	for _, t := range live {
		if _, ok := group[t]; ok {
			continue
		}
		gid := len(seeds)
		seeds = append(seeds, t)
		group[t] = gid
		seed := h.tris[t]
		queue := []int{t}
		for k := 0; k < len(queue); k++ {
			tri := h.tris[queue[k]]
			for j := 0; j < 3; j++ {
				nb := h.edges[[2]int{tri.v[(j+1)%3], tri.v[j]}]
				if _, ok := group[nb]; ok || !h.fits(nb, seed) {
					continue
				}
				group[nb] = gid
				queue = append(queue, nb)
			}
		}
	}

	cycles := make([][]int, len(seeds))
	for gid := range seeds {
		next := make(map[int]int)
		start := -1
		for _, t := range live {
			if group[t] != gid {
				continue
			}
			tri := h.tris[t]
			for j := 0; j < 3; j++ {
				u, w := tri.v[j], tri.v[(j+1)%3]
				if group[h.edges[[2]int{w, u}]] == gid {
					continue
				}
				if _, dup := next[u]; dup {
					return nil, fmt.Errorf("hull side %d touches itself at point %d", gid, u)
				}
				next[u] = w
				if start < 0 || u < start {
					start = u
				}
			}
		}
		if start < 0 {
			return nil, fmt.Errorf("hull side %d has no rim", gid)
		}
		cycle := []int{start}
		for v := next[start]; v != start; v = next[v] {
			if len(cycle) > len(next) {
				return nil, fmt.Errorf("hull side %d rim does not close", gid)
			}
			cycle = append(cycle, v)
		}
		if len(cycle) != len(next) {
			return nil, fmt.Errorf("hull side %d has a hole", gid)
		}
		cycles[gid] = cycle
	}

	// a corner shared by only two sides lies on their common edge
	degree := make(map[int]int)
	for _, cycle := range cycles {
		for _, v := range cycle {
			degree[v]++
		}
	}
	polys := make([]polygon, len(cycles))
	for gid, cycle := range cycles {
		var verts []int
		for _, v := range cycle {
			if degree[v] > 2 {
				verts = append(verts, v)
			}
		}
		if len(verts) < 3 {
			return nil, fmt.Errorf("hull side %d collapses to %d corners", gid, len(verts))
		}
		seed := h.tris[seeds[gid]]
		polys[gid] = polygon{verts: verts, boundary: geom.Plane{Normal: seed.n, Distance: seed.d}}
	}
	return polys, nil
}

// fits reports whether triangle t lies within eps of the seed's plane and
// faces the same way. A triangle too thin to have a normal only needs to
// lie on the plane.
func (h *hull) fits(t int, seed hullTri) bool {
	tri := h.tris[t]
	if tri.n != (v3.Vec{}) && tri.n.Dot(seed.n) <= 0 {
		return false
	}
	for _, v := range tri.v {
		if math.Abs(seed.n.Dot(h.points[v])-seed.d) > h.eps {
			return false
		}
	}
	return true
}

// adopt gives each hull side the plane and payload of the side it
// continues. A hull side lying on a candidate's plane takes that plane
// exactly. Any other side keeps its own plane and inherits the payload of
// the unclaimed candidate it shares most corners with. Each candidate is
// handed on at most once; the indices of those no hull side continues are
// returned.
func adopt(points []v3.Vec, sides, candidates []polygon, eps float64) ([]polygon, []int) {
	var corners []int
	seen := make(map[int]bool)
	for _, s := range sides {
		for _, v := range s.verts {
			if !seen[v] {
				seen[v] = true
				corners = append(corners, v)
			}
		}
	}

	taken := make([]bool, len(candidates))
	matched := make([]bool, len(sides))
	out := make([]polygon, len(sides))
	copy(out, sides)
	for si, s := range sides {
		exact, exactDot := -1, 0.0
		for ci, c := range candidates {
			dot := c.boundary.Normal.Dot(s.boundary.Normal)
			if taken[ci] || dot <= exactDot || !holds(points, s.verts, corners, c.boundary, eps) {
				continue
			}
			exact, exactDot = ci, dot
		}
		if exact < 0 {
			continue
		}
		c := candidates[exact]
		out[si].boundary = c.boundary
		out[si].face = c.face
		out[si].seed = c.seed
		taken[exact] = true
		matched[si] = true
	}

	members := make([]map[int]bool, len(candidates))
	for i, c := range candidates {
		members[i] = make(map[int]bool, len(c.verts))
		for _, v := range c.verts {
			members[i][v] = true
		}
	}
	for si, s := range sides {
		if matched[si] {
			continue
		}
		near, shared, nearDot := -1, 0, 0.0
		for ci, c := range candidates {
			dot := c.boundary.Normal.Dot(s.boundary.Normal)
			if taken[ci] || dot <= 0 {
				continue
			}
			n := 0
			for _, v := range s.verts {
				if members[ci][v] {
					n++
				}
			}
			if n > shared || (n == shared && n > 0 && dot > nearDot) {
				near, shared, nearDot = ci, n, dot
			}
		}
		if near >= 0 {
			out[si].face = candidates[near].face
			out[si].seed = candidates[near].seed
			taken[near] = true
		}
	}

	var unused []int
	for ci := range candidates {
		if !taken[ci] {
			unused = append(unused, ci)
		}
	}
	return out, unused
}

// holds reports whether the side's corners lie on plane and no corner of
// the solid lies in front of it.
func holds(points []v3.Vec, verts, corners []int, plane geom.Plane, eps float64) bool {
	for _, v := range verts {
		if math.Abs(plane.DistanceTo(points[v])) > eps {
			return false
		}
	}
	for _, v := range corners {
		if plane.DistanceTo(points[v]) > eps {
			return false
		}
	}
	return true
}

// rebuildHull assembles a checked geometry from the convex hull of the
// points listed in order, carrying planes and payloads over from
// candidates.
func rebuildHull(points []v3.Vec, order []int, candidates []polygon, opts Options) (*Geometry, []int, error) {
	sides, err := convexHull(points, order, opts.Epsilon)
	if err != nil {
		return nil, nil, err
	}
	sides, unused := adopt(points, sides, candidates, opts.Epsilon)
	next, problems := assemble(points, sides, opts)
	if len(problems) == 0 {
		if flat(next) {
			return nil, nil, errFlat
		}
		problems = next.problems()
	}
	if len(problems) > 0 {
		return nil, nil, NonManifoldError{Vertices: next.Vertices(), Problems: problems}
	}
	return next, unused, nil
}

// flat reports whether a linked geometry encloses less than epsilon cubed.
func flat(g *Geometry) bool {
	eps := g.opts.Epsilon
	return g.Volume() <= eps*eps*eps
}
