package brush

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// MoveVertices moves the vertices found at positions by delta and rebuilds
// the solid as the convex hull of the moved corner set. Sides that keep
// their plane keep their payload; sides the move creates or tilts take the
// payload of the side they share most corners with. It returns the new
// positions of the moved vertices in the order given.
//
// A move fails, leaving the geometry unchanged, when a position matches no
// vertex, when a moved vertex would end up inside the solid or on one of
// its edges, or when the solid would lose its volume.
func (g *Geometry) MoveVertices(positions []v3.Vec, delta v3.Vec) ([]v3.Vec, error) {
	next, moved, err := g.moveVertices(positions, delta)
	if err != nil {
		return nil, err
	}
	g.replace(next)
	return moved, nil
}

// CanMoveVertices reports whether MoveVertices would succeed.
func (g *Geometry) CanMoveVertices(positions []v3.Vec, delta v3.Vec) bool {
	_, _, err := g.moveVertices(positions, delta)
	return err == nil
}

func (g *Geometry) moveVertices(positions []v3.Vec, delta v3.Vec) (*Geometry, []v3.Vec, error) {
	if len(positions) == 0 {
		return nil, nil, DegenerateInputError{Index: -1, Reason: "no vertices to move"}
	}
	if delta.Length() < g.opts.Epsilon {
		return nil, nil, DegenerateInputError{Index: -1, Reason: fmt.Sprintf("move by %v is below epsilon", delta)}
	}

	points, polys := g.polygons()
	ids := make([]int, len(positions))
	selected := make([]bool, len(points))
	for i, p := range positions {
		id, ok := g.findVertex(p)
		if !ok {
			return nil, nil, DegenerateInputError{Index: i, Reason: fmt.Sprintf("no vertex at %v", p)}
		}
		ids[i] = int(id)
		selected[id] = true
	}

	// moved vertices win over any vertex they land on
	order := make([]int, 0, len(points))
	for i := range points {
		if selected[i] {
			points[i] = points[i].Add(delta)
			order = append(order, i)
		}
	}
	for i := range points {
		if !selected[i] {
			order = append(order, i)
		}
	}

	next, _, err := rebuildHull(points, order, polys, g.opts)
	if errors.Is(err, errFlat) {
		return nil, nil, DegenerateInputError{Index: -1, Reason: "moved vertices leave no volume"}
	}
	if err != nil {
		return nil, nil, moveError(err, points)
	}

	moved := make([]v3.Vec, len(ids))
	for i, id := range ids {
		if _, ok := next.findVertex(points[id]); !ok {
			return nil, nil, DegenerateInputError{Index: i, Reason: fmt.Sprintf("vertex %v would not stay a corner", positions[i])}
		}
		moved[i] = points[id]
	}
	return next, moved, nil
}

// Snap rounds every vertex to the integer grid. See SnapTo.
func (g *Geometry) Snap() error {
	return g.SnapTo(1)
}

// SnapTo rounds every vertex to the nearest multiple of grid and rebuilds
// the solid from the rounded corners. Corners that round onto each other
// merge. If the rounded corners leave no volume the geometry is unchanged
// and an error is returned.
func (g *Geometry) SnapTo(grid float64) error {
	if grid <= 0 || math.IsNaN(grid) || math.IsInf(grid, 0) {
		return DegenerateInputError{Index: -1, Reason: fmt.Sprintf("grid %g is not positive", grid)}
	}
	points, polys := g.polygons()
	changed := false
	order := make([]int, len(points))
	for i, p := range points {
		r := v3.Vec{
			X: math.Round(p.X/grid) * grid,
			Y: math.Round(p.Y/grid) * grid,
			Z: math.Round(p.Z/grid) * grid,
		}
		if r != p {
			changed = true
		}
		points[i] = r
		order[i] = i
	}
	if !changed {
		return nil
	}

	next, _, err := rebuildHull(points, order, polys, g.opts)
	if errors.Is(err, errFlat) {
		return DegenerateInputError{Index: -1, Reason: fmt.Sprintf("snapping to %g leaves no volume", grid)}
	}
	if err != nil {
		return moveError(err, points)
	}
	g.replace(next)
	return nil
}

// findVertex returns the vertex within epsilon of p, nearest first.
func (g *Geometry) findVertex(p v3.Vec) (VertexID, bool) {
	best, dist := VertexID(-1), g.opts.Epsilon
	for i, v := range g.vertices {
		if d := v.Position.Sub(p).Length(); d <= dist {
			best, dist = VertexID(i), d
		}
	}
	return best, best >= 0
}

func moveError(err error, points []v3.Vec) error {
	var nm NonManifoldError
	if errors.As(err, &nm) {
		return nm
	}
	return NonManifoldError{Vertices: points, Problems: []string{err.Error()}}
}
