// Package brush implements the brush geometry engine: a convex solid kept
// as a half-edge polyhedron in an index arena, and the plane clip that
// creates and edits it.
//
// A Geometry is not safe for concurrent mutation. Distinct geometries are
// independent and may be processed in parallel.
package brush

import (
	"reflect"

	"github.com/chazu/brushwork/pkg/geom"
	"github.com/chazu/brushwork/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// Compile-time interface check.
var _ kernel.Solid = (*Geometry)(nil)

// Geometry is a closed convex polyhedron. It owns its vertices, edges and
// sides; side face payloads are only referenced.
type Geometry struct {
	vertices []Vertex
	edges    []Edge
	sides    []Side
	opts     Options

	// lazily computed, reset by every mutation
	valid  bool
	bounds sdf.Box3
	center v3.Vec
}

// Options returns the tolerances the geometry was built with.
func (g *Geometry) Options() Options { return g.opts }

// Epsilon is shorthand for Options().Epsilon.
func (g *Geometry) Epsilon() float64 { return g.opts.Epsilon }

// NumVertices returns the vertex count.
func (g *Geometry) NumVertices() int { return len(g.vertices) }

// NumEdges returns the edge count.
func (g *Geometry) NumEdges() int { return len(g.edges) }

// NumSides returns the side count.
func (g *Geometry) NumSides() int { return len(g.sides) }

// Vertex returns the vertex with the given id.
func (g *Geometry) Vertex(id VertexID) Vertex { return g.vertices[id] }

// Edge returns the edge with the given id.
func (g *Geometry) Edge(id EdgeID) Edge { return g.edges[id] }

// Side returns a copy of the side with the given id.
func (g *Geometry) Side(id SideID) Side {
	s := g.sides[id]
	s.Edges = append([]EdgeID(nil), s.Edges...)
	return s
}

// Vertices returns a snapshot of all vertex positions in arena order.
func (g *Geometry) Vertices() []v3.Vec {
	return lo.Map(g.vertices, func(v Vertex, _ int) v3.Vec { return v.Position })
}

// Edges returns a snapshot of all edges.
func (g *Geometry) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Sides returns a snapshot of all sides.
func (g *Geometry) Sides() []Side {
	return lo.Map(g.sides, func(_ Side, i int) Side { return g.Side(SideID(i)) })
}

// Planes returns the boundary plane of every side.
func (g *Geometry) Planes() []geom.Plane {
	return lo.Map(g.sides, func(s Side, _ int) geom.Plane { return s.Boundary })
}

// Faces returns the non-nil face payloads of all sides.
func (g *Geometry) Faces() []Face {
	return lo.FilterMap(g.sides, func(s Side, _ int) (Face, bool) { return s.Face, s.Face != nil })
}

// SideOf returns the side carrying face, if any. Payloads are matched by
// ==, so an uncomparable payload such as a slice or map is never found.
func (g *Geometry) SideOf(face Face) (SideID, bool) {
	if face == nil || !reflect.TypeOf(face).Comparable() {
		return NoSide, false
	}
	for i, s := range g.sides {
		if s.Face == face {
			return SideID(i), true
		}
	}
	return NoSide, false
}

// startVertex returns the vertex at which side s enters edge e.
func (g *Geometry) startVertex(e EdgeID, s SideID) VertexID {
	edge := g.edges[e]
	if edge.Right == s {
		return edge.Start
	}
	return edge.End
}

// SideVertices returns the vertex cycle of a side in winding order.
func (g *Geometry) SideVertices(id SideID) []VertexID {
	side := g.sides[id]
	out := make([]VertexID, len(side.Edges))
	for i, e := range side.Edges {
		out[i] = g.startVertex(e, id)
	}
	return out
}

// SidePolygon returns the corner positions of a side in winding order.
func (g *Geometry) SidePolygon(id SideID) []v3.Vec {
	return lo.Map(g.SideVertices(id), func(v VertexID, _ int) v3.Vec { return g.vertices[v].Position })
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (g *Geometry) Bounds() sdf.Box3 {
	g.update()
	return g.bounds
}

// Center returns the mean of the vertex positions.
func (g *Geometry) Center() v3.Vec {
	g.update()
	return g.center
}

// BoundingBox implements kernel.Solid.
func (g *Geometry) BoundingBox() (min, max [3]float64) {
	b := g.Bounds()
	return [3]float64{b.Min.X, b.Min.Y, b.Min.Z}, [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
}

func (g *Geometry) update() {
	if g.valid {
		return
	}
	pts := g.Vertices()
	g.bounds = geom.BoundsOf(pts)
	g.center = geom.Centroid(pts)
	g.valid = true
}

func (g *Geometry) invalidate() {
	g.valid = false
}

// Volume returns the enclosed volume, summing the tetrahedra spanned by the
// center and a fan of every side.
func (g *Geometry) Volume() float64 {
	c := g.Center()
	var vol float64
	for i := range g.sides {
		pts := g.SidePolygon(SideID(i))
		for j := 1; j+1 < len(pts); j++ {
			a := pts[0].Sub(c)
			b := pts[j].Sub(c)
			d := pts[j+1].Sub(c)
			vol += a.Dot(b.Cross(d)) / 6
		}
	}
	return vol
}

// Clone returns a deep copy. Face payloads are shared, not duplicated.
func (g *Geometry) Clone() *Geometry {
	c := &Geometry{
		vertices: append([]Vertex(nil), g.vertices...),
		edges:    append([]Edge(nil), g.edges...),
		sides:    make([]Side, len(g.sides)),
		opts:     g.opts,
		valid:    g.valid,
		bounds:   g.bounds,
		center:   g.center,
	}
	for i, s := range g.sides {
		s.Edges = append([]EdgeID(nil), s.Edges...)
		c.sides[i] = s
	}
	return c
}

// replace swaps in the arena of other. Used to commit a successful edit.
func (g *Geometry) replace(other *Geometry) {
	g.vertices = other.vertices
	g.edges = other.edges
	g.sides = other.sides
	g.invalidate()
}
