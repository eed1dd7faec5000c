// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library. A brush is the intersection
// of half-spaces, so its signed distance is bounded by the largest plane
// distance; marching cubes turns that into a preview mesh.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/brushwork/pkg/brush"
	"github.com/chazu/brushwork/pkg/geom"
	"github.com/chazu/brushwork/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 200

// polytope is the SDF of a convex intersection of half-spaces.
type polytope struct {
	planes []geom.Plane
	bb     sdf.Box3
}

// Evaluate returns the largest signed plane distance. It is exact inside
// the solid and a lower bound outside it.
func (p *polytope) Evaluate(q v3.Vec) float64 {
	d := math.Inf(-1)
	for _, pl := range p.planes {
		d = math.Max(d, pl.DistanceTo(q))
	}
	return d
}

// BoundingBox returns the bounds of the exact solid.
func (p *polytope) BoundingBox() sdf.Box3 {
	return p.bb
}

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid. The planes are
// kept alongside so the solid can be clipped again.
type sdfxSolid struct {
	s      sdf.SDF3
	planes []geom.Plane
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
	opts  brush.Options
}

// New returns a new SdfxKernel meshing with the given number of marching
// cubes cells along the longest axis. Non-positive values select
// DefaultMeshCells.
func New(cells int, opts brush.Options) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells, opts: opts}
}

// unwrap extracts the underlying solid from a kernel.Solid.
func unwrap(s kernel.Solid) (*sdfxSolid, error) {
	ss, ok := s.(*sdfxSolid)
	if !ok {
		return nil, fmt.Errorf("sdfx: solid %T was not created by this kernel", s)
	}
	return ss, nil
}

// Box creates a box spanning min to max. sdf.Box3D centers the box at the
// origin, so it is translated to the center of the span.
func (k *SdfxKernel) Box(min, max v3.Vec) (kernel.Solid, error) {
	size := max.Sub(min)
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, fmt.Errorf("sdfx: box %v-%v: %w", min, max, brush.ErrDegenerateInput)
	}
	s, err := sdf.Box3D(size, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: box: %w", err)
	}
	m := sdf.Translate3d(min.Add(max).MulScalar(0.5))
	planes := []geom.Plane{
		{Normal: v3.Vec{X: 1}, Distance: max.X},
		{Normal: v3.Vec{X: -1}, Distance: -min.X},
		{Normal: v3.Vec{Y: 1}, Distance: max.Y},
		{Normal: v3.Vec{Y: -1}, Distance: -min.Y},
		{Normal: v3.Vec{Z: 1}, Distance: max.Z},
		{Normal: v3.Vec{Z: -1}, Distance: -min.Z},
	}
	return &sdfxSolid{s: sdf.Transform3D(s, m), planes: planes}, nil
}

// Polyhedron creates the convex solid bounded by planes. The bounding box
// comes from the exact brush engine, which also rejects degenerate sets.
func (k *SdfxKernel) Polyhedron(planes []geom.Plane) (kernel.Solid, error) {
	g, err := k.build(planes)
	if err != nil {
		return nil, fmt.Errorf("sdfx: polyhedron: %w", err)
	}
	return fromGeometry(g), nil
}

// Clip returns the part of s behind p.
func (k *SdfxKernel) Clip(s kernel.Solid, p geom.Plane) (kernel.Solid, error) {
	ss, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	g, err := k.build(ss.planes)
	if err != nil {
		return nil, fmt.Errorf("sdfx: clip: %w", err)
	}
	if err := g.Clip(p); err != nil {
		return nil, fmt.Errorf("sdfx: clip: %w", err)
	}
	return fromGeometry(g), nil
}

func (k *SdfxKernel) build(planes []geom.Plane) (*brush.Geometry, error) {
	faces := make([]brush.Boundary, len(planes))
	for i, p := range planes {
		faces[i] = brush.Boundary{Plane: p}
	}
	return brush.BuildFaces(faces, k.opts)
}

// fromGeometry keeps only the planes that bound g.
func fromGeometry(g *brush.Geometry) *sdfxSolid {
	planes := g.Planes()
	return &sdfxSolid{s: &polytope{planes: planes, bb: g.Bounds()}, planes: planes}
}

// Translate moves a solid by delta.
func (k *SdfxKernel) Translate(s kernel.Solid, delta v3.Vec) (kernel.Solid, error) {
	ss, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	planes := make([]geom.Plane, len(ss.planes))
	for i, p := range ss.planes {
		planes[i] = p.Translate(delta)
	}
	m := sdf.Translate3d(delta)
	return &sdfxSolid{s: sdf.Transform3D(ss.s, m), planes: planes}, nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ss, err := unwrap(s)
	if err != nil {
		return nil, err
	}

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(ss.s, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
