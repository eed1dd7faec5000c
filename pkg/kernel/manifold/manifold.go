//go:build manifold

// Package manifold provides a CGo-based brush kernel binding to the
// Manifold library (https://github.com/elalish/manifold). Brushes are built
// by trimming a world-sized cube with each bounding plane, which Manifold
// does robustly for any plane order.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/chazu/brushwork/pkg/brush"
	"github.com/chazu/brushwork/pkg/geom"
	"github.com/chazu/brushwork/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Solid = (*manifoldSolid)(nil)

// manifoldSolid wraps a C ManifoldManifold pointer and implements kernel.Solid.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

// BoundingBox returns the axis-aligned bounding box of the solid.
func (s *manifoldSolid) BoundingBox() (min, max [3]float64) {
	alloc := C.manifold_alloc_box()
	bbox := C.manifold_bounding_box(alloc, s.ptr)
	defer C.manifold_delete_box(bbox)

	min[0] = float64(C.manifold_box_min_x(bbox))
	min[1] = float64(C.manifold_box_min_y(bbox))
	min[2] = float64(C.manifold_box_min_z(bbox))
	max[0] = float64(C.manifold_box_max_x(bbox))
	max[1] = float64(C.manifold_box_max_y(bbox))
	max[2] = float64(C.manifold_box_max_z(bbox))
	return min, max
}

func (s *manifoldSolid) empty() bool {
	return C.manifold_is_empty(s.ptr) != 0
}

// newSolid wraps a C ManifoldManifold pointer with Go-side finalizer
// for automatic memory management.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

func unwrap(s kernel.Solid) (*manifoldSolid, error) {
	ms, ok := s.(*manifoldSolid)
	if !ok {
		return nil, fmt.Errorf("manifold: solid %T was not created by this kernel", s)
	}
	return ms, nil
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct {
	opts brush.Options
}

// New creates a new ManifoldKernel. The world size of opts bounds every
// polyhedron it builds.
func New(opts brush.Options) (kernel.Kernel, error) {
	if opts.WorldSize <= 0 || opts.Epsilon <= 0 {
		opts = brush.DefaultOptions()
	}
	return &ManifoldKernel{opts: opts}, nil
}

// cube creates an axis-aligned box spanning min to max.
func cube(min, max v3.Vec) *manifoldSolid {
	size := max.Sub(min)
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cube(alloc,
		C.double(size.X), C.double(size.Y), C.double(size.Z),
		C.int(0), // corner at the origin
	)
	moved := C.manifold_translate(C.manifold_alloc_manifold(), ptr,
		C.double(min.X), C.double(min.Y), C.double(min.Z),
	)
	C.manifold_delete_manifold(ptr)
	return newSolid(moved)
}

// trim keeps the part of s behind p. Manifold keeps the half the normal
// points into, so the plane is passed flipped.
func trim(s *manifoldSolid, p geom.Plane) *manifoldSolid {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_trim_by_plane(alloc, s.ptr,
		C.double(-p.Normal.X), C.double(-p.Normal.Y), C.double(-p.Normal.Z),
		C.double(-p.Distance),
	)
	return newSolid(ptr)
}

// Box creates an axis-aligned box spanning min to max.
func (k *ManifoldKernel) Box(min, max v3.Vec) (kernel.Solid, error) {
	size := max.Sub(min)
	if size.X <= k.opts.Epsilon || size.Y <= k.opts.Epsilon || size.Z <= k.opts.Epsilon {
		return nil, fmt.Errorf("manifold: box: %w", brush.DegenerateInputError{
			Index:  -1,
			Reason: fmt.Sprintf("box %v-%v has no volume", min, max),
		})
	}
	return cube(min, max), nil
}

// Polyhedron creates the convex solid bounded by planes by trimming a
// world-sized cube once per plane.
func (k *ManifoldKernel) Polyhedron(planes []geom.Plane) (kernel.Solid, error) {
	if len(planes) < 4 {
		return nil, fmt.Errorf("manifold: polyhedron: %w", brush.DegenerateInputError{
			Index:  -1,
			Reason: fmt.Sprintf("need at least 4 planes, got %d", len(planes)),
		})
	}
	w := k.opts.WorldSize
	s := cube(v3.Vec{X: -w, Y: -w, Z: -w}, v3.Vec{X: w, Y: w, Z: w})
	for i, p := range planes {
		np, err := geom.NewPlane(p.Normal, p.Distance)
		if err != nil {
			return nil, fmt.Errorf("manifold: polyhedron: %w", brush.DegenerateInputError{Index: i, Plane: p, Reason: err.Error()})
		}
		s = trim(s, np)
		if s.empty() {
			return nil, fmt.Errorf("manifold: polyhedron: %w", brush.DegenerateInputError{Index: i, Plane: p, Reason: "planes enclose no volume"})
		}
	}
	min, max := s.BoundingBox()
	for a := 0; a < 3; a++ {
		if min[a] <= -w+k.opts.Epsilon || max[a] >= w-k.opts.Epsilon {
			return nil, fmt.Errorf("manifold: polyhedron: %w", brush.DegenerateInputError{Index: -1, Reason: "planes do not enclose a bounded volume"})
		}
	}
	return s, nil
}

// Clip returns the part of s behind p.
func (k *ManifoldKernel) Clip(s kernel.Solid, p geom.Plane) (kernel.Solid, error) {
	ms, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	np, err := geom.NewPlane(p.Normal, p.Distance)
	if err != nil {
		return nil, fmt.Errorf("manifold: clip: %w", brush.DegenerateInputError{Index: -1, Plane: p, Reason: err.Error()})
	}
	out := trim(ms, np)
	if out.empty() {
		return nil, fmt.Errorf("manifold: clip: %w", brush.EmptyResultError{Plane: np})
	}
	return out, nil
}

// Translate moves the solid by delta.
func (k *ManifoldKernel) Translate(s kernel.Solid, delta v3.Vec) (kernel.Solid, error) {
	ms, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_translate(alloc, ms.ptr,
		C.double(delta.X), C.double(delta.Y), C.double(delta.Z),
	)
	return newSolid(ptr), nil
}

// ToMesh extracts a triangle mesh from the solid using Manifold's MeshGL
// format. Vertex positions and normals are interleaved in MeshGL; this
// method separates them into the kernel.Mesh flat-array layout.
func (k *ManifoldKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ms, err := unwrap(s)
	if err != nil {
		return nil, err
	}

	meshAlloc := C.manifold_alloc_meshgl()
	meshGL := C.manifold_get_meshgl(meshAlloc, ms.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))

	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{}, nil
	}

	// The first 3 properties are always position (x, y, z). Normals follow
	// at indices 3, 4, 5 when present.
	numProp := int(C.manifold_meshgl_num_prop(meshGL))

	propData := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties(
		(*C.float)(unsafe.Pointer(&propData[0])),
		meshGL,
	)

	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts(
		(*C.uint32_t)(unsafe.Pointer(&indices[0])),
		meshGL,
	)

	vertices := make([]float32, numVert*3)
	var normals []float32
	hasNormals := numProp >= 6
	if hasNormals {
		normals = make([]float32, numVert*3)
	}
	for i := 0; i < numVert; i++ {
		base := i * numProp
		copy(vertices[i*3:i*3+3], propData[base:base+3])
		if hasNormals {
			copy(normals[i*3:i*3+3], propData[base+3:base+6])
		}
	}
	if !hasNormals {
		normals = computeNormals(vertices, indices)
	}

	mesh := &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}
	if mesh.VertexCount() != numVert {
		return nil, fmt.Errorf("manifold: vertex count mismatch: got %d, expected %d",
			mesh.VertexCount(), numVert)
	}
	return mesh, nil
}

// computeNormals generates per-vertex normals by averaging the face normals
// of all triangles incident on each vertex. This is a fallback when MeshGL
// does not include normals in the vertex properties.
func computeNormals(vertices []float32, indices []uint32) []float32 {
	normals := make([]float32, len(vertices))
	at := func(i uint32) v3.Vec {
		return v3.Vec{X: float64(vertices[i*3]), Y: float64(vertices[i*3+1]), Z: float64(vertices[i*3+2])}
	}
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		a := at(i0)
		n := at(i1).Sub(a).Cross(at(i2).Sub(a))
		for _, idx := range []uint32{i0, i1, i2} {
			normals[idx*3+0] += float32(n.X)
			normals[idx*3+1] += float32(n.Y)
			normals[idx*3+2] += float32(n.Z)
		}
	}
	for i := 0; i+2 < len(normals); i += 3 {
		x, y, z := float64(normals[i]), float64(normals[i+1]), float64(normals[i+2])
		if l := math.Sqrt(x*x + y*y + z*z); l > 1e-12 {
			normals[i] = float32(x / l)
			normals[i+1] = float32(y / l)
			normals[i+2] = float32(z / l)
		}
	}
	return normals
}
