// Package tessellate walks a scene and produces triangle meshes using a
// geometry kernel. One mesh is produced per brush.
package tessellate

import (
	"fmt"

	"github.com/chazu/brushwork/pkg/kernel"
	"github.com/chazu/brushwork/pkg/scene"
	"github.com/samber/lo"
)

// Tessellate produces one triangle mesh per brush of the scene, in scene
// order, using the provided geometry kernel. Each brush is handed to the
// kernel as its bounding planes, so any kernel can render it. The
// tessellator is read-only and never mutates the scene.
func Tessellate(sc *scene.Scene, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if sc == nil {
		return nil, nil
	}

	meshes := make([]*kernel.Mesh, 0, sc.Len())
	for _, b := range sc.Brushes() {
		mesh, err := tessellateBrush(k, b)
		if err != nil {
			return nil, fmt.Errorf("tessellate: brush %q: %w", b.Name, err)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// TriangleCount sums the triangles of meshes.
func TriangleCount(meshes []*kernel.Mesh) int {
	return lo.SumBy(meshes, func(m *kernel.Mesh) int { return m.TriangleCount() })
}

// tessellateBrush rebuilds a brush in the kernel and meshes it.
func tessellateBrush(k kernel.Kernel, b *scene.Brush) (*kernel.Mesh, error) {
	solid, err := k.Polyhedron(b.Geometry.Planes())
	if err != nil {
		return nil, err
	}
	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("ToMesh failed: %w", err)
	}
	mesh.BrushName = b.Name
	return mesh, nil
}
