package brush

import (
	"github.com/chazu/brushwork/pkg/kernel"
)

// Mesh triangulates every side as a fan around its first corner. Corners
// are duplicated per side so each triangle carries its side's flat normal.
func (g *Geometry) Mesh() *kernel.Mesh {
	m := &kernel.Mesh{}
	for i, s := range g.sides {
		pts := g.SidePolygon(SideID(i))
		base := uint32(m.VertexCount())
		n := s.Boundary.Normal
		for _, p := range pts {
			m.Vertices = append(m.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
		for j := 1; j+1 < len(pts); j++ {
			m.Indices = append(m.Indices, base, base+uint32(j), base+uint32(j+1))
		}
	}
	return m
}
