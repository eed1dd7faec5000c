package brush

import (
	"github.com/chazu/brushwork/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// VertexID, EdgeID and SideID index a Geometry's arena. They are stable
// between clips only; a clip renumbers everything.
type (
	VertexID int32
	EdgeID   int32
	SideID   int32
)

// NoSide marks an edge side that is not linked yet. It never appears in a
// finished geometry.
const NoSide SideID = -1

// Face is the externally owned brush face a Side refers to (texture name,
// offsets, rotation, scale). The geometry copies the reference around but
// never inspects or mutates it. SideOf finds payloads with ==, so pointers
// work best; slices, maps and funcs are carried but can never be looked up.
type Face interface{}

// Vertex is a corner of the polyhedron.
type Vertex struct {
	Position v3.Vec
}

// Edge joins two vertices and separates two sides. The Right side walks
// the edge from Start to End, the Left side from End to Start.
type Edge struct {
	Start, End  VertexID
	Left, Right SideID
}

// Side is one planar face of the polyhedron: a counter-clockwise (seen from
// outside) cycle of edges on Boundary.
type Side struct {
	Edges    []EdgeID
	Boundary geom.Plane
	Face     Face

	// seed sides come from the world box used by BuildFaces
	seed bool
}

// Boundary pairs a plane with the face payload that should own the side it
// produces.
type Boundary struct {
	Plane geom.Plane
	Face  Face
}

// Hit is the result of a successful Pick.
type Hit struct {
	Side     SideID
	Face     Face
	Distance float64
	Point    v3.Vec
}

// VertexMark classifies a vertex during one clip.
type VertexMark int

const (
	VertexUnknown VertexMark = iota
	VertexKeep
	VertexDrop
	VertexUndecided
	VertexNew
)

func (m VertexMark) String() string {
	switch m {
	case VertexKeep:
		return "keep"
	case VertexDrop:
		return "drop"
	case VertexUndecided:
		return "undecided"
	case VertexNew:
		return "new"
	default:
		return "unknown"
	}
}

// EdgeMark classifies an edge during one clip.
type EdgeMark int

const (
	EdgeUnknown EdgeMark = iota
	EdgeKeep
	EdgeDrop
	EdgeSplit
	EdgeUndecided
	EdgeNew
)

func (m EdgeMark) String() string {
	switch m {
	case EdgeKeep:
		return "keep"
	case EdgeDrop:
		return "drop"
	case EdgeSplit:
		return "split"
	case EdgeUndecided:
		return "undecided"
	case EdgeNew:
		return "new"
	default:
		return "unknown"
	}
}

// SideMark classifies a side during one clip.
type SideMark int

const (
	SideUnknown SideMark = iota
	SideKeep
	SideDrop
	SideSplit
	SideNew
)

func (m SideMark) String() string {
	switch m {
	case SideKeep:
		return "keep"
	case SideDrop:
		return "drop"
	case SideSplit:
		return "split"
	case SideNew:
		return "new"
	default:
		return "unknown"
	}
}
