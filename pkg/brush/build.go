package brush

import (
	"errors"
	"fmt"

	"github.com/chazu/brushwork/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// Build creates the convex solid bounded by planes using the default
// options. At least four planes are required and together they must
// enclose a bounded, non-empty volume.
func Build(planes []geom.Plane) (*Geometry, error) {
	return BuildFaces(lo.Map(planes, func(p geom.Plane, _ int) Boundary {
		return Boundary{Plane: p}
	}), DefaultOptions())
}

// BuildFaces is Build with face payloads and explicit options. Each side
// of the result carries the payload of the boundary that produced it.
// Boundaries that do not cut the solid built so far are redundant and
// leave no side. The order of faces does not change the result.
func BuildFaces(faces []Boundary, opts Options) (*Geometry, error) {
	opts = opts.withDefaults()
	if len(faces) < 4 {
		return nil, DegenerateInputError{
			Index:  -1,
			Reason: fmt.Sprintf("need at least 4 planes, got %d", len(faces)),
		}
	}
	for i, f := range faces {
		if f.Plane.Normal.Length() < geom.NormalEpsilon {
			return nil, DegenerateInputError{Index: i, Plane: f.Plane, Reason: "near-zero normal"}
		}
	}

	w := opts.WorldSize
	g, err := newBox(sdf.Box3{Min: v3.Vec{X: -w, Y: -w, Z: -w}, Max: v3.Vec{X: w, Y: w, Z: w}}, opts, true)
	if err != nil {
		return nil, err
	}
	for i, f := range faces {
		if _, err := g.AddFace(f); err != nil {
			if errors.Is(err, ErrEmptyResult) {
				return nil, DegenerateInputError{Index: i, Plane: f.Plane, Reason: "planes enclose no volume"}
			}
			return nil, fmt.Errorf("brush: adding plane %d: %w", i, err)
		}
	}
	for _, s := range g.sides {
		if s.seed {
			return nil, DegenerateInputError{Index: -1, Reason: "planes do not enclose a bounded volume"}
		}
	}
	return g, nil
}

// NewBox creates an axis-aligned box directly, without clipping.
func NewBox(box sdf.Box3, opts Options) (*Geometry, error) {
	return newBox(box, opts.withDefaults(), false)
}

func newBox(box sdf.Box3, opts Options, seed bool) (*Geometry, error) {
	size := box.Max.Sub(box.Min)
	if size.X <= opts.Epsilon || size.Y <= opts.Epsilon || size.Z <= opts.Epsilon {
		return nil, DegenerateInputError{
			Index:  -1,
			Reason: fmt.Sprintf("box %v-%v has no volume", box.Min, box.Max),
		}
	}

	// corner i has bit a set when its coordinate on axis a is the maximum
	positions := make([]v3.Vec, 8)
	for i := range positions {
		positions[i] = v3.Vec{
			X: extent(i&1 != 0, box.Min.X, box.Max.X),
			Y: extent(i&2 != 0, box.Min.Y, box.Max.Y),
			Z: extent(i&4 != 0, box.Min.Z, box.Max.Z),
		}
	}
	corner := func(bits [3]int) int { return bits[0] | bits[1]<<1 | bits[2]<<2 }

	var polys []polygon
	for _, a := range []geom.Axis{geom.AxisX, geom.AxisY, geom.AxisZ} {
		for _, hi := range []bool{false, true} {
			u, v := (int(a)+1)%3, (int(a)+2)%3
			plane := geom.Plane{Normal: a.Unit(), Distance: geom.Component(box.Max, a)}
			side := 1
			if !hi {
				u, v = v, u
				plane = geom.Plane{Normal: a.Unit().Neg(), Distance: -geom.Component(box.Min, a)}
				side = 0
			}
			verts := make([]int, 0, 4)
			for _, uv := range [][2]int{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
				var bits [3]int
				bits[a] = side
				bits[u] = uv[0]
				bits[v] = uv[1]
				verts = append(verts, corner(bits))
			}
			polys = append(polys, polygon{verts: verts, boundary: plane, seed: seed})
		}
	}

	g, problems := assemble(positions, polys, opts)
	if len(problems) == 0 {
		problems = g.problems()
	}
	if len(problems) > 0 {
		return nil, NonManifoldError{Vertices: positions, Problems: problems}
	}
	return g, nil
}

func extent(atMax bool, min, max float64) float64 {
	if atMax {
		return max
	}
	return min
}
