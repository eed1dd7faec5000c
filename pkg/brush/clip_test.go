package brush

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/chazu/brushwork/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipScenarios(t *testing.T) {
	tests := []struct {
		name    string
		plane   geom.Plane
		counts  [3]int
		bounds  sdf.Box3
		volume  float64
		wantErr error
	}{
		{
			name:   "half cube",
			plane:  geom.Plane{Normal: v3.Vec{X: 1}, Distance: 0.5},
			counts: [3]int{8, 12, 6},
			bounds: sdf.Box3{Max: v3.Vec{X: 0.5, Y: 1, Z: 1}},
			volume: 0.5,
		},
		{
			name:   "plane outside is a no-op",
			plane:  geom.Plane{Normal: v3.Vec{X: 1}, Distance: 2},
			counts: [3]int{8, 12, 6},
			bounds: unitBox(),
			volume: 1,
		},
		{
			name:    "whole cube discarded",
			plane:   geom.Plane{Normal: v3.Vec{X: 1}, Distance: -1},
			wantErr: ErrEmptyResult,
		},
		{
			name:   "diagonal through two edges",
			plane:  geom.Plane{Normal: v3.Vec{X: 1, Y: 1}.Normalize(), Distance: 1 / math.Sqrt2},
			counts: [3]int{6, 9, 5},
			bounds: unitBox(),
			volume: 0.5,
		},
		{
			name:   "corner cut",
			plane:  geom.Plane{Normal: v3.Vec{X: 1, Y: 1, Z: 1}.Normalize(), Distance: 2.5 / math.Sqrt(3)},
			counts: [3]int{10, 15, 7},
			bounds: unitBox(),
			volume: 1 - 1.0/48,
		},
		{
			name:   "plane touching an edge is a no-op",
			plane:  geom.Plane{Normal: v3.Vec{X: 1, Y: 1}.Normalize(), Distance: 2 / math.Sqrt2},
			counts: [3]int{8, 12, 6},
			bounds: unitBox(),
			volume: 1,
		},
		{
			name:   "plane on an existing side is a no-op",
			plane:  geom.Plane{Normal: v3.Vec{Z: 1}, Distance: 1},
			counts: [3]int{8, 12, 6},
			bounds: unitBox(),
			volume: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := exactCube(t)
			err := g.Clip(tt.plane)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, [3]int{8, 12, 6}, counts(g), "failed clip must not modify the geometry")
				assert.InDelta(t, 1.0, g.Volume(), 1e-9)
				return
			}
			require.NoError(t, err)
			requireValid(t, g)
			assert.Equal(t, tt.counts, counts(g))
			assert.True(t, geom.BoxNearlyEqual(tt.bounds, g.Bounds(), 1e-9), "bounds %v", g.Bounds())
			assert.InDelta(t, tt.volume, g.Volume(), 1e-9)
		})
	}
}

func TestClipCreatesOneCapSide(t *testing.T) {
	g := exactCube(t)
	cut := geom.Plane{Normal: v3.Vec{X: 1}, Distance: 0.5}
	require.NoError(t, g.Clip(cut))

	matches := 0
	for _, p := range g.Planes() {
		if p.Equals(cut, 1e-12) {
			matches++
		}
		assert.False(t, p.Equals(geom.Plane{Normal: v3.Vec{X: 1}, Distance: 1}, 1e-12), "old +x side survived")
	}
	assert.Equal(t, 1, matches)
}

func TestClipThenOppositeIsEmpty(t *testing.T) {
	planes := []geom.Plane{
		{Normal: v3.Vec{X: 1}, Distance: 0.5},
		{Normal: v3.Vec{X: 1, Y: 2, Z: -0.5}.Normalize(), Distance: 0.3},
		{Normal: v3.Vec{Z: -1}, Distance: -0.75},
	}
	for _, p := range planes {
		t.Run(p.String(), func(t *testing.T) {
			g := exactCube(t)
			require.NoError(t, g.Clip(p))
			before := counts(g)
			vol := g.Volume()

			err := g.Clip(p.Flip())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEmptyResult)
			assert.False(t, errors.Is(err, ErrNonManifold))
			assert.Equal(t, before, counts(g))
			assert.InDelta(t, vol, g.Volume(), 1e-12)
			requireValid(t, g)
		})
	}
}

func TestClipIsIdempotent(t *testing.T) {
	g := exactCube(t)
	p := geom.Plane{Normal: v3.Vec{X: 1, Y: -1, Z: 0.5}.Normalize(), Distance: 0.2}
	require.NoError(t, g.Clip(p))
	before := counts(g)
	bounds := g.Bounds()

	require.NoError(t, g.Clip(p))
	assert.Equal(t, before, counts(g))
	assert.Equal(t, bounds, g.Bounds())
}

func TestAddFacePayloads(t *testing.T) {
	var faces []Boundary
	for _, p := range unitCubePlanes() {
		faces = append(faces, Boundary{Plane: p, Face: &testFace{name: p.String()}})
	}
	g, err := BuildFaces(faces, DefaultOptions())
	require.NoError(t, err)

	capFace := &testFace{name: "cap"}
	dropped, err := g.AddFace(Boundary{Plane: geom.Plane{Normal: v3.Vec{X: 1}, Distance: 0.5}, Face: capFace})
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Same(t, faces[0].Face, dropped[0])

	// split sides keep their payloads
	for _, f := range faces[1:] {
		_, ok := g.SideOf(f.Face)
		assert.True(t, ok, "payload %v lost", f.Face)
	}
	id, ok := g.SideOf(capFace)
	require.True(t, ok)
	assert.True(t, g.Side(id).Boundary.Equals(geom.Plane{Normal: v3.Vec{X: 1}, Distance: 0.5}, 1e-12))

	// a plane that misses the solid attaches nothing
	dropped, err = g.AddFace(Boundary{Plane: geom.Plane{Normal: v3.Vec{Y: 1}, Distance: 5}, Face: &testFace{name: "miss"}})
	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.Len(t, g.Faces(), 6)
}

func TestAddFaceRejectsZeroNormal(t *testing.T) {
	g := exactCube(t)
	_, err := g.AddFace(Boundary{Plane: geom.Plane{Distance: 1}})
	assert.ErrorIs(t, err, ErrDegenerateInput)
	assert.Equal(t, [3]int{8, 12, 6}, counts(g))
}

func TestClipNormalizesPlane(t *testing.T) {
	g := exactCube(t)
	require.NoError(t, g.Clip(geom.Plane{Normal: v3.Vec{X: 2}, Distance: 1}))
	assert.InDelta(t, 0.5, g.Bounds().Max.X, 1e-12)
}

func TestRandomClipsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g, err := NewBox(sdf.Box3{Min: v3.Vec{X: -32, Y: -32, Z: -32}, Max: v3.Vec{X: 32, Y: 32, Z: 32}}, DefaultOptions())
	require.NoError(t, err)

	for i := 0; i < 40; i++ {
		n := v3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		size := g.Bounds().Max.Sub(g.Bounds().Min)
		offset := v3.Vec{
			X: (rng.Float64() - 0.5) * size.X * 0.5,
			Y: (rng.Float64() - 0.5) * size.Y * 0.5,
			Z: (rng.Float64() - 0.5) * size.Z * 0.5,
		}
		p, err := geom.PlaneFromPoint(g.Center().Add(offset), n)
		require.NoError(t, err)

		before := g.Volume()
		beforeCounts := counts(g)
		err = g.Clip(p)
		if errors.Is(err, ErrEmptyResult) {
			assert.Equal(t, beforeCounts, counts(g))
			continue
		}
		require.NoError(t, err, "clip %d by %s", i, p)
		requireValid(t, g)
		assert.LessOrEqual(t, g.Volume(), before+1e-9, "clip %d grew the volume", i)
		assert.Equal(t, 2, g.NumVertices()-g.NumEdges()+g.NumSides())
	}
}

func TestVolumeStrictlyDecreasesWhenCut(t *testing.T) {
	g := exactCube(t)
	for _, d := range []float64{0.9, 0.7, 0.4} {
		before := g.Volume()
		require.NoError(t, g.Clip(geom.Plane{Normal: v3.Vec{X: 1, Y: 1, Z: 1}.Normalize(), Distance: d}))
		assert.Less(t, g.Volume(), before)
	}
}

// slab builds [0,100]x[0,10]x[0,10] with a named payload on every side.
func slab(t *testing.T) (*Geometry, map[string]Face) {
	t.Helper()
	return namedBox(t, sdf.Box3{Max: v3.Vec{X: 100, Y: 10, Z: 10}})
}

func TestClipThroughSideWithinEpsilon(t *testing.T) {
	g, faces := slab(t)

	// a shallow slope leaves the top side only from x=0 to x=10
	slope, err := geom.PlaneFromPoint(v3.Vec{X: 10, Z: 10}, v3.Vec{X: 0.0012, Z: 1})
	require.NoError(t, err)
	slopeFace := &testFace{name: "slope"}
	_, err = g.AddFace(Boundary{Plane: slope, Face: slopeFace})
	require.NoError(t, err)
	requireValid(t, g)
	require.Equal(t, [3]int{10, 15, 7}, counts(g))
	before := g.Volume()

	// the second cut passes within epsilon of the whole top side but
	// still removes the far end of the slope
	cut, err := geom.PlaneFromPoint(v3.Vec{Z: 10.0095}, v3.Vec{X: 0.0019, Z: 1})
	require.NoError(t, err)
	dropped, err := g.AddFace(Boundary{Plane: cut})
	require.NoError(t, err)
	requireValid(t, g)

	assert.Equal(t, [3]int{10, 14, 6}, counts(g))
	assert.Less(t, g.Volume(), before)
	assert.Greater(t, g.Volume(), 9800.0)
	require.Len(t, dropped, 1)
	assert.Same(t, slopeFace, dropped[0])

	// the cap replaces the top side and carries its payload
	id, ok := g.SideOf(faces["top"])
	require.True(t, ok)
	assert.True(t, g.Side(id).Boundary.Equals(cut, 1e-9), "cap plane %s", g.Side(id).Boundary)
	_, ok = g.SideOf(slopeFace)
	assert.False(t, ok)

	low, ok := g.findVertex(v3.Vec{X: 100, Z: 10.0095 - 0.19})
	require.True(t, ok, "east end of the cap missing")
	assert.InDelta(t, 0, cut.DistanceTo(g.Vertex(low).Position), 1e-9)
}

func TestClipThroughSideEdgeWithinEpsilon(t *testing.T) {
	g, faces := slab(t)
	// only the west edge of the top side lies within epsilon of the cut
	cut, err := geom.PlaneFromPoint(v3.Vec{Z: 10.0095}, v3.Vec{X: 0.0019, Z: 1})
	require.NoError(t, err)
	capFace := &testFace{name: "cap"}
	dropped, err := g.AddFace(Boundary{Plane: cut, Face: capFace})
	require.NoError(t, err)
	requireValid(t, g)
	assert.Equal(t, [3]int{8, 12, 6}, counts(g))
	require.Len(t, dropped, 1)
	assert.Same(t, faces["top"], dropped[0])
	_, ok := g.SideOf(capFace)
	assert.True(t, ok)
}

func TestClipSliverIsEmpty(t *testing.T) {
	g, err := NewBox(sdf.Box3{Max: v3.Vec{X: 1, Y: 1, Z: 0.1}}, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, g.Clip(geom.Plane{Normal: v3.Vec{Y: -0.1, Z: 1}.Normalize(), Distance: 0}))
	requireValid(t, g)
	require.Equal(t, [3]int{6, 9, 5}, counts(g))
	require.InDelta(t, 0.05, g.Volume(), 1e-9)

	// what is left behind y=0.05 is thinner than epsilon
	err = g.Clip(geom.Plane{Normal: v3.Vec{Y: 1}, Distance: 0.05})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.False(t, errors.Is(err, ErrNonManifold), "got %v", err)
	assert.Equal(t, [3]int{6, 9, 5}, counts(g))
	assert.InDelta(t, 0.05, g.Volume(), 1e-9)
	requireValid(t, g)
}

func TestCapCycleReportsBranchingRim(t *testing.T) {
	g := exactCube(t)
	c := newClipper(g, geom.Plane{Normal: v3.Vec{Z: 1}, Distance: 1})
	for i := range c.vmarks {
		c.vmarks[i] = VertexUndecided
	}
	// two triangles meeting at one corner leave a figure-eight rim
	polys := []polygon{{verts: []int{0, 1, 2}}, {verts: []int{0, 3, 4}}}
	_, err := c.capCycle(polys)
	require.Error(t, err)
	var nm NonManifoldError
	require.ErrorAs(t, err, &nm)
	require.Len(t, nm.Problems, 1)
	assert.Contains(t, nm.Problems[0], "cap vertex 0 branches")
}

func TestCapCycleRejectsRimOffPlane(t *testing.T) {
	g := exactCube(t)
	c := newClipper(g, geom.Plane{Normal: v3.Vec{Z: 1}, Distance: 1})
	for i := range c.vmarks {
		c.vmarks[i] = VertexUndecided
	}
	c.vmarks[2] = VertexKeep
	_, err := c.capCycle([]polygon{{verts: []int{0, 1, 2}}})
	require.Error(t, err)
	var nm NonManifoldError
	require.ErrorAs(t, err, &nm)
	assert.Contains(t, nm.Problems[0], "leaves the cutting plane")
}

func TestSettleKeepsTouchingVertex(t *testing.T) {
	g := exactCube(t)
	top, ok := g.findVertex(v3.Vec{X: 1, Y: 1, Z: 1})
	require.True(t, ok)
	c := newClipper(g, geom.Plane{Normal: v3.Vec{X: 1, Y: 1, Z: 1}.Normalize(), Distance: math.Sqrt(3)})
	c.markVertices()
	require.Equal(t, VertexUndecided, c.vmarks[top])
	c.markEdges()
	c.settle()
	assert.Equal(t, VertexKeep, c.vmarks[top])
}

func TestReshapeRebuildsFromCorners(t *testing.T) {
	g := exactCube(t)
	topPlane := geom.Plane{Normal: v3.Vec{Z: 1}, Distance: 1}
	c := newClipper(g, topPlane)
	c.markVertices()

	_, all := g.polygons()
	var polys []polygon
	for _, p := range all {
		if !p.boundary.Equals(topPlane, 1e-12) {
			polys = append(polys, p)
		}
	}
	require.Len(t, polys, 5)

	capFace := &testFace{name: "cap"}
	next, lost, err := c.reshape(polys, capFace, false)
	require.NoError(t, err)
	assert.Empty(t, lost)
	require.NoError(t, next.Check())
	assert.Equal(t, [3]int{8, 12, 6}, counts(next))
	assert.InDelta(t, 1.0, next.Volume(), 1e-12)
	id, ok := next.SideOf(capFace)
	require.True(t, ok)
	assert.Equal(t, topPlane, next.Side(id).Boundary)
}

func TestNearVertexClipsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	box := sdf.Box3{Max: v3.Vec{X: 4, Y: 4, Z: 4}}
	eps := DefaultOptions().Epsilon

	for trial := 0; trial < 25; trial++ {
		g, err := NewBox(box, DefaultOptions())
		require.NoError(t, err)

		for i := 0; i < 12; i++ {
			v := g.Vertex(VertexID(rng.Intn(g.NumVertices()))).Position
			n := v3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
			if rng.Intn(3) == 0 {
				// nearly parallel to an existing side
				side := g.Side(SideID(rng.Intn(g.NumSides())))
				n = side.Boundary.Normal.Add(n.MulScalar(1e-3))
			}
			p, err := geom.PlaneFromPoint(v, n)
			require.NoError(t, err)
			p.Distance += (rng.Float64()*2 - 1) * eps

			before := g.Volume()
			beforeCounts := counts(g)
			err = g.Clip(p)
			if errors.Is(err, ErrEmptyResult) {
				assert.Equal(t, beforeCounts, counts(g))
				continue
			}
			require.NoError(t, err, "trial %d clip %d by %s", trial, i, p)
			require.NoError(t, g.Check(), "trial %d clip %d by %s", trial, i, p)
			assert.Equal(t, 2, g.NumVertices()-g.NumEdges()+g.NumSides())
			// welding may move a corner by up to epsilon
			assert.LessOrEqual(t, g.Volume(), before+eps*96, "trial %d clip %d grew the volume", trial, i)
			for _, q := range g.Vertices() {
				assert.LessOrEqual(t, p.DistanceTo(q), eps+1e-9, "trial %d clip %d left %v in front", trial, i, q)
			}
		}
	}
}
