package brush

import (
	"math"
	"testing"

	"github.com/chazu/brushwork/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cubeCorners() []v3.Vec {
	var pts []v3.Vec
	for _, x := range []float64{0, 1} {
		for _, y := range []float64{0, 1} {
			for _, z := range []float64{0, 1} {
				pts = append(pts, v3.Vec{X: x, Y: y, Z: z})
			}
		}
	}
	return pts
}

func indices(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func TestConvexHullCube(t *testing.T) {
	pts := cubeCorners()
	// interior point, edge midpoint and face center add no corners
	pts = append(pts, v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, v3.Vec{X: 0.5}, v3.Vec{X: 1, Y: 0.5, Z: 0.5})

	sides, err := convexHull(pts, indices(len(pts)), geom.DefaultEpsilon)
	require.NoError(t, err)
	require.Len(t, sides, 6)
	for _, s := range sides {
		assert.Len(t, s.verts, 4)
		for _, v := range s.verts {
			assert.Less(t, v, 8, "non-corner point %v on the hull", pts[v])
		}
		for _, p := range pts {
			assert.LessOrEqual(t, s.boundary.DistanceTo(p), 1e-9)
		}
	}

	g, problems := assemble(pts, sides, DefaultOptions())
	require.Empty(t, problems)
	require.NoError(t, g.Check())
	assert.Equal(t, [3]int{8, 12, 6}, counts(g))
	assert.InDelta(t, 1.0, g.Volume(), 1e-12)
}

func TestConvexHullMergesNearlyCoplanarTriangles(t *testing.T) {
	pts := cubeCorners()
	pts[7] = v3.Vec{X: 1, Y: 1, Z: 1.005}

	sides, err := convexHull(pts, indices(len(pts)), geom.DefaultEpsilon)
	require.NoError(t, err)
	assert.Len(t, sides, 6)
	g, problems := assemble(pts, sides, DefaultOptions())
	require.Empty(t, problems)
	require.NoError(t, g.Check())
}

func TestConvexHullSkipsNearDuplicates(t *testing.T) {
	pts := cubeCorners()
	near := v3.Vec{X: 1.004, Y: 1, Z: 1}
	pts = append([]v3.Vec{near}, pts...)

	// listed first, the moved copy wins over the original corner
	sides, err := convexHull(pts, indices(len(pts)), geom.DefaultEpsilon)
	require.NoError(t, err)
	used := make(map[int]bool)
	for _, s := range sides {
		for _, v := range s.verts {
			used[v] = true
		}
	}
	assert.True(t, used[0])
	assert.False(t, used[8], "original corner kept next to its duplicate")
	assert.Len(t, used, 8)
}

func TestConvexHullFlat(t *testing.T) {
	tests := []struct {
		name string
		pts  []v3.Vec
	}{
		{"too few points", cubeCorners()[:3]},
		{"square", []v3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}, {X: 0.5, Y: 0.5, Z: 0.004}}},
		{"line", []v3.Vec{{}, {X: 1}, {X: 2}, {X: 3, Y: 0.001}}},
		{"one point", []v3.Vec{{}, {X: 0.001}, {Y: 0.001}, {Z: 0.001}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convexHull(tt.pts, indices(len(tt.pts)), geom.DefaultEpsilon)
			assert.ErrorIs(t, err, errFlat)
		})
	}
}

func TestConvexHullPrism(t *testing.T) {
	// a triangular prism with a tilted top
	pts := []v3.Vec{
		{}, {X: 2}, {Y: 2},
		{Z: 1}, {X: 2, Z: 1.5}, {Y: 2, Z: 2},
	}
	sides, err := convexHull(pts, indices(len(pts)), geom.DefaultEpsilon)
	require.NoError(t, err)
	g, problems := assemble(pts, sides, DefaultOptions())
	require.Empty(t, problems)
	require.NoError(t, g.Check())
	assert.Equal(t, [3]int{6, 9, 5}, counts(g))
	// base area 2, mean height of the three columns 1.5
	assert.InDelta(t, 3.0, g.Volume(), 1e-9)
}

func TestAdoptCarriesPlanesAndPayloads(t *testing.T) {
	pts := cubeCorners()
	top := &testFace{name: "top"}
	west := &testFace{name: "west"}
	gone := &testFace{name: "gone"}
	candidates := []polygon{
		{verts: []int{1, 3, 7, 5}, boundary: geom.Plane{Normal: v3.Vec{Z: 1}, Distance: 1}, face: top},
		{verts: []int{0, 1, 3, 2}, boundary: geom.Plane{Normal: v3.Vec{X: -1}, Distance: 0}, face: west},
		{boundary: geom.Plane{Normal: v3.Vec{X: 1, Y: 1}.Normalize(), Distance: 1.5}, face: gone},
	}

	// raise one top corner so the top no longer lies on its old plane
	pts[7] = v3.Vec{X: 1, Y: 1, Z: 1.5}
	sides, err := convexHull(pts, indices(len(pts)), geom.DefaultEpsilon)
	require.NoError(t, err)
	out, unused := adopt(pts, sides, candidates, geom.DefaultEpsilon)
	assert.Equal(t, []int{2}, unused)

	var westSides, topSides int
	for _, s := range out {
		switch s.face {
		case west:
			westSides++
			assert.Equal(t, candidates[1].boundary, s.boundary)
		case top:
			topSides++
			assert.Greater(t, s.boundary.Normal.Z, 0.0)
			assert.False(t, s.boundary.Equals(candidates[0].boundary, 1e-6))
		}
	}
	assert.Equal(t, 1, westSides)
	assert.Equal(t, 1, topSides, "a payload is handed on once")

	g, problems := assemble(pts, out, DefaultOptions())
	require.Empty(t, problems)
	require.NoError(t, g.Check())
	assert.Greater(t, g.Volume(), 1.0)
	assert.Less(t, g.Volume(), 1.5)
}

func TestRebuildHullFlat(t *testing.T) {
	pts := []v3.Vec{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}, {X: 0.5, Y: 0.5, Z: 0.02}}
	_, _, err := rebuildHull(pts, indices(len(pts)), nil, DefaultOptions())
	require.NoError(t, err)

	// an apex within epsilon of the base
	pts[4].Z = geom.DefaultEpsilon / 2
	_, _, err = rebuildHull(pts, indices(len(pts)), nil, DefaultOptions())
	assert.ErrorIs(t, err, errFlat)

	// every extent above epsilon, volume below epsilon cubed
	e := 1.5 * geom.DefaultEpsilon
	tiny := []v3.Vec{{}, {X: e}, {Y: e}, {Z: e}}
	require.LessOrEqual(t, e*e*e/6, math.Pow(geom.DefaultEpsilon, 3))
	_, _, err = rebuildHull(tiny, indices(len(tiny)), nil, DefaultOptions())
	assert.ErrorIs(t, err, errFlat)
}
