package sdfx

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/brushwork/pkg/brush"
	"github.com/chazu/brushwork/pkg/geom"
	"github.com/chazu/brushwork/pkg/kernel"
	"github.com/chazu/brushwork/pkg/kernel/exact"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const testCells = 40

func near(a, b [3]float64, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func TestBox(t *testing.T) {
	k := New(testCells, brush.DefaultOptions())
	box, err := k.Box(v3.Vec{}, v3.Vec{X: 100, Y: 50, Z: 25})
	if err != nil {
		t.Fatalf("Box failed: %v", err)
	}
	min, max := box.BoundingBox()
	if !near(min, [3]float64{0, 0, 0}, 1e-9) || !near(max, [3]float64{100, 50, 25}, 1e-9) {
		t.Fatalf("bounds = %v %v, want origin to (100,50,25)", min, max)
	}
	mesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if triCount == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	// Verify vertex and index array sizes are consistent.
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
}

func TestBoxRejectsEmptySpan(t *testing.T) {
	k := New(testCells, brush.DefaultOptions())
	if _, err := k.Box(v3.Vec{X: 1}, v3.Vec{Y: 1, Z: 1}); !errors.Is(err, brush.ErrDegenerateInput) {
		t.Fatalf("Box error = %v, want ErrDegenerateInput", err)
	}
}

func TestPolytopeDistance(t *testing.T) {
	p := &polytope{planes: []geom.Plane{
		{Normal: v3.Vec{X: 1}, Distance: 1},
		{Normal: v3.Vec{X: -1}, Distance: 1},
	}}
	tests := []struct {
		name string
		at   v3.Vec
		want float64
	}{
		{"center", v3.Vec{}, -1},
		{"on surface", v3.Vec{X: 1}, 0},
		{"outside", v3.Vec{X: -3}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Evaluate(tt.at); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Evaluate(%v) = %g, want %g", tt.at, got, tt.want)
			}
		})
	}
}

// The preview kernel must agree with the exact kernel on bounds.
func TestClipMatchesExactKernel(t *testing.T) {
	kernels := map[string]kernel.Kernel{
		"sdfx":  New(testCells, brush.DefaultOptions()),
		"exact": exact.New(brush.DefaultOptions()),
	}
	cuts := []geom.Plane{
		{Normal: v3.Vec{X: 1}, Distance: 6},
		{Normal: v3.Vec{X: 1, Y: 1, Z: 1}.Normalize(), Distance: 12},
		{Normal: v3.Vec{Z: -1}, Distance: -2},
	}

	bounds := make(map[string][2][3]float64)
	for name, k := range kernels {
		s, err := k.Box(v3.Vec{}, v3.Vec{X: 10, Y: 10, Z: 10})
		if err != nil {
			t.Fatalf("%s: Box failed: %v", name, err)
		}
		for _, p := range cuts {
			if s, err = k.Clip(s, p); err != nil {
				t.Fatalf("%s: Clip(%s) failed: %v", name, p, err)
			}
		}
		if s, err = k.Translate(s, v3.Vec{Y: 5}); err != nil {
			t.Fatalf("%s: Translate failed: %v", name, err)
		}
		min, max := s.BoundingBox()
		bounds[name] = [2][3]float64{min, max}
	}

	got, want := bounds["sdfx"], bounds["exact"]
	if !near(got[0], want[0], 1e-6) || !near(got[1], want[1], 1e-6) {
		t.Fatalf("sdfx bounds %v, exact bounds %v", got, want)
	}
}

func TestClipToNothing(t *testing.T) {
	k := New(testCells, brush.DefaultOptions())
	box, err := k.Box(v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	_, err = k.Clip(box, geom.Plane{Normal: v3.Vec{X: 1}, Distance: -5})
	if !errors.Is(err, brush.ErrEmptyResult) {
		t.Fatalf("Clip error = %v, want ErrEmptyResult", err)
	}
}

func TestClippedMeshStaysInBounds(t *testing.T) {
	k := New(testCells, brush.DefaultOptions())
	s, err := k.Polyhedron([]geom.Plane{
		{Normal: v3.Vec{X: 1}, Distance: 4},
		{Normal: v3.Vec{X: -1}, Distance: 4},
		{Normal: v3.Vec{Y: 1}, Distance: 4},
		{Normal: v3.Vec{Y: -1}, Distance: 4},
		{Normal: v3.Vec{Z: 1}, Distance: 4},
		{Normal: v3.Vec{Z: -1}, Distance: 4},
		{Normal: v3.Vec{X: 1, Y: 1}.Normalize(), Distance: 3},
	})
	if err != nil {
		t.Fatalf("Polyhedron failed: %v", err)
	}
	mesh, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	// marching cubes may overshoot the exact surface by up to one cell
	slack := 8.0 / testCells * 2
	min, max := mesh.Bounds()
	for i := 0; i < 3; i++ {
		if min[i] < -4-slack || max[i] > 4+slack {
			t.Fatalf("mesh bounds %v %v exceed the solid", min, max)
		}
	}
	t.Logf("clipped cube triangle count: %d", mesh.TriangleCount())
}

func TestForeignSolid(t *testing.T) {
	k := New(testCells, brush.DefaultOptions())
	g, err := brush.NewBox(brushBox(), brush.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.ToMesh(g); err == nil {
		t.Fatal("expected error for a solid from another kernel")
	}
}

func brushBox() sdf.Box3 {
	return sdf.Box3{Max: v3.Vec{X: 1, Y: 1, Z: 1}}
}
