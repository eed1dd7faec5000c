package tessellate_test

import (
	"errors"
	"testing"

	"github.com/chazu/brushwork/pkg/brush"
	"github.com/chazu/brushwork/pkg/geom"
	"github.com/chazu/brushwork/pkg/kernel"
	"github.com/chazu/brushwork/pkg/kernel/exact"
	"github.com/chazu/brushwork/pkg/kernel/sdfx"
	"github.com/chazu/brushwork/pkg/scene"
	"github.com/chazu/brushwork/pkg/tessellate"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// newKernel returns a fresh exact kernel for testing.
func newKernel() kernel.Kernel {
	return exact.New(brush.DefaultOptions())
}

// makeBox adds an axis-aligned box brush to sc.
func makeBox(t *testing.T, sc *scene.Scene, name string, min, max v3.Vec) *scene.Brush {
	t.Helper()
	g, err := brush.NewBox(sdf.Box3{Min: min, Max: max}, brush.DefaultOptions())
	if err != nil {
		t.Fatalf("NewBox(%s) failed: %v", name, err)
	}
	b := &scene.Brush{Name: name, Geometry: g}
	if err := sc.Add(b); err != nil {
		t.Fatalf("Add(%s) failed: %v", name, err)
	}
	return b
}

func TestNilScene(t *testing.T) {
	meshes, err := tessellate.Tessellate(nil, newKernel())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meshes != nil {
		t.Fatalf("expected nil meshes, got %d", len(meshes))
	}
}

func TestEmptyScene(t *testing.T) {
	meshes, err := tessellate.Tessellate(scene.New(), newKernel())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(meshes) != 0 {
		t.Fatalf("expected 0 meshes, got %d", len(meshes))
	}
}

func TestSingleBox(t *testing.T) {
	sc := scene.New()
	makeBox(t, sc, "floor", v3.Vec{}, v3.Vec{X: 64, Y: 64, Z: 8})

	meshes, err := tessellate.Tessellate(sc, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if m.BrushName != "floor" {
		t.Errorf("BrushName = %q, want %q", m.BrushName, "floor")
	}
	if m.TriangleCount() != 12 {
		t.Errorf("TriangleCount = %d, want 12", m.TriangleCount())
	}
	min, max := m.Bounds()
	for i, want := range [3]float64{64, 64, 8} {
		if min[i] < -1e-3 || min[i] > 1e-3 {
			t.Errorf("min[%d] = %g, want 0", i, min[i])
		}
		if max[i] < want-1e-3 || max[i] > want+1e-3 {
			t.Errorf("max[%d] = %g, want %g", i, max[i], want)
		}
	}
}

func TestClippedBrush(t *testing.T) {
	sc := scene.New()
	b := makeBox(t, sc, "wedge", v3.Vec{}, v3.Vec{X: 8, Y: 8, Z: 8})
	if err := b.Geometry.Clip(geom.Plane{Normal: v3.Vec{X: 1, Z: 1}.Normalize(), Distance: 8 / 1.4142135623730951}); err != nil {
		t.Fatalf("Clip failed: %v", err)
	}

	meshes, err := tessellate.Tessellate(sc, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	// two triangles, two rectangles, one rectangular cap
	if got := meshes[0].TriangleCount(); got != 8 {
		t.Errorf("TriangleCount = %d, want 8", got)
	}
}

func TestMeshOrderFollowsScene(t *testing.T) {
	sc := scene.New()
	names := []string{"c", "a", "b"}
	for i, n := range names {
		x := float64(i) * 10
		makeBox(t, sc, n, v3.Vec{X: x}, v3.Vec{X: x + 4, Y: 4, Z: 4})
	}
	meshes, err := tessellate.Tessellate(sc, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	for i, m := range meshes {
		if m.BrushName != names[i] {
			t.Errorf("mesh %d BrushName = %q, want %q", i, m.BrushName, names[i])
		}
	}
	if got := tessellate.TriangleCount(meshes); got != 36 {
		t.Errorf("TriangleCount = %d, want 36", got)
	}
}

func TestSdfxKernel(t *testing.T) {
	sc := scene.New()
	makeBox(t, sc, "block", v3.Vec{}, v3.Vec{X: 10, Y: 10, Z: 10})

	meshes, err := tessellate.Tessellate(sc, sdfx.New(20, brush.DefaultOptions()))
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 || meshes[0].IsEmpty() {
		t.Fatal("expected one non-empty mesh")
	}
	if meshes[0].BrushName != "block" {
		t.Errorf("BrushName = %q, want %q", meshes[0].BrushName, "block")
	}
}

// failingKernel rejects every polyhedron.
type failingKernel struct{ kernel.Kernel }

func (failingKernel) Polyhedron([]geom.Plane) (kernel.Solid, error) {
	return nil, errors.New("boom")
}

func TestKernelErrorNamesBrush(t *testing.T) {
	sc := scene.New()
	makeBox(t, sc, "bad", v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1})
	_, err := tessellate.Tessellate(sc, failingKernel{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != `tessellate: brush "bad": boom` {
		t.Errorf("error = %q", got)
	}
}
