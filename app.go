package main

import (
	"context"
	"fmt"
	"log"

	"github.com/chazu/brushwork/pkg/brush"
	"github.com/chazu/brushwork/pkg/engine"
	"github.com/chazu/brushwork/pkg/kernel"
	"github.com/chazu/brushwork/pkg/kernel/exact"
	"github.com/chazu/brushwork/pkg/kernel/manifold"
	"github.com/chazu/brushwork/pkg/kernel/sdfx"
	"github.com/chazu/brushwork/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to brushes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// Config selects the kernel and tolerances of an App.
type Config struct {
	Kernel  string  // "exact", "sdfx" or "manifold"
	Epsilon float64 // brush.Options.Epsilon, default if zero
	Cells   int     // sdfx marching cubes resolution, default if zero
}

// App evaluates brush scripts and turns the resulting scene into meshes.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
}

// MeshData is the JSON-serializable mesh format written by the CLI.
type MeshData struct {
	Vertices  []float32 `json:"vertices"`
	Normals   []float32 `json:"normals"`
	Indices   []uint32  `json:"indices"`
	BrushName string    `json:"brushName"`
	Color     string    `json:"color"`
	Volume    float64   `json:"volume"`
}

// EvalErrorData is a JSON-serializable eval error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of evaluating one script.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates an App with the exact kernel and default tolerances.
func NewApp() *App {
	app, err := NewAppWithConfig(Config{})
	if err != nil {
		// The default configuration is always valid.
		panic(err)
	}
	return app
}

// NewAppWithConfig creates an App for cfg.
func NewAppWithConfig(cfg Config) (*App, error) {
	opts := brush.DefaultOptions()
	if cfg.Epsilon < 0 {
		return nil, fmt.Errorf("app: epsilon must not be negative, got %g", cfg.Epsilon)
	}
	if cfg.Epsilon > 0 {
		opts.Epsilon = cfg.Epsilon
	}

	var k kernel.Kernel
	switch cfg.Kernel {
	case "", "exact":
		k = exact.New(opts)
	case "sdfx":
		cells := cfg.Cells
		if cells <= 0 {
			cells = sdfx.DefaultMeshCells
		}
		k = sdfx.New(cells, opts)
	case "manifold":
		var err error
		if k, err = manifold.New(opts); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	default:
		return nil, fmt.Errorf("app: unknown kernel %q, want exact, sdfx or manifold", cfg.Kernel)
	}

	return &App{
		engine: engine.NewEngine(engine.Options{Brush: opts}),
		kernel: k,
	}, nil
}

// Evaluate is EvaluateContext with a background context.
func (a *App) Evaluate(source string) EvalResult {
	return a.EvaluateContext(context.Background(), source)
}

// EvaluateContext takes brush script source and returns mesh data + errors.
func (a *App) EvaluateContext(ctx context.Context, source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the script into a scene of brushes.
	res, err := a.engine.EvaluateContext(ctx, source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{
			Line:    w.Line,
			Col:     w.Col,
			Message: w.String(),
		})
	}

	// Step 2: Convert eval errors to the output format.
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 3: Validate the scene. Structural defects stop the pipeline.
	v := res.Scene.Validate()
	for _, w := range v.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Error()})
	}
	if !v.OK() {
		for _, e := range v.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Message: e.Error()})
		}
		return result
	}

	// Step 4: Tessellate the scene into triangle meshes.
	meshes, err := tessellate.Tessellate(res.Scene, a.kernel)
	if err != nil {
		log.Printf("Tessellate error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "tessellation failed: " + err.Error(),
		})
		return result
	}

	// Step 5: Convert kernel meshes to the output format.
	for i, m := range meshes {
		var volume float64
		if b := res.Scene.Get(m.BrushName); b != nil {
			volume = b.Geometry.Volume()
		}
		result.Meshes = append(result.Meshes, MeshData{
			Vertices:  m.Vertices,
			Normals:   m.Normals,
			Indices:   m.Indices,
			BrushName: m.BrushName,
			Color:     colorPalette[i%len(colorPalette)],
			Volume:    volume,
		})
	}

	return result
}
