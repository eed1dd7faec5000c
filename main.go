// Command brushwork evaluates a brush script, validates the resulting scene
// and writes one triangle mesh per brush as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

func main() {
	var (
		script  = flag.String("script", "", "brush script to evaluate (default stdin)")
		kern    = flag.String("kernel", "exact", "geometry kernel: exact, sdfx or manifold (needs -tags=manifold)")
		epsilon = flag.Float64("epsilon", 0, "plane tolerance in map units (0 for the default)")
		cells   = flag.Int("cells", 0, "sdfx marching cubes cells along the longest axis (0 for the default)")
		out     = flag.String("out", "", "mesh JSON output file (default stdout)")
	)
	flag.Parse()

	if err := run(*script, *out, Config{Kernel: *kern, Epsilon: *epsilon, Cells: *cells}); err != nil {
		log.Fatal(err)
	}
}

func run(scriptPath, outPath string, cfg Config) error {
	app, err := NewAppWithConfig(cfg)
	if err != nil {
		return err
	}

	var source []byte
	if scriptPath == "" {
		source, err = io.ReadAll(os.Stdin)
	} else {
		source, err = os.ReadFile(scriptPath)
	}
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	result := app.Evaluate(string(source))
	for _, w := range result.Warnings {
		log.Printf("warning: %s", w.Message)
	}
	for _, e := range result.Errors {
		if e.Line > 0 {
			log.Printf("error: line %d: %s", e.Line, e.Message)
		} else {
			log.Printf("error: %s", e.Message)
		}
	}

	if err := writeResult(outPath, result); err != nil {
		return err
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("evaluation failed with %d errors", len(result.Errors))
	}
	log.Printf("wrote %d meshes", len(result.Meshes))
	return nil
}

// writeResult encodes result to path, or to stdout when path is empty. A
// failed close is reported since it can lose buffered output.
func writeResult(path string, result EvalResult) error {
	if path == "" {
		return encodeResult(os.Stdout, result)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := encodeResult(f, result); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	return nil
}

func encodeResult(w io.Writer, result EvalResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("writing meshes: %w", err)
	}
	return nil
}
