// Package engine provides the Lisp evaluation engine for brush scripts.
// It wraps zygomys in a sandboxed environment and produces a Scene of
// named brushes from user source code.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/brushwork/pkg/brush"
	"github.com/chazu/brushwork/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Line    int
	Col     int
	Message string
	Brush   string
}

func (w EvalWarning) String() string {
	if w.Brush != "" {
		return fmt.Sprintf("brush %s: %s", w.Brush, w.Message)
	}
	return w.Message
}

// EvalResult bundles the full output of an evaluation.
type EvalResult struct {
	Scene    *scene.Scene
	Errors   []EvalError
	Warnings []EvalWarning
}

// Options configures an Engine. Zero fields take their defaults.
type Options struct {
	Brush   brush.Options // tolerances for every brush the script creates
	Workers int           // clip-all parallelism, runtime.NumCPU() if zero
	Timeout time.Duration // per-evaluation limit, EvalTimeout if zero
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Timeout <= 0 {
		o.Timeout = EvalTimeout
	}
	return o
}

// Engine wraps the zygomys interpreter for brush script evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	opts       Options
}

// NewEngine creates a new Engine instance.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts.withDefaults()}
}

// Options returns the effective engine options.
func (e *Engine) Options() Options {
	return e.opts
}

// Evaluate is EvaluateContext with a background context.
func (e *Engine) Evaluate(source string) (*EvalResult, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext takes Lisp source code and produces a new Scene.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns a result with a scene and no errors
//   - On parse/eval failure: returns a result with a nil scene and eval errors
//   - On fatal failure (timeout, cancellation, panic, superseded): returns nil + error
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*EvalResult, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		res, err := e.evaluate(ctx, source)
		ch <- evalResult{result: res, err: err}
	}()

	return waitWithTimeout(ctx, ch, e.opts.Timeout, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(ctx context.Context, source string) (*EvalResult, error) {
	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return &EvalResult{Scene: scene.New()}, nil
	}

	// Create a fresh sandboxed zygomys environment.
	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	st := &evalState{ctx: ctx, scene: scene.New(), opts: e.opts}
	registerBuiltins(env, st)

	// Load and compile the source string into bytecode.
	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return &EvalResult{Errors: parseZygomysError(err), Warnings: st.warnings}, nil
	}

	// Execute the compiled bytecode.
	_, err = env.Run()
	if err != nil {
		return &EvalResult{Errors: parseZygomysError(err), Warnings: st.warnings}, nil
	}

	return &EvalResult{Scene: st.scene, Warnings: st.warnings}, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
