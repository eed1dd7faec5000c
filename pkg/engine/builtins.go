package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/chazu/brushwork/pkg/brush"
	"github.com/chazu/brushwork/pkg/geom"
	"github.com/chazu/brushwork/pkg/scene"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms brush script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: clip-all -> clip_all
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// Texture is the face payload scripts attach to brush sides.
type Texture struct {
	Name string `json:"name"`
}

// sexpVec3 wraps a v3.Vec.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpPlane wraps a geom.Plane so it can be passed between builtins.
type sexpPlane struct {
	plane geom.Plane
}

func (p *sexpPlane) SexpString(ps *zygo.PrintState) string {
	n := p.plane.Normal
	return fmt.Sprintf("(plane :normal (vec3 %g %g %g) :distance %g)", n.X, n.Y, n.Z, p.plane.Distance)
}
func (p *sexpPlane) Type() *zygo.RegisteredType { return nil }

// sexpFace wraps a plane with the texture its side should carry.
type sexpFace struct {
	boundary brush.Boundary
}

func (f *sexpFace) SexpString(ps *zygo.PrintState) string {
	name := ""
	if t, ok := f.boundary.Face.(*Texture); ok {
		name = t.Name
	}
	return fmt.Sprintf("(face %s :texture %q)", f.boundary.Plane, name)
}
func (f *sexpFace) Type() *zygo.RegisteredType { return nil }

// sexpBrushRef names a brush of the scene being built.
type sexpBrushRef struct {
	name string
}

func (b *sexpBrushRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(brush-ref %q)", b.name)
}
func (b *sexpBrushRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
// A keyword consumes the single argument after it.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value, treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toAxis converts a keyword or string to a geom.Axis.
func toAxis(s zygo.Sexp) (geom.Axis, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
	}
	switch name {
	case "x":
		return geom.AxisX, nil
	case "y":
		return geom.AxisY, nil
	case "z":
		return geom.AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis %q, expected x, y, or z", name)
}

// toVec3 extracts a v3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toPlane extracts a geom.Plane from a sexpPlane or the plane of a sexpFace.
func toPlane(s zygo.Sexp) (geom.Plane, error) {
	switch v := s.(type) {
	case *sexpPlane:
		return v.plane, nil
	case *sexpFace:
		return v.boundary.Plane, nil
	}
	return geom.Plane{}, fmt.Errorf("expected plane, got %T (%s)", s, s.SexpString(nil))
}

// toBoundary accepts a plane or a face.
func toBoundary(s zygo.Sexp) (brush.Boundary, error) {
	switch v := s.(type) {
	case *sexpPlane:
		return brush.Boundary{Plane: v.plane}, nil
	case *sexpFace:
		return v.boundary, nil
	}
	return brush.Boundary{}, fmt.Errorf("expected plane or face, got %T (%s)", s, s.SexpString(nil))
}

// toBrushName accepts a brush reference or a plain brush name.
func toBrushName(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *sexpBrushRef:
		return v.name, nil
	case *zygo.SexpStr:
		if !strings.HasPrefix(v.S, kwPrefix) {
			return v.S, nil
		}
	}
	return "", fmt.Errorf("expected brush reference, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// flatten expands list and array arguments in place, so builtins taking
// a variable number of planes also accept them as one list.
func flatten(args []zygo.Sexp) []zygo.Sexp {
	var out []zygo.Sexp
	for _, a := range args {
		switch a.(type) {
		case *zygo.SexpPair, *zygo.SexpArray:
			if items, err := sexpListToSlice(a); err == nil {
				out = append(out, items...)
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// ---------------------------------------------------------------------------
// Evaluation state
// ---------------------------------------------------------------------------

// evalState is what the builtins of one evaluation share.
type evalState struct {
	ctx      context.Context
	scene    *scene.Scene
	opts     Options
	warnings []EvalWarning
}

func (st *evalState) warn(brushName, format string, args ...interface{}) {
	st.warnings = append(st.warnings, EvalWarning{
		Message: fmt.Sprintf(format, args...),
		Brush:   brushName,
	})
}

// lookup resolves a brush argument against the scene.
func (st *evalState) lookup(s zygo.Sexp) (*scene.Brush, error) {
	name, err := toBrushName(s)
	if err != nil {
		return nil, err
	}
	return st.scene.Lookup(name)
}

func (st *evalState) add(name string, g *brush.Geometry) (zygo.Sexp, error) {
	if err := st.scene.Add(&scene.Brush{Name: name, Geometry: g}); err != nil {
		return zygo.SexpNull, err
	}
	return &sexpBrushRef{name: name}, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all brush DSL builtins into a zygomys environment.
// The builtins operate on the scene of st, populating it during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, st *evalState) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: v3.Vec{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (plane :normal (vec3 1 0 0) :distance 16)
	// (plane :point (vec3 16 0 0) :normal (vec3 1 0 0))
	// (plane :points a b c)      ; normal is (b-a)x(c-a)
	// -----------------------------------------------------------------------
	env.AddFunction("plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		if first, ok := pa.kw["points"]; ok {
			pts := append([]zygo.Sexp{first}, pa.positional...)
			if len(pts) != 3 {
				return zygo.SexpNull, fmt.Errorf("plane: points: expected 3 points, got %d", len(pts))
			}
			var vs [3]v3.Vec
			for i, p := range pts {
				v, err := toVec3(p)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("plane: point %d: %w", i+1, err)
				}
				vs[i] = v
			}
			p, err := geom.PlaneFromPoints(vs[0], vs[1], vs[2])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: %w", err)
			}
			return &sexpPlane{plane: p}, nil
		}

		nv, ok := pa.kw["normal"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("plane requires :normal or :points")
		}
		normal, err := toVec3(nv)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: normal: %w", err)
		}

		var p geom.Plane
		switch {
		case pa.kw["point"] != nil:
			at, err := toVec3(pa.kw["point"])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: point: %w", err)
			}
			p, err = geom.PlaneFromPoint(at, normal)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: %w", err)
			}
		default:
			var d float64
			if dv, ok := pa.kw["distance"]; ok {
				d, err = toFloat64(dv)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("plane: distance: %w", err)
				}
			}
			p, err = geom.NewPlane(normal, d)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: %w", err)
			}
		}
		return &sexpPlane{plane: p}, nil
	})

	// -----------------------------------------------------------------------
	// (face (plane ...) :texture "brick")
	// -----------------------------------------------------------------------
	env.AddFunction("face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("face requires exactly one plane")
		}
		p, err := toPlane(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: %w", err)
		}
		b := brush.Boundary{Plane: p}
		if tv, ok := pa.kw["texture"]; ok {
			tex, err := toString(tv)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("face: texture: %w", err)
			}
			b.Face = &Texture{Name: tex}
		}
		return &sexpFace{boundary: b}, nil
	})

	// -----------------------------------------------------------------------
	// (box "name" :min (vec3 0 0 0) :max (vec3 64 64 8))
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("box requires a name argument")
		}
		brushName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: name: %w", err)
		}

		var corners [2]v3.Vec
		for i, kw := range []string{"min", "max"} {
			v, ok := pa.kw[kw]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("box: missing :%s", kw)
			}
			if corners[i], err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("box: %s: %w", kw, err)
			}
		}

		g, err := brush.NewBox(boxOf(corners[0], corners[1]), st.opts.Brush)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box %q: %w", brushName, err)
		}
		if tv, ok := pa.kw["texture"]; ok {
			tex, err := toString(tv)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: texture: %w", err)
			}
			faces := make([]brush.Boundary, 0, 6)
			for _, p := range g.Planes() {
				faces = append(faces, brush.Boundary{Plane: p, Face: &Texture{Name: tex}})
			}
			if g, err = brush.BuildFaces(faces, st.opts.Brush); err != nil {
				return zygo.SexpNull, fmt.Errorf("box %q: %w", brushName, err)
			}
		}
		return st.add(brushName, g)
	})

	// -----------------------------------------------------------------------
	// (brush "name" (plane ...) (face ...) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("brush", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("brush requires a name argument")
		}
		brushName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("brush: name: %w", err)
		}

		var faces []brush.Boundary
		for i, a := range flatten(args[1:]) {
			b, err := toBoundary(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("brush %q: plane %d: %w", brushName, i+1, err)
			}
			faces = append(faces, b)
		}
		g, err := brush.BuildFaces(faces, st.opts.Brush)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("brush %q: %w", brushName, err)
		}
		return st.add(brushName, g)
	})

	// -----------------------------------------------------------------------
	// (brush-ref "name")
	//
	// Note: registered as "brush_ref" because zygomys does not support
	// hyphens in identifiers. The preprocessor converts the source.
	// -----------------------------------------------------------------------
	env.AddFunction("brush_ref", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("brush-ref requires a name argument")
		}
		b, err := st.lookup(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("brush-ref: %w", err)
		}
		return &sexpBrushRef{name: b.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (clip ref (plane ...))  or  (clip ref (face ...))
	// Returns the reference, or nil when the clip removed the whole brush.
	// -----------------------------------------------------------------------
	env.AddFunction("clip", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("clip requires a brush and a plane")
		}
		b, err := st.lookup(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("clip: %w", err)
		}
		boundary, err := toBoundary(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("clip: %w", err)
		}

		_, err = b.Geometry.AddFace(boundary)
		switch {
		case errors.Is(err, brush.ErrEmptyResult):
			st.scene.Remove(b.Name)
			st.warn(b.Name, "clipped away by plane %s, brush removed", boundary.Plane)
			return zygo.SexpNull, nil
		case err != nil:
			return zygo.SexpNull, fmt.Errorf("clip %q: %w", b.Name, err)
		}
		st.scene.Touch()
		return &sexpBrushRef{name: b.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (clip-all (plane ...))  ; returns the number of brushes cut
	// -----------------------------------------------------------------------
	env.AddFunction("clip_all", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("clip-all requires a plane")
		}
		p, err := toPlane(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("clip-all: %w", err)
		}
		report, err := st.scene.ClipAll(st.ctx, p, st.opts.Workers)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("clip-all: %w", err)
		}
		for _, n := range report.Removed {
			st.warn(n, "clipped away by plane %s, brush removed", p)
		}
		return &zygo.SexpInt{Val: int64(len(report.Clipped))}, nil
	})

	// -----------------------------------------------------------------------
	// (translate ref (vec3 16 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("translate requires a brush and a vec3")
		}
		b, err := st.lookup(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		delta, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		b.Geometry.Translate(delta)
		st.scene.Touch()
		return &sexpBrushRef{name: b.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (flip ref :x 32)
	// -----------------------------------------------------------------------
	env.AddFunction("flip", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 || len(args) > 3 {
			return zygo.SexpNull, fmt.Errorf("flip requires a brush, an axis and an optional center")
		}
		b, err := st.lookup(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("flip: %w", err)
		}
		axis, err := toAxis(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("flip: %w", err)
		}
		var center float64
		if len(args) == 3 {
			if center, err = toFloat64(args[2]); err != nil {
				return zygo.SexpNull, fmt.Errorf("flip: center: %w", err)
			}
		}
		if err := b.Geometry.Flip(axis, center); err != nil {
			return zygo.SexpNull, fmt.Errorf("flip %q: %w", b.Name, err)
		}
		st.scene.Touch()
		return &sexpBrushRef{name: b.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (move-vertices ref (list (vec3 16 16 16) ...) (vec3 0 0 8))
	// -----------------------------------------------------------------------
	env.AddFunction("move_vertices", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 3 {
			return zygo.SexpNull, fmt.Errorf("move-vertices requires a brush, vertex positions and a vec3")
		}
		b, err := st.lookup(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move-vertices: %w", err)
		}
		var positions []v3.Vec
		for i, a := range flatten(args[1 : len(args)-1]) {
			p, err := toVec3(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("move-vertices: vertex %d: %w", i+1, err)
			}
			positions = append(positions, p)
		}
		delta, err := toVec3(args[len(args)-1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move-vertices: delta: %w", err)
		}
		if _, err := b.Geometry.MoveVertices(positions, delta); err != nil {
			return zygo.SexpNull, fmt.Errorf("move-vertices %q: %w", b.Name, err)
		}
		st.scene.Touch()
		return &sexpBrushRef{name: b.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (snap ref)  or  (snap ref 8)
	// -----------------------------------------------------------------------
	env.AddFunction("snap", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 || len(args) > 2 {
			return zygo.SexpNull, fmt.Errorf("snap requires a brush and an optional grid size")
		}
		b, err := st.lookup(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("snap: %w", err)
		}
		grid := 1.0
		if len(args) == 2 {
			if grid, err = toFloat64(args[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("snap: grid: %w", err)
			}
		}
		if err := b.Geometry.SnapTo(grid); err != nil {
			return zygo.SexpNull, fmt.Errorf("snap %q: %w", b.Name, err)
		}
		st.scene.Touch()
		return &sexpBrushRef{name: b.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (copy-brush "new-name" ref)
	// -----------------------------------------------------------------------
	env.AddFunction("copy_brush", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("copy-brush requires a new name and a brush")
		}
		newName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("copy-brush: name: %w", err)
		}
		b, err := st.lookup(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("copy-brush: %w", err)
		}
		return st.add(newName, b.Geometry.Clone())
	})

	// -----------------------------------------------------------------------
	// (volume ref)
	// -----------------------------------------------------------------------
	env.AddFunction("volume", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("volume requires a brush")
		}
		b, err := st.lookup(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("volume: %w", err)
		}
		return &zygo.SexpFloat{Val: b.Geometry.Volume()}, nil
	})

	// -----------------------------------------------------------------------
	// (brush-count)
	// -----------------------------------------------------------------------
	env.AddFunction("brush_count", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return &zygo.SexpInt{Val: int64(st.scene.Len())}, nil
	})
}

// boxOf orders two corners into a box.
func boxOf(a, b v3.Vec) sdf.Box3 {
	return sdf.Box3{
		Min: v3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)},
		Max: v3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)},
	}
}
