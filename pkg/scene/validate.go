package scene

import (
	"fmt"

	"github.com/chazu/brushwork/pkg/geom"
)

// ThinBrushThreshold is the smallest extent, in map units, below which a
// brush draws a warning.
const ThinBrushThreshold = 1.0

// ValidationSeverity indicates whether a validation finding is a defect or
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // broken geometry
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Brush    string             // which brush has the problem (empty if scene-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Brush == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] brush %s: %s", e.Severity, e.Brush, e.Message)
}

// ValidationResult bundles errors (defects) and warnings (advisory) from
// all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether validation found no errors.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate runs every tier over the scene. It never modifies the scene.
//
// Tier 1 is structural: each brush must pass its manifold and convexity
// check and lie inside the world box. Tier 2 is advisory: thin brushes and
// brushes whose sides carry no face payload are reported as warnings.
func (s *Scene) Validate() ValidationResult {
	var result ValidationResult
	result.Errors = append(result.Errors, s.validateStructure()...)
	result.Warnings = append(result.Warnings, s.validateShape()...)
	return result
}

// ---------------------------------------------------------------------------
// Tier 1: structural validation
// ---------------------------------------------------------------------------

func (s *Scene) validateStructure() []ValidationError {
	var errs []ValidationError
	for _, b := range s.Brushes() {
		if err := b.Geometry.Check(); err != nil {
			errs = append(errs, ValidationError{
				Brush:    b.Name,
				Message:  err.Error(),
				Severity: SeverityError,
			})
			continue
		}
		w := b.Geometry.Options().WorldSize
		bb := b.Geometry.Bounds()
		for _, a := range []geom.Axis{geom.AxisX, geom.AxisY, geom.AxisZ} {
			if geom.Component(bb.Min, a) < -w || geom.Component(bb.Max, a) > w {
				errs = append(errs, ValidationError{
					Brush:    b.Name,
					Message:  fmt.Sprintf("extends past the world limit %g on the %s axis", w, a),
					Severity: SeverityError,
				})
				break
			}
		}
	}
	return errs
}

// ---------------------------------------------------------------------------
// Tier 2: advisory warnings
// ---------------------------------------------------------------------------

func (s *Scene) validateShape() []ValidationError {
	var warnings []ValidationError
	for _, b := range s.Brushes() {
		bb := b.Geometry.Bounds()
		size := bb.Max.Sub(bb.Min)
		for _, a := range []geom.Axis{geom.AxisX, geom.AxisY, geom.AxisZ} {
			if d := geom.Component(size, a); d < ThinBrushThreshold {
				warnings = append(warnings, ValidationError{
					Brush:    b.Name,
					Message:  fmt.Sprintf("only %.4f thick along %s", d, a),
					Severity: SeverityWarning,
				})
				break
			}
		}
		if n := b.Geometry.NumSides() - len(b.Geometry.Faces()); n > 0 && len(b.Geometry.Faces()) > 0 {
			warnings = append(warnings, ValidationError{
				Brush:    b.Name,
				Message:  fmt.Sprintf("%d sides have no face attributes", n),
				Severity: SeverityWarning,
			})
		}
	}
	return warnings
}
