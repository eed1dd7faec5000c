package brush

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/brushwork/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Sentinels matched by the typed errors through errors.Is.
var (
	ErrDegenerateInput = errors.New("brush: degenerate input")
	ErrEmptyResult     = errors.New("brush: empty result")
	ErrNonManifold     = errors.New("brush: non-manifold geometry")
)

// DegenerateInputError reports input that cannot describe a solid. Index
// is the offending plane, or the offending vertex position of a move when
// Plane is zero, or -1 when the input as a whole is at fault.
type DegenerateInputError struct {
	Index  int
	Plane  geom.Plane
	Reason string
}

func (e DegenerateInputError) Error() string {
	switch {
	case e.Index >= 0 && e.Plane != (geom.Plane{}):
		return fmt.Sprintf("brush: plane %d (%s): %s", e.Index, e.Plane, e.Reason)
	case e.Index >= 0:
		return fmt.Sprintf("brush: vertex %d: %s", e.Index, e.Reason)
	}
	return "brush: " + e.Reason
}

func (e DegenerateInputError) Is(target error) bool { return target == ErrDegenerateInput }

// EmptyResultError reports a clip that would remove the whole solid. The
// geometry is left as it was before the call.
type EmptyResultError struct {
	Plane geom.Plane
}

func (e EmptyResultError) Error() string {
	return fmt.Sprintf("brush: clipping by plane %s leaves no volume", e.Plane)
}

func (e EmptyResultError) Is(target error) bool { return target == ErrEmptyResult }

// NonManifoldError reports a failed post-condition check. It indicates a
// tolerance problem in the engine, not a user error.
type NonManifoldError struct {
	Plane    geom.Plane
	Vertices []v3.Vec
	Problems []string
}

func (e NonManifoldError) Error() string {
	var b strings.Builder
	if e.Plane == (geom.Plane{}) {
		fmt.Fprintf(&b, "brush: non-manifold geometry: %s", strings.Join(e.Problems, "; "))
	} else {
		fmt.Fprintf(&b, "brush: non-manifold result after plane %s: %s", e.Plane, strings.Join(e.Problems, "; "))
	}
	if len(e.Vertices) > 0 {
		b.WriteString(" (vertices:")
		for _, v := range e.Vertices {
			fmt.Fprintf(&b, " (%g %g %g)", v.X, v.Y, v.Z)
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e NonManifoldError) Is(target error) bool { return target == ErrNonManifold }
