//go:build !manifold

// Package manifold provides a CGo-based brush kernel binding to the
// Manifold library. When the "manifold" build tag is not set, this stub
// package is compiled instead, returning an error from New().
//
// Build with: go build -tags=manifold
package manifold

import (
	"errors"

	"github.com/chazu/brushwork/pkg/brush"
	"github.com/chazu/brushwork/pkg/kernel"
)

// ErrUnavailable is returned by New when the package was built without
// the manifold tag.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")

// New returns ErrUnavailable. Build with -tags=manifold to enable.
func New(opts brush.Options) (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
