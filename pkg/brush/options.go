package brush

import "github.com/chazu/brushwork/pkg/geom"

// DefaultWorldSize is the half extent of the seed box BuildFaces starts
// from. Brushes must lie well inside it.
const DefaultWorldSize = 32768

// Options tunes a geometry. The zero value is replaced by DefaultOptions.
type Options struct {
	// Epsilon is the on-plane tolerance used for classification, vertex
	// welding and the post-clip check.
	Epsilon float64 `json:"epsilon"`
	// WorldSize is the half extent of the seed box used when building from
	// planes.
	WorldSize float64 `json:"world_size"`
}

// DefaultOptions returns the stock tolerances.
func DefaultOptions() Options {
	return Options{
		Epsilon:   geom.DefaultEpsilon,
		WorldSize: DefaultWorldSize,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Epsilon <= 0 {
		o.Epsilon = d.Epsilon
	}
	if o.WorldSize <= 0 {
		o.WorldSize = d.WorldSize
	}
	return o
}
