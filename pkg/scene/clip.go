package scene

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/chazu/brushwork/pkg/brush"
	"github.com/chazu/brushwork/pkg/geom"
)

// ClipReport lists what a bulk clip did, in scene order.
type ClipReport struct {
	Clipped []string // brushes the plane cut
	Removed []string // brushes entirely in front of the plane
}

type clipJob struct {
	index int
	b     *Brush
}

type clipOutcome struct {
	geometry *brush.Geometry
	changed  bool
	empty    bool
	err      error
}

// ClipAll clips every brush by plane on a pool of workers goroutines
// (runtime.NumCPU() if workers <= 0). Brushes the plane removes entirely
// are deleted from the scene. The scene is only modified when every brush
// was processed without error; on cancellation or failure it is left as
// it was.
func (s *Scene) ClipAll(ctx context.Context, plane geom.Plane, workers int) (ClipReport, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	brushes := s.Brushes()
	outcomes := make([]clipOutcome, len(brushes))

	jobs := make(chan clipJob)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					outcomes[j.index].err = err
					continue
				}
				outcomes[j.index] = clipOne(j.b, plane)
			}
		}()
	}

feed:
	for i, b := range brushes {
		select {
		case jobs <- clipJob{index: i, b: b}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return ClipReport{}, fmt.Errorf("scene: clip all: %w", err)
	}

	var errs []error
	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, o.err)
		}
	}
	if len(errs) > 0 {
		return ClipReport{}, fmt.Errorf("scene: clip all: %w", errors.Join(errs...))
	}

	var report ClipReport
	for i, b := range brushes {
		o := outcomes[i]
		switch {
		case o.empty:
			s.Remove(b.Name)
			report.Removed = append(report.Removed, b.Name)
		case o.changed:
			b.Geometry = o.geometry
			report.Clipped = append(report.Clipped, b.Name)
		}
	}
	if len(report.Clipped) > 0 {
		s.version++
	}
	return report, nil
}

func clipOne(b *Brush, plane geom.Plane) clipOutcome {
	g := b.Geometry.Clone()
	before := g.NumVertices()
	vol := g.Volume()
	err := g.Clip(plane)
	switch {
	case errors.Is(err, brush.ErrEmptyResult):
		return clipOutcome{empty: true}
	case err != nil:
		return clipOutcome{err: fmt.Errorf("brush %q: %w", b.Name, err)}
	}
	changed := g.NumVertices() != before || g.Volume() != vol
	return clipOutcome{geometry: g, changed: changed}
}
