// Package kmeans clusters image pixels into superpixels by iterating
// nearest-centroid assignment and centroid recomputation under a joint
// color and spatial distance.
package kmeans

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"superpix/internal/grid"
	"superpix/internal/pixel"
)

// Unassigned marks a pixel that has not been compared to any centroid yet.
const Unassigned = -1

// ErrInvalidConfig is returned by New when the image or options cannot
// produce a clustering.
var ErrInvalidConfig = errors.New("invalid superpixel configuration")

// label is the mutable assignment state of one pixel.
type label struct {
	distance float64
	cluster  int
}

func unassigned() label {
	return label{distance: math.MaxFloat64, cluster: Unassigned}
}

// TickStats describes one assign/update round.
type TickStats struct {
	Tick     int
	MaxShift float64
	Empty    []int
	Duration time.Duration
}

// Solver owns the pixels, their labels and the current centroids of one
// segmentation. A Solver is not safe for concurrent use; Tick parallelizes
// internally.
type Solver struct {
	width, height int
	compactness   float64
	spacing       float64
	workers       int
	epsilon       float64
	logger        *zap.Logger

	pixels    []pixel.Pixel
	labels    []label
	index     []int // pixel index by y*width+x
	centroids []pixel.Centroid
	ticks     int
}

// New validates the input and seeds opts.Superpixels centroids on a regular
// grid. pixels must hold exactly one sample for every coordinate of the
// width x height image, in any order.
func New(pixels []pixel.Pixel, width, height int, opts Options) (*Solver, error) {
	index, err := indexPixels(pixels, width, height, opts)
	if err != nil {
		return nil, err
	}

	k := opts.Superpixels
	s := &Solver{
		width:       width,
		height:      height,
		compactness: opts.Compactness,
		spacing:     float64(grid.Spacing(width, height, k)),
		workers:     opts.workers(),
		epsilon:     opts.Epsilon,
		logger:      opts.logger(),
		pixels:      pixels,
		labels:      make([]label, len(pixels)),
		index:       index,
		centroids:   make([]pixel.Centroid, 0, k),
	}
	for i := range s.labels {
		s.labels[i] = unassigned()
	}
	for _, p := range grid.SamplePositions(width, height, k) {
		s.centroids = append(s.centroids, s.pixelAt(p.X, p.Y).Centroid())
	}

	if s.compactness < 1 || s.compactness > 20 {
		s.logger.Warn("compactness outside the usual range", zap.Float64("compactness", s.compactness))
	}
	s.logger.Debug("seeded superpixels",
		zap.Int("k", k),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Float64("spacing", s.spacing),
		zap.Int("workers", s.workers))
	return s, nil
}

func indexPixels(pixels []pixel.Pixel, width, height int, opts Options) ([]int, error) {
	var err error
	if width <= 0 || height <= 0 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "image size %dx%d has no pixels", width, height))
	}
	area := max(width, 0) * max(height, 0)

	switch k := opts.Superpixels; {
	case k <= 0:
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "superpixel count %d must be positive", k))
	case area > 0 && k > area:
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "superpixel count %d exceeds the %d image pixels", k, area))
	}
	if math.IsNaN(opts.Compactness) || math.IsInf(opts.Compactness, 0) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "compactness %v is not finite", opts.Compactness))
	}
	if area == 0 {
		return nil, err
	}
	if len(pixels) != area {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "got %d pixels for a %dx%d image", len(pixels), width, height))
	}

	index := make([]int, area)
	for i := range index {
		index[i] = Unassigned
	}
	var outside, duplicate error
	for i, p := range pixels {
		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			if outside == nil {
				outside = errors.Wrapf(ErrInvalidConfig, "pixel %d at (%d,%d) lies outside the %dx%d image", i, p.X, p.Y, width, height)
			}
			continue
		}
		at := p.Y*width + p.X
		if index[at] != Unassigned {
			if duplicate == nil {
				duplicate = errors.Wrapf(ErrInvalidConfig, "pixels %d and %d share position (%d,%d)", index[at], i, p.X, p.Y)
			}
			continue
		}
		index[at] = i
	}
	err = multierr.Combine(err, outside, duplicate)
	if err != nil {
		return nil, err
	}
	return index, nil
}

func (s *Solver) pixelAt(x, y int) pixel.Pixel {
	return s.pixels[s.index[y*s.width+x]]
}

// K returns the number of superpixels.
func (s *Solver) K() int { return len(s.centroids) }

// Width returns the image width.
func (s *Solver) Width() int { return s.width }

// Height returns the image height.
func (s *Solver) Height() int { return s.height }

// Spacing returns the expected distance between centroids in pixels.
func (s *Solver) Spacing() float64 { return s.spacing }

// Compactness returns the spatial weight m.
func (s *Solver) Compactness() float64 { return s.compactness }

// Ticks returns the number of completed ticks.
func (s *Solver) Ticks() int { return s.ticks }

// Centroids returns a copy of the current centroids. The slice index is
// the cluster identifier.
func (s *Solver) Centroids() []pixel.Centroid {
	out := make([]pixel.Centroid, len(s.centroids))
	copy(out, s.centroids)
	return out
}

// Labels returns the cluster of every pixel, in the order the pixels were
// given to New. Pixels are Unassigned until the first tick.
func (s *Solver) Labels() []int {
	out := make([]int, len(s.labels))
	for i, l := range s.labels {
		out[i] = l.cluster
	}
	return out
}

// LabelAt returns the cluster of the pixel at (x, y).
func (s *Solver) LabelAt(x, y int) int {
	return s.labels[s.index[y*s.width+x]].cluster
}

// Tick runs one assignment step followed by one centroid update.
func (s *Solver) Tick() TickStats {
	// The background context is never cancelled, so tick cannot fail.
	stats, _ := s.tick(context.Background())
	return stats
}

// Solve runs up to maxTicks ticks and returns how many ran. It stops early
// when Epsilon is set and no centroid moved further than it, or when ctx is
// done.
func (s *Solver) Solve(ctx context.Context, maxTicks int) (int, error) {
	ran := 0
	for ran < maxTicks {
		if err := ctx.Err(); err != nil {
			return ran, err
		}
		stats, err := s.tick(ctx)
		if err != nil {
			return ran, err
		}
		ran++
		if s.epsilon > 0 && stats.MaxShift <= s.epsilon {
			s.logger.Debug("converged", zap.Int("tick", stats.Tick), zap.Float64("shift", stats.MaxShift))
			break
		}
	}
	return ran, nil
}

func (s *Solver) tick(ctx context.Context) (TickStats, error) {
	start := time.Now()
	if err := assignAll(ctx, s.pixels, s.labels, s.centroids, s.compactness, s.spacing, s.workers); err != nil {
		return TickStats{}, err
	}
	next, empty, err := updateAll(ctx, s.pixels, s.labels, s.centroids, s.workers)
	if err != nil {
		return TickStats{}, err
	}

	var shift float64
	for i := range next {
		shift = max(shift, math.Sqrt(pixel.SpatialDistance(s.centroids[i].Position, next[i].Position)))
	}
	s.centroids = next
	s.ticks++

	stats := TickStats{Tick: s.ticks, MaxShift: shift, Empty: empty, Duration: time.Since(start)}
	if len(empty) > 0 {
		s.logger.Debug("superpixels without members", zap.Int("tick", s.ticks), zap.Ints("clusters", empty))
	}
	s.logger.Debug("tick",
		zap.Int("tick", s.ticks),
		zap.Float64("max_shift", shift),
		zap.Int("empty", len(empty)),
		zap.Duration("took", stats.Duration))
	return stats, nil
}
