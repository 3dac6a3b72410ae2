package kmeans

import (
	"runtime"

	"go.uber.org/zap"
)

const (
	// DefaultCompactness balances color and spatial distance evenly for
	// typical photographs.
	DefaultCompactness = 10
	// DefaultSuperpixels is the number of clusters used when none is given.
	DefaultSuperpixels = 400
	// DefaultTicks is the number of assign/update rounds callers usually run.
	DefaultTicks = 10
)

// Options configures a Solver.
type Options struct {
	// Compactness is the weight m of the spatial term. Values between 1
	// and 20 are typical; larger values give more regular superpixels.
	Compactness float64

	// Superpixels is the number of clusters k.
	Superpixels int

	// Workers is the number of goroutines used per step. Zero or less
	// means runtime.NumCPU().
	Workers int

	// Epsilon stops Solve early once no centroid moves further than this
	// many pixels in a tick. Zero disables the check.
	Epsilon float64

	// Logger receives per-tick diagnostics. Nil discards them.
	Logger *zap.Logger
}

// DefaultOptions returns the options used by the command line tool.
func DefaultOptions() Options {
	return Options{
		Compactness: DefaultCompactness,
		Superpixels: DefaultSuperpixels,
		Workers:     runtime.NumCPU(),
	}
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.NumCPU()
	}
	return o.Workers
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
