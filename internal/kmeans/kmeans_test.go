package kmeans

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/spatial/r2"

	"superpix/internal/colorspace"
	"superpix/internal/pixel"
)

var (
	red  = colorspace.RGB{R: 255}
	blue = colorspace.RGB{B: 255}
	gray = colorspace.RGB{R: 128, G: 128, B: 128}
)

func makePixels(w, h int, at func(x, y int) colorspace.RGB) []pixel.Pixel {
	pixels := make([]pixel.Pixel, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pixels = append(pixels, pixel.FromRGB(x, y, at(x, y)))
		}
	}
	return pixels
}

func flat(c colorspace.RGB) func(x, y int) colorspace.RGB {
	return func(int, int) colorspace.RGB { return c }
}

func noise(seed uint64) func(x, y int) colorspace.RGB {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	return func(int, int) colorspace.RGB {
		return colorspace.RGB{R: uint8(rng.IntN(256)), G: uint8(rng.IntN(256)), B: uint8(rng.IntN(256))}
	}
}

func options(k int) Options {
	opts := DefaultOptions()
	opts.Superpixels = k
	opts.Workers = 4
	return opts
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	valid := makePixels(4, 4, flat(gray))
	for _, tc := range []struct {
		name          string
		pixels        []pixel.Pixel
		width, height int
		k             int
	}{
		{"zero k", valid, 4, 4, 0},
		{"negative k", valid, 4, 4, -3},
		{"k above area", valid, 4, 4, 17},
		{"empty image", nil, 0, 4, 1},
		{"negative size", nil, -2, 4, 1},
		{"too few pixels", valid[:10], 4, 4, 2},
		{"pixel outside", append(valid[:15:15], pixel.Pixel{X: 4, Y: 0}), 4, 4, 2},
		{"duplicate pixel", append(valid[:15:15], valid[0]), 4, 4, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(tc.pixels, tc.width, tc.height, options(tc.k))
			require.Error(t, err)
			assert.Nil(t, s)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "%v", err)
		})
	}
}

func TestNewReportsEveryProblem(t *testing.T) {
	_, err := New(nil, 0, 0, Options{Superpixels: 0})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestNewSeedsK(t *testing.T) {
	s, err := New(makePixels(20, 30, noise(1)), 20, 30, options(10))
	require.NoError(t, err)
	assert.Equal(t, 10, s.K())
	assert.Equal(t, float64(9), s.Spacing())
	for _, l := range s.Labels() {
		assert.Equal(t, Unassigned, l)
	}

	// Seeds inherit the color of the pixel they sit on.
	first := s.Centroids()[0]
	assert.Equal(t, r2.Vec{X: 3, Y: 5}, first.Position)
	assert.Equal(t, s.pixelAt(3, 5).Color, first.Color)
}

func TestNewAcceptsAnyPixelOrder(t *testing.T) {
	pixels := makePixels(8, 6, noise(2))
	shuffled := append([]pixel.Pixel(nil), pixels...)
	rand.New(rand.NewPCG(9, 9)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	a, err := New(pixels, 8, 6, options(4))
	require.NoError(t, err)
	b, err := New(shuffled, 8, 6, options(4))
	require.NoError(t, err)
	assert.Equal(t, a.Centroids(), b.Centroids())

	a.Tick()
	b.Tick()
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			assert.Equal(t, a.LabelAt(x, y), b.LabelAt(x, y))
		}
	}
}

func TestTickAssignsEveryPixel(t *testing.T) {
	const w, h, k = 32, 24, 12
	s, err := New(makePixels(w, h, noise(3)), w, h, options(k))
	require.NoError(t, err)

	s.Tick()
	for _, l := range s.Labels() {
		require.GreaterOrEqual(t, l, 0)
		require.Less(t, l, k)
	}

	total := 0
	for _, n := range s.Sizes() {
		total += n
	}
	assert.Equal(t, w*h, total)

	members := 0
	for _, sp := range s.Superpixels() {
		members += len(sp.Members)
	}
	assert.Equal(t, w*h, members)
}

func TestTickBreaksTiesTowardsFirstCentroid(t *testing.T) {
	s, err := New(makePixels(4, 4, flat(gray)), 4, 4, options(2))
	require.NoError(t, err)
	require.Equal(t, []pixel.Centroid{
		{Position: r2.Vec{X: 2, Y: 1}, Color: gray.Lab()},
		{Position: r2.Vec{X: 2, Y: 3}, Color: gray.Lab()},
	}, s.Centroids())

	s.Tick()
	// Row 2 is equidistant from both seeds.
	for x := 0; x < 4; x++ {
		assert.Equal(t, 0, s.LabelAt(x, 2))
		assert.Equal(t, 1, s.LabelAt(x, 3))
	}
}

func TestDeterministic(t *testing.T) {
	run := func() ([]int, []pixel.Centroid) {
		s, err := New(makePixels(40, 30, noise(4)), 40, 30, options(20))
		require.NoError(t, err)
		_, err = s.Solve(context.Background(), 5)
		require.NoError(t, err)
		return s.Labels(), s.Centroids()
	}
	labelsA, centroidsA := run()
	labelsB, centroidsB := run()
	assert.Equal(t, labelsA, labelsB)
	assert.Equal(t, centroidsA, centroidsB)
}

func TestSplitsFlatHalves(t *testing.T) {
	for _, tc := range []struct {
		name  string
		w, h  int
		first func(x, y int) bool
	}{
		{"top and bottom", 4, 4, func(_, y int) bool { return y < 2 }},
		{"left and right", 8, 4, func(x, _ int) bool { return x < 4 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pixels := makePixels(tc.w, tc.h, func(x, y int) colorspace.RGB {
				if tc.first(x, y) {
					return red
				}
				return blue
			})
			opts := options(2)
			opts.Compactness = 10
			s, err := New(pixels, tc.w, tc.h, opts)
			require.NoError(t, err)
			for i := 0; i < 5; i++ {
				s.Tick()
			}

			sps := s.Superpixels()
			require.Len(t, sps, 2)
			assert.Equal(t, red, sps[0].Color)
			assert.Equal(t, blue, sps[1].Color)
			assert.Len(t, sps[0].Members, tc.w*tc.h/2)
			assert.Len(t, sps[1].Members, tc.w*tc.h/2)
			for _, p := range sps[0].Members {
				assert.True(t, tc.first(p.X, p.Y), "red cluster holds (%d,%d)", p.X, p.Y)
			}
			for _, p := range sps[1].Members {
				assert.False(t, tc.first(p.X, p.Y), "blue cluster holds (%d,%d)", p.X, p.Y)
			}
		})
	}
}

func TestEmptyClusterKeepsCentroid(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	opts := options(7)
	opts.Logger = zap.New(core)

	// The 4x2 lattice for k=7 stacks two seeds on each cell of the right
	// column, so the later seed of each pair never wins a pixel.
	s, err := New(makePixels(4, 2, flat(gray)), 4, 2, opts)
	require.NoError(t, err)
	before := s.Centroids()

	stats := s.Tick()
	assert.Equal(t, []int{4, 6}, stats.Empty)
	after := s.Centroids()
	assert.Equal(t, before[4], after[4])
	assert.Equal(t, before[6], after[6])

	sps := s.Superpixels()
	assert.True(t, sps[4].Empty())
	assert.False(t, sps[3].Empty())
	assert.Equal(t, 1, logs.FilterMessage("superpixels without members").Len())
}

func TestSolveStopsWhenConverged(t *testing.T) {
	opts := options(1)
	opts.Epsilon = 0.01
	s, err := New(makePixels(4, 4, flat(gray)), 4, 4, opts)
	require.NoError(t, err)

	ran, err := s.Solve(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, ran)
	assert.Equal(t, 2, s.Ticks())
	assert.Equal(t, r2.Vec{X: 1.5, Y: 1.5}, s.Centroids()[0].Position)
}

func TestSolveRunsFixedBudget(t *testing.T) {
	s, err := New(makePixels(4, 4, flat(gray)), 4, 4, options(1))
	require.NoError(t, err)

	ran, err := s.Solve(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, ran)
}

func TestSolveHonoursContext(t *testing.T) {
	s, err := New(makePixels(4, 4, flat(gray)), 4, 4, options(2))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran, err := s.Solve(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ran)
}

func TestSuperpixelsBeforeTick(t *testing.T) {
	s, err := New(makePixels(4, 4, flat(gray)), 4, 4, options(2))
	require.NoError(t, err)
	for _, sp := range s.Superpixels() {
		assert.True(t, sp.Empty())
	}
}

func TestSuperpixelPoints(t *testing.T) {
	sp := Superpixel{Members: []pixel.Pixel{{X: 1, Y: 2}, {X: 3, Y: 0}}}
	pts := sp.Points()
	require.Len(t, pts, 2)
	assert.Equal(t, 1, pts[0].X)
	assert.Equal(t, 0, pts[1].Y)
}

func BenchmarkTick(b *testing.B) {
	const w, h = 160, 120
	s, err := New(makePixels(w, h, noise(5)), w, h, options(100))
	require.NoError(b, err)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Tick()
	}
}
