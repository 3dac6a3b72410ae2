// Package main segments an image into superpixels and writes a recolored
// copy next to it.
package main

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"superpix/internal/imageproc"
	"superpix/internal/kmeans"
)

const (
	flagSuperpixels = "k"
	flagCompactness = "compactness"
	flagTicks       = "ticks"
	flagWorkers     = "workers"
	flagEpsilon     = "epsilon"
	flagPalette     = "palette"
	flagSeed        = "seed"
	flagBoundaries  = "boundaries"
	flagMaxSize     = "max-size"
	flagOut         = "out"
	flagReport      = "report"
	flagVerbose     = "verbose"

	paletteMean   = "mean"
	paletteRandom = "random"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	defaults := kmeans.DefaultOptions()

	return &cli.App{
		Name:      "slic",
		Usage:     "segment an image into superpixels",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    flagSuperpixels,
				Usage:   "number of superpixels",
				Value:   defaults.Superpixels,
				EnvVars: []string{"SLIC_K"},
			},
			&cli.Float64Flag{
				Name:    flagCompactness,
				Aliases: []string{"m"},
				Usage:   "weight of spatial distance, usually 1-20",
				Value:   defaults.Compactness,
				EnvVars: []string{"SLIC_COMPACTNESS"},
			},
			&cli.IntFlag{
				Name:    flagTicks,
				Usage:   "assign/update rounds to run",
				Value:   kmeans.DefaultTicks,
				EnvVars: []string{"SLIC_TICKS"},
			},
			&cli.IntFlag{
				Name:    flagWorkers,
				Usage:   "worker goroutines per step",
				Value:   defaults.Workers,
				EnvVars: []string{"SLIC_WORKERS"},
			},
			&cli.Float64Flag{
				Name:  flagEpsilon,
				Usage: "stop once no centroid moves further than this many pixels (0 runs every tick)",
			},
			&cli.StringFlag{
				Name:  flagPalette,
				Usage: "fill superpixels with their mean color or a random one (mean|random)",
				Value: paletteMean,
			},
			&cli.Uint64Flag{
				Name:  flagSeed,
				Usage: "seed for the random palette",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  flagBoundaries,
				Usage: "draw superpixel boundaries in black",
			},
			&cli.IntFlag{
				Name:  flagMaxSize,
				Usage: "downscale so neither side exceeds this many pixels (0 keeps the original size)",
			},
			&cli.StringFlag{
				Name:    flagOut,
				Aliases: []string{"o"},
				Usage:   "output path (default <image>_clustered.png)",
			},
			&cli.StringFlag{
				Name:  flagReport,
				Usage: "write a JSON summary of every superpixel to this path",
			},
			&cli.BoolFlag{
				Name:    flagVerbose,
				Aliases: []string{"v"},
				Usage:   "log every tick",
			},
		},
		Action: run,
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	cfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	return cfg.Build()
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one image path")
	}
	input := c.Args().First()

	palette := c.String(flagPalette)
	if palette != paletteMean && palette != paletteRandom {
		return errors.Errorf("unknown palette %q, want %s or %s", palette, paletteMean, paletteRandom)
	}

	logger, err := newLogger(c.Bool(flagVerbose))
	if err != nil {
		return errors.Wrap(err, "building logger")
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	img, err := imageproc.Load(input)
	if err != nil {
		return err
	}
	img = imageproc.Fit(img, c.Int(flagMaxSize))
	pixels, width, height := imageproc.PixelsFromImage(img)
	logger.Info("loaded image", zap.String("path", input), zap.Int("width", width), zap.Int("height", height))

	opts := kmeans.Options{
		Compactness: c.Float64(flagCompactness),
		Superpixels: c.Int(flagSuperpixels),
		Workers:     c.Int(flagWorkers),
		Epsilon:     c.Float64(flagEpsilon),
		Logger:      logger.Named("kmeans"),
	}
	solver, err := kmeans.New(pixels, width, height, opts)
	if err != nil {
		return err
	}

	start := time.Now()
	ran, err := solver.Solve(ctx, c.Int(flagTicks))
	if err != nil {
		return errors.Wrapf(err, "solving after %d ticks", ran)
	}
	sps := solver.Superpixels()
	logger.Info("segmented",
		zap.Int("superpixels", solver.K()),
		zap.Int("ticks", ran),
		zap.Duration("took", time.Since(start)))

	fill := imageproc.Palette(imageproc.MeanPalette)
	if palette == paletteRandom {
		fill = imageproc.RandomPalette(solver.K(), c.Uint64(flagSeed))
	}
	out := imageproc.Render(width, height, sps, fill)
	if c.Bool(flagBoundaries) {
		imageproc.DrawBoundaries(out, solver.LabelAt, color.RGBA{A: 255})
	}

	output := c.String(flagOut)
	if output == "" {
		output = imageproc.ClusteredPath(input)
	}
	if err := imageproc.Save(out, output); err != nil {
		return err
	}
	logger.Info("saved", zap.String("path", output))

	if path := c.String(flagReport); path != "" {
		if err := writeReport(path, imageproc.Analyze(sps)); err != nil {
			return err
		}
		logger.Info("wrote report", zap.String("path", path))
	}
	return nil
}

func writeReport(path string, analysis []imageproc.SuperpixelAnalysis) error {
	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	return nil
}
