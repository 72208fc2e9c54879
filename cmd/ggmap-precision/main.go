// Command ggmap-precision renders one map frame twice, once through the
// compensated vertex stage and once the way a plain float32 shader would,
// and reports how far each one lands from the float64 reference.
//
// Without -geojson it draws a 4 m checkerboard square at high zoom far from
// the world origin, where float32 alone is off by several pixels. -demo
// draws three outlined 50 m squares in Amsterdam instead, filled with
// checkerboard, stripe and dot patterns of 16 px tiles.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"log/slog"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/ggmap"
	"github.com/gogpu/ggmap/dekker"
	"github.com/gogpu/ggmap/geodata"
	"github.com/gogpu/ggmap/pattern"
	"github.com/gogpu/ggmap/transform"
	"github.com/gogpu/ggmap/vertex"
)

func main() {
	cfg, err := Get()
	if err != nil {
		log.Fatalf("Failed to read environment: %v", err)
	}
	if err := parseFlags(cfg, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if cfg.Verbose {
		ggmap.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if err := run(cfg, os.Stdout); err != nil {
		log.Fatalf("Failed: %v", err)
	}
}

func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("ggmap-precision", flag.ContinueOnError)
	fs.Float64Var(&cfg.Zoom, "zoom", cfg.Zoom, "web mercator zoom level")
	fs.Float64Var(&cfg.CenterX, "x", cfg.CenterX, "view center x in world units")
	fs.Float64Var(&cfg.CenterY, "y", cfg.CenterY, "view center y in world units")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "image width")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "image height")
	fs.StringVar(&cfg.Output, "output", cfg.Output, "compensated output PNG (empty to skip)")
	fs.StringVar(&cfg.NaiveOutput, "naive-output", cfg.NaiveOutput, "naive output PNG (empty to skip)")
	fs.StringVar(&cfg.GeoJSON, "geojson", cfg.GeoJSON, "GeoJSON file with polygons to draw instead of the test square")
	fs.StringVar(&cfg.NameProperty, "name-property", cfg.NameProperty, "feature property used as the name")
	fs.BoolVar(&cfg.Demo, "demo", cfg.Demo, "draw the patterned Amsterdam squares instead of the test square")
	fs.BoolVar(&cfg.Fit, "fit", cfg.Fit, "center the view on the GeoJSON features")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "workers for packing and evaluation")
	fs.BoolVar(&cfg.Fast, "fast", cfg.Fast, "drop the lo*lo term of the compensated product")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "debug logging")
	return fs.Parse(args)
}

// result holds the measurements of one run.
type result struct {
	PixelPosition float64
	Batches       int
	Vertices      int
	Compensated   float64
	Naive         float64
}

func run(cfg *Config, out io.Writer) error {
	var batches []*ggmap.DrawBatch
	var err error
	switch {
	case cfg.GeoJSON != "":
		batches, err = featureBatches(cfg)
	case cfg.Demo:
		batches, err = demoBatches(cfg)
	default:
		batches, err = squareBatches(cfg)
	}
	if err != nil {
		return err
	}

	frame, err := frameFor(cfg)
	if err != nil {
		return err
	}

	res, comp, naive, err := measure(frame, batches)
	if err != nil {
		return err
	}
	res.PixelPosition = viewport(cfg).PixelPosition()

	if err := savePNG(cfg.Output, comp); err != nil {
		return err
	}
	if err := savePNG(cfg.NaiveOutput, naive); err != nil {
		return err
	}
	report(out, cfg, res)
	return nil
}

func viewport(cfg *Config) transform.Viewport {
	return transform.Viewport{
		Center:     [2]float64{cfg.CenterX, cfg.CenterY},
		Resolution: transform.ResolutionForZoom(cfg.Zoom),
		Width:      cfg.Width,
		Height:     cfg.Height,
	}
}

func frameFor(cfg *Config) (ggmap.Frame, error) {
	return ggmap.NewFrame(viewport(cfg))
}

// measure renders every batch both ways and records the worst vertex error
// of each against the float64 reference.
func measure(frame ggmap.Frame, batches []*ggmap.DrawBatch) (result, *image.RGBA, *image.RGBA, error) {
	var res result
	bounds := image.Rect(0, 0, frame.Width, frame.Height)
	comp := image.NewRGBA(bounds)
	naive := image.NewRGBA(bounds)
	for _, b := range batches {
		u, err := b.Prepare(frame)
		if err != nil {
			return res, nil, nil, err
		}
		res.Compensated = max(res.Compensated, b.MaxPixelError(frame, b.Evaluate(u)))
		res.Naive = max(res.Naive, b.MaxPixelError(frame, b.EvaluateNaive(u)))
		if err := b.RenderCPU(comp, u); err != nil {
			return res, nil, nil, err
		}
		if err := b.RenderCPUNaive(naive, u); err != nil {
			return res, nil, nil, err
		}
		res.Batches++
		res.Vertices += len(b.Vertices())
	}
	return res, comp, naive, nil
}

func batchOptions(cfg *Config) []ggmap.BatchOption {
	prec := dekker.PrecisionFull
	if cfg.Fast {
		prec = dekker.PrecisionFast
	}
	return []ggmap.BatchOption{ggmap.WithPrecision(prec), ggmap.WithWorkers(cfg.Workers)}
}

func squareBatches(cfg *Config) ([]*ggmap.DrawBatch, error) {
	tex, err := pattern.NewTexture(pattern.Checkerboard(16,
		color.RGBA{R: 220, G: 40, B: 40, A: 255}, color.RGBA{R: 40, G: 60, B: 220, A: 255}))
	if err != nil {
		return nil, err
	}
	style := ggmap.DefaultStyle()
	style.Pattern = &ggmap.Pattern{TileWidth: 2, TileHeight: 2, Texture: tex}

	cx, cy := cfg.CenterX, cfg.CenterY
	b, err := ggmap.NewBatch([][2]float64{
		{cx - 2, cy - 2}, {cx + 2, cy - 2}, {cx + 2, cy + 2}, {cx - 2, cy + 2},
	}, style, batchOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	return []*ggmap.DrawBatch{b}, nil
}

// demoSquare is one square of the demo scene, offset from the scene center
// in meters.
type demoSquare struct {
	name   string
	offset [2]float64
	tile   *image.RGBA
	stroke color.RGBA
}

func demoSquares() []demoSquare {
	red := color.RGBA{R: 0xe7, G: 0x4c, B: 0x3c, A: 255}
	blue := color.RGBA{R: 0x34, G: 0x98, B: 0xdb, A: 255}
	green := color.RGBA{R: 0x27, G: 0xae, B: 0x60, A: 255}
	orange := color.RGBA{R: 0xf3, G: 0x9c, B: 0x12, A: 255}
	dark := color.RGBA{R: 0x2c, G: 0x3e, B: 0x50, A: 255}
	return []demoSquare{
		{"checkerboard", [2]float64{-30, 30}, pattern.Checkerboard(demoTilePx, red, blue), red},
		{"stripes", [2]float64{30, 30}, pattern.Stripes(demoTilePx, 4, green, color.White), green},
		{"dots", [2]float64{0, -30}, pattern.Dots(demoTilePx, 4, orange, dark), orange},
	}
}

const (
	demoTilePx     = 16
	demoHalf       = 25
	demoStrokeSize = 2
)

// demoBatches builds the demo scene around Amsterdam and moves the view
// there. Pattern tiles are sized in pixels at the configured zoom.
func demoBatches(cfg *Config) ([]*ggmap.DrawBatch, error) {
	center := transform.FromLonLat(4.9, 52.37)
	cfg.CenterX, cfg.CenterY = center[0], center[1]

	sampler, err := pattern.NewPixelSampler(demoTilePx, demoTilePx, transform.ResolutionForZoom(cfg.Zoom))
	if err != nil {
		return nil, err
	}
	tile := sampler.TileSize()

	var batches []*ggmap.DrawBatch
	for _, sq := range demoSquares() {
		tex, err := pattern.NewTexture(sq.tile)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sq.name, err)
		}
		style := ggmap.DefaultStyle()
		style.Pattern = &ggmap.Pattern{TileWidth: tile[0], TileHeight: tile[1], Texture: tex}
		style.Stroke = &ggmap.Stroke{Color: straight(sq.stroke), Width: demoStrokeSize}

		cx, cy := center[0]+sq.offset[0], center[1]+sq.offset[1]
		ring := [][2]float64{
			{cx - demoHalf, cy - demoHalf}, {cx + demoHalf, cy - demoHalf},
			{cx + demoHalf, cy + demoHalf}, {cx - demoHalf, cy + demoHalf},
		}
		fill, err := ggmap.NewBatch(ring, style, batchOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sq.name, err)
		}
		outline, err := ggmap.NewStrokeBatch(ring, style, batchOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("%s outline: %w", sq.name, err)
		}
		batches = append(batches, fill, outline)
	}
	return batches, nil
}

func straight(c color.RGBA) [4]float32 {
	return [4]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
}

func featureBatches(cfg *Config) ([]*ggmap.DrawBatch, error) {
	f, err := os.Open(cfg.GeoJSON)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	features, err := geodata.ReadGeoJSON(f, cfg.NameProperty)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.GeoJSON, err)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%s: %w", cfg.GeoJSON, geodata.ErrNoPolygons)
	}

	style := ggmap.DefaultStyle()
	style.Color = [4]float32{0.2, 0.5, 0.9, 1}
	style.Opacity = 0.8

	var batches []*ggmap.DrawBatch
	var lo, hi [2]float64
	seen := false
	for i := range features {
		fb, err := features[i].Batches(style, batchOptions(cfg)...)
		if errors.Is(err, ggmap.ErrNoTriangles) || errors.Is(err, vertex.ErrEmptyGeometry) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", features[i].Name, err)
		}
		batches = append(batches, fb...)

		flo, fhi := features[i].Bounds()
		if !seen {
			lo, hi, seen = flo, fhi, true
			continue
		}
		lo = [2]float64{min(lo[0], flo[0]), min(lo[1], flo[1])}
		hi = [2]float64{max(hi[0], fhi[0]), max(hi[1], fhi[1])}
	}
	if cfg.Fit && seen {
		cfg.CenterX = (lo[0] + hi[0]) / 2
		cfg.CenterY = (lo[1] + hi[1]) / 2
	}
	return batches, nil
}

func savePNG(path string, img image.Image) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func report(w io.Writer, cfg *Config, res result) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "zoom %.1f, %dx%d px, center (%.2f, %.2f)\n", cfg.Zoom, cfg.Width, cfg.Height, cfg.CenterX, cfg.CenterY)
	p.Fprintf(w, "pixel position: %.0f px from the world origin\n", res.PixelPosition)
	p.Fprintf(w, "batches: %d, vertices: %d\n", res.Batches, res.Vertices)
	p.Fprintf(w, "max error, compensated: %.6f px\n", res.Compensated)
	p.Fprintf(w, "max error, naive:       %.6f px\n", res.Naive)
	if cfg.Output != "" {
		p.Fprintf(w, "wrote %s\n", cfg.Output)
	}
	if cfg.NaiveOutput != "" {
		p.Fprintf(w, "wrote %s\n", cfg.NaiveOutput)
	}
}
