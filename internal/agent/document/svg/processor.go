package svg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/feichai0017/image2pdf/internal/agent/document"
	"github.com/feichai0017/image2pdf/internal/models"
	"github.com/feichai0017/image2pdf/pkg/logger"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

var (
	utf8BOM        = []byte{0xEF, 0xBB, 0xBF}
	errInvalidUTF8 = errors.New("svg markup is not valid UTF-8")
)

// Config controls the size used when a document has no intrinsic size
// and the largest surface the processor will allocate.
type Config struct {
	FallbackWidth  int
	FallbackHeight int
	MaxPixels      int64
}

// Processor rasterises SVG markup onto an opaque white surface.
type Processor struct {
	logger logger.Logger
	config Config
}

func NewProcessor(log logger.Logger, cfg *Config) *Processor {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	if c.FallbackWidth <= 0 {
		c.FallbackWidth = DefaultWidth
	}
	if c.FallbackHeight <= 0 {
		c.FallbackHeight = DefaultHeight
	}
	if c.MaxPixels <= 0 {
		c.MaxPixels = document.DefaultMaxPixels
	}
	return &Processor{logger: log.Named("svg"), config: c}
}

func (p *Processor) Strategy() models.DecodeStrategy {
	return models.SvgRasterize
}

// Decode turns any rasteriser panic into a DecodeError so a single odd
// document cannot take the batch down.
func (p *Processor) Decode(ctx context.Context, file models.InputFile) (surface *models.RasterSurface, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			surface = nil
			err = p.fail(file, fmt.Errorf("svg rasteriser panic: %v", r))
		}
	}()

	markup := bytes.TrimPrefix(file.Data, utf8BOM)
	if !utf8.Valid(markup) {
		return nil, p.fail(file, errInvalidUTF8)
	}

	width, height, intrinsic, err := intrinsicSize(markup)
	if err != nil {
		return nil, p.fail(file, err)
	}
	if !intrinsic {
		width, height = p.config.FallbackWidth, p.config.FallbackHeight
	}
	if err := document.CheckSurfaceSize(width, height, p.config.MaxPixels); err != nil {
		return nil, p.fail(file, err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(markup), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, p.fail(file, err)
	}

	// Without an intrinsic size the drawing keeps its own user units.
	// With one, the viewBox is mapped onto it the way a browser would.
	if intrinsic && icon.ViewBox.W > 0 && icon.ViewBox.H > 0 {
		icon.SetTarget(0, 0, float64(width), float64(height))
	} else {
		icon.Transform = rasterx.Identity.Translate(-icon.ViewBox.X, -icon.ViewBox.Y)
	}

	p.logger.Debug("Rasterising svg",
		logger.String("file", file.Name),
		logger.Int("width", width),
		logger.Int("height", height),
		logger.Bool("intrinsic", intrinsic),
	)

	// White first so transparent areas never end up black in the PDF.
	pixels := imaging.New(width, height, color.White)
	scanner := rasterx.NewScannerGV(width, height, pixels, pixels.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)
	icon.Draw(raster, 1.0)

	return &models.RasterSurface{
		Width:  width,
		Height: height,
		Pixels: pixels,
	}, nil
}

func (p *Processor) fail(file models.InputFile, err error) error {
	p.logger.Error("Failed to read svg",
		logger.String("file", file.Name),
		logger.Error(err),
	)
	return document.NewDecodeError(models.ReasonUnreadableFile, file.Name, err)
}
