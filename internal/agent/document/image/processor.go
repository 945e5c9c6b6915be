package image

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/feichai0017/image2pdf/internal/agent/document"
	"github.com/feichai0017/image2pdf/internal/models"
	"github.com/feichai0017/image2pdf/pkg/logger"
)

// Processor decodes raster formats (JPEG, PNG, GIF, BMP, TIFF, WebP)
// at their natural size.
type Processor struct {
	logger    logger.Logger
	maxPixels int64
}

type Config struct {
	// MaxPixels caps width*height as declared by the image header.
	MaxPixels int64
}

func NewProcessor(log logger.Logger, cfg *Config) *Processor {
	maxPixels := document.DefaultMaxPixels
	if cfg != nil && cfg.MaxPixels > 0 {
		maxPixels = cfg.MaxPixels
	}
	return &Processor{logger: log.Named("raster"), maxPixels: maxPixels}
}

func (p *Processor) Strategy() models.DecodeStrategy {
	return models.RasterNative
}

// Decode reads the header first so that a stream which is not an image at
// all is told apart from an image whose pixel data is broken.
func (p *Processor) Decode(ctx context.Context, file models.InputFile) (*models.RasterSurface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(file.Data))
	if err != nil {
		p.logger.Error("Failed to read image header",
			logger.String("file", file.Name),
			logger.Error(err),
		)
		return nil, document.NewDecodeError(models.ReasonUnreadableFile, file.Name, err)
	}

	// The header alone decides the allocation, so check it before decoding.
	if err := document.CheckSurfaceSize(cfg.Width, cfg.Height, p.maxPixels); err != nil {
		p.logger.Error("Image too large",
			logger.String("file", file.Name),
			logger.String("format", format),
			logger.Error(err),
		)
		return nil, document.NewDecodeError(models.ReasonUnreadableFile, file.Name, err)
	}

	p.logger.Debug("Decoding image",
		logger.String("file", file.Name),
		logger.String("format", format),
		logger.Int("width", cfg.Width),
		logger.Int("height", cfg.Height),
	)

	src, err := imaging.Decode(bytes.NewReader(file.Data), imaging.AutoOrientation(true))
	if err != nil {
		p.logger.Error("Failed to decode image",
			logger.String("file", file.Name),
			logger.String("format", format),
			logger.Error(err),
		)
		return nil, document.NewDecodeError(models.ReasonUnreadableImage, file.Name, err)
	}

	// Clone re-anchors the pixels at (0,0) without resampling.
	pixels := imaging.Clone(src)
	bounds := pixels.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, document.NewDecodeError(models.ReasonUnreadableImage, file.Name, nil)
	}

	return &models.RasterSurface{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pixels: pixels,
	}, nil
}
