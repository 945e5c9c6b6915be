package agent

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/feichai0017/image2pdf/internal/agent/document"
	"github.com/feichai0017/image2pdf/internal/agent/document/image"
	"github.com/feichai0017/image2pdf/internal/agent/document/svg"
	"github.com/feichai0017/image2pdf/internal/models"
	"github.com/feichai0017/image2pdf/pkg/logger"
)

// Classify picks the decode path from the file name alone: ".svg" in any
// case is rasterised from markup, everything else goes to the native
// raster decoders. The declared MIME type is not consulted here.
func Classify(file models.InputFile) models.DecodeStrategy {
	if strings.EqualFold(filepath.Ext(file.Name), ".svg") {
		return models.SvgRasterize
	}
	return models.RasterNative
}

type FactoryConfig struct {
	SvgFallbackWidth  int
	SvgFallbackHeight int
	// MaxPixels bounds every decoded surface; 0 means the default.
	MaxPixels int64
}

// ProcessorFactory maps each DecodeStrategy to its Decoder.
type ProcessorFactory struct {
	decoders map[models.DecodeStrategy]document.Decoder
	logger   logger.Logger
}

func NewProcessorFactory(log logger.Logger, cfg *FactoryConfig) *ProcessorFactory {
	if cfg == nil {
		cfg = &FactoryConfig{}
	}

	factory := &ProcessorFactory{
		decoders: make(map[models.DecodeStrategy]document.Decoder),
		logger:   log,
	}

	factory.Register(image.NewProcessor(log, &image.Config{
		MaxPixels: cfg.MaxPixels,
	}))
	factory.Register(svg.NewProcessor(log, &svg.Config{
		FallbackWidth:  cfg.SvgFallbackWidth,
		FallbackHeight: cfg.SvgFallbackHeight,
		MaxPixels:      cfg.MaxPixels,
	}))

	return factory
}

// Register installs d for its strategy, replacing any previous decoder.
func (f *ProcessorFactory) Register(d document.Decoder) {
	f.decoders[d.Strategy()] = d
}

// GetDecoder classifies the file and returns the decoder for it.
func (f *ProcessorFactory) GetDecoder(file models.InputFile) (models.DecodeStrategy, document.Decoder, error) {
	strategy := Classify(file)

	decoder, ok := f.decoders[strategy]
	if !ok {
		f.logger.Error("No decoder registered",
			logger.String("file", file.Name),
			logger.String("strategy", strategy.String()),
		)
		return strategy, nil, fmt.Errorf("no decoder registered for strategy %s", strategy)
	}

	return strategy, decoder, nil
}
