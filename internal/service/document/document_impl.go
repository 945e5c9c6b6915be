package document

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/feichai0017/image2pdf/internal/agent"
	"github.com/feichai0017/image2pdf/internal/agent/document/pdf"
	"github.com/feichai0017/image2pdf/internal/models"
	"github.com/feichai0017/image2pdf/pkg/logger"
)

// ConverterService wires classification, decoding and PDF encoding.
// At most one file is held in memory as a surface at any time, even when
// the service is shared between callers.
type ConverterService struct {
	factory *agent.ProcessorFactory
	encoder *pdf.Encoder
	sem     *semaphore.Weighted
	logger  logger.Logger
}

type ServiceConfig struct {
	SvgFallbackWidth  int
	SvgFallbackHeight int
	MaxPixels         int64
}

func NewService(factory *agent.ProcessorFactory, encoder *pdf.Encoder, log logger.Logger) *ConverterService {
	return &ConverterService{
		factory: factory,
		encoder: encoder,
		sem:     semaphore.NewWeighted(1),
		logger:  log.Named("converter"),
	}
}

// GetService builds a ConverterService with the default decoders.
func GetService(log logger.Logger, cfg *ServiceConfig) *ConverterService {
	if cfg == nil {
		cfg = &ServiceConfig{}
	}
	factory := agent.NewProcessorFactory(log, &agent.FactoryConfig{
		SvgFallbackWidth:  cfg.SvgFallbackWidth,
		SvgFallbackHeight: cfg.SvgFallbackHeight,
		MaxPixels:         cfg.MaxPixels,
	})
	return NewService(factory, pdf.NewEncoder(log), log)
}

func (s *ConverterService) Convert(ctx context.Context, file models.InputFile) (*models.PdfDocument, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("convert %s: %w", file.Name, err)
	}
	defer s.sem.Release(1)

	start := time.Now()

	strategy, decoder, err := s.factory.GetDecoder(file)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Converting file",
		logger.String("file", file.Name),
		logger.Int64("size", file.Size),
		logger.String("strategy", strategy.String()),
	)

	surface, err := decoder.Decode(ctx, file)
	if err != nil {
		return nil, err
	}
	doc, err := s.encoder.Encode(ctx, file.Name, surface)
	surface.Release()
	if err != nil {
		return nil, err
	}

	s.logger.Info("File converted",
		logger.String("file", file.Name),
		logger.Int("width", doc.Width),
		logger.Int("height", doc.Height),
		logger.String("orientation", string(doc.Orientation)),
		logger.Duration("elapsed", time.Since(start)),
	)

	return doc, nil
}
