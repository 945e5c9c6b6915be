package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/feichai0017/image2pdf/internal/agent/document"
	"github.com/feichai0017/image2pdf/internal/models"
	"github.com/feichai0017/image2pdf/pkg/logger"
)

var errEmptySurface = errors.New("surface has no pixels")

func init() {
	// pdfcpu otherwise creates a config directory under the user's home.
	api.DisableConfigDir()
}

// Encoder writes a RasterSurface as a single full-bleed PDF page.
type Encoder struct {
	logger  logger.Logger
	buffers sync.Pool
}

func NewEncoder(log logger.Logger) *Encoder {
	return &Encoder{
		logger: log.Named("pdf"),
		buffers: sync.Pool{
			New: func() any { return new(bytes.Buffer) },
		},
	}
}

// Encode embeds the surface losslessly on a page of exactly its pixel
// size. Every failure, including a panic inside the writer, is an
// *document.EncodeError.
func (e *Encoder) Encode(ctx context.Context, fileName string, surface *models.RasterSurface) (doc *models.PdfDocument, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if surface == nil || surface.Pixels == nil || surface.Width <= 0 || surface.Height <= 0 {
		return nil, document.NewEncodeError(fileName, errEmptySurface)
	}

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = e.fail(fileName, fmt.Errorf("pdf writer panic: %v", r))
		}
	}()

	img := e.getBuffer()
	defer e.putBuffer(img)

	if err := imaging.Encode(img, surface.Pixels, imaging.PNG); err != nil {
		return nil, e.fail(fileName, fmt.Errorf("failed to encode page image: %w", err))
	}

	out := e.getBuffer()
	defer e.putBuffer(out)

	imgs := []io.Reader{bytes.NewReader(img.Bytes())}
	if err := api.ImportImages(nil, out, imgs, importConfig(), newConfiguration()); err != nil {
		return nil, e.fail(fileName, fmt.Errorf("failed to write pdf: %w", err))
	}

	data := bytes.Clone(out.Bytes())

	info, err := Inspect(data)
	if err != nil {
		return nil, e.fail(fileName, fmt.Errorf("failed to read back pdf: %w", err))
	}
	if info.Pages != 1 || !sameSize(info, surface.Width, surface.Height) {
		return nil, e.fail(fileName, fmt.Errorf("unexpected pdf layout: %d page(s) of %.2fx%.2f, want 1 of %dx%d",
			info.Pages, info.Width, info.Height, surface.Width, surface.Height))
	}

	doc = &models.PdfDocument{
		Width:       surface.Width,
		Height:      surface.Height,
		Orientation: models.OrientationFor(surface.Width, surface.Height),
		Data:        data,
	}

	e.logger.Debug("Encoded pdf",
		logger.String("file", fileName),
		logger.Int("width", doc.Width),
		logger.Int("height", doc.Height),
		logger.String("orientation", string(doc.Orientation)),
		logger.Int("bytes", len(data)),
	)

	return doc, nil
}

func (e *Encoder) fail(fileName string, err error) error {
	e.logger.Error("Failed to encode pdf",
		logger.String("file", fileName),
		logger.Error(err),
	)
	return document.NewEncodeError(fileName, err)
}

func (e *Encoder) getBuffer() *bytes.Buffer {
	buf := e.buffers.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func (e *Encoder) putBuffer(buf *bytes.Buffer) {
	buf.Reset()
	e.buffers.Put(buf)
}

// importConfig places the image at full page size: the page takes the
// image's dimensions, one pixel per point.
func importConfig() *pdfcpu.Import {
	imp := pdfcpu.DefaultImportConfig()
	imp.Pos = types.Full
	return imp
}

// newConfiguration keeps the output to a classic xref table so that the
// read-back check and simple consumers can parse it.
func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func sameSize(info *PageInfo, width, height int) bool {
	return math.Abs(info.Width-float64(width)) < 0.5 && math.Abs(info.Height-float64(height)) < 0.5
}
