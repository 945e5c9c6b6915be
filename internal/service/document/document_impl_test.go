package document

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/feichai0017/image2pdf/internal/agent"
	agentdoc "github.com/feichai0017/image2pdf/internal/agent/document"
	"github.com/feichai0017/image2pdf/internal/agent/document/pdf"
	"github.com/feichai0017/image2pdf/internal/models"
	"github.com/feichai0017/image2pdf/pkg/logger"
)

var volatile = regexp.MustCompile(`\(D:[^)]*\)|/ID\s*\[[^\]]*\]`)

func newService(t *testing.T) *ConverterService {
	return GetService(logger.FromZap(zaptest.NewLogger(t)), nil)
}

func pngFile(t *testing.T, name string, width, height int) models.InputFile {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return models.InputFile{Name: name, Size: int64(buf.Len()), MimeType: "image/png", Data: buf.Bytes()}
}

func svgFile(name, markup string) models.InputFile {
	return models.InputFile{Name: name, Size: int64(len(markup)), MimeType: "image/svg+xml", Data: []byte(markup)}
}

func TestConverterService_Convert_Raster(t *testing.T) {
	svc := newService(t)

	doc, err := svc.Convert(context.Background(), pngFile(t, "wide.png", 320, 200))
	require.NoError(t, err)
	assert.Equal(t, 320, doc.Width)
	assert.Equal(t, 200, doc.Height)
	assert.Equal(t, models.Landscape, doc.Orientation)

	info, err := pdf.Inspect(doc.Data)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Pages)
	assert.InDelta(t, 320, info.Width, 0.01)
	assert.InDelta(t, 200, info.Height, 0.01)
}

func TestConverterService_Convert_JPEGPortrait(t *testing.T) {
	svc := newService(t)

	img := image.NewRGBA(image.Rect(0, 0, 60, 90))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))

	doc, err := svc.Convert(context.Background(), models.InputFile{
		Name: "photo.JPEG", Size: int64(buf.Len()), MimeType: "image/jpeg", Data: buf.Bytes(),
	})
	require.NoError(t, err)
	assert.Equal(t, 60, doc.Width)
	assert.Equal(t, 90, doc.Height)
	assert.Equal(t, models.Portrait, doc.Orientation)
}

func TestConverterService_Convert_Svg(t *testing.T) {
	svc := newService(t)

	t.Run("explicit size", func(t *testing.T) {
		doc, err := svc.Convert(context.Background(), svgFile("banner.svg",
			`<svg xmlns="http://www.w3.org/2000/svg" width="300" height="150"><rect width="300" height="150" fill="red"/></svg>`))
		require.NoError(t, err)
		assert.Equal(t, 300, doc.Width)
		assert.Equal(t, 150, doc.Height)
		assert.Equal(t, models.Landscape, doc.Orientation)
	})

	t.Run("fallback size", func(t *testing.T) {
		doc, err := svc.Convert(context.Background(), svgFile("icon.SVG",
			`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><circle cx="5" cy="5" r="4"/></svg>`))
		require.NoError(t, err)
		assert.Equal(t, 800, doc.Width)
		assert.Equal(t, 600, doc.Height)

		info, err := pdf.Inspect(doc.Data)
		require.NoError(t, err)
		assert.InDelta(t, 800, info.Width, 0.01)
		assert.InDelta(t, 600, info.Height, 0.01)
	})
}

func TestConverterService_Convert_DecodeErrors(t *testing.T) {
	svc := newService(t)

	_, err := svc.Convert(context.Background(), models.InputFile{Name: "fake.png", Data: []byte("GIF? no")})
	assert.ErrorIs(t, err, agentdoc.ErrUnreadableFile)

	_, err = svc.Convert(context.Background(), svgFile("broken.svg", `<svg><g></svg>`))
	assert.ErrorIs(t, err, agentdoc.ErrUnreadableFile)

	var de *agentdoc.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "broken.svg", de.FileName)
}

func TestConverterService_Convert_Idempotent(t *testing.T) {
	svc := newService(t)
	file := pngFile(t, "same.png", 48, 32)

	first, err := svc.Convert(context.Background(), file)
	require.NoError(t, err)
	second, err := svc.Convert(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, volatile.ReplaceAll(first.Data, nil), volatile.ReplaceAll(second.Data, nil))
}

func TestConverterService_Convert_WaitsForBuffer(t *testing.T) {
	svc := newService(t)

	// hold the only slot so the next call has to wait
	require.NoError(t, svc.sem.Acquire(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Convert(ctx, pngFile(t, "queued.png", 4, 4))
	assert.ErrorIs(t, err, context.Canceled)

	svc.sem.Release(1)
	_, err = svc.Convert(context.Background(), pngFile(t, "queued.png", 4, 4))
	assert.NoError(t, err)
}

// keepingDecoder hands out surfaces from the real decoder and keeps them so
// the test can look at them after Convert returns.
type keepingDecoder struct {
	agentdoc.Decoder
	surfaces []*models.RasterSurface
}

func (d *keepingDecoder) Decode(ctx context.Context, file models.InputFile) (*models.RasterSurface, error) {
	surface, err := d.Decoder.Decode(ctx, file)
	if surface != nil {
		d.surfaces = append(d.surfaces, surface)
	}
	return surface, err
}

func TestConverterService_Convert_ReleasesSurface(t *testing.T) {
	log := logger.FromZap(zaptest.NewLogger(t))
	factory := agent.NewProcessorFactory(log, nil)
	_, raster, err := factory.GetDecoder(models.InputFile{Name: "a.png"})
	require.NoError(t, err)

	keeper := &keepingDecoder{Decoder: raster}
	factory.Register(keeper)
	svc := NewService(factory, pdf.NewEncoder(log), log)

	doc, err := svc.Convert(context.Background(), pngFile(t, "kept.png", 6, 4))
	require.NoError(t, err)
	assert.Equal(t, 6, doc.Width)

	_, err = svc.Convert(context.Background(), pngFile(t, "second.png", 3, 3))
	require.NoError(t, err)

	require.Len(t, keeper.surfaces, 2)
	for _, s := range keeper.surfaces {
		assert.Nil(t, s.Pixels)
	}
}

func TestConverterService_Convert_OversizedInputs(t *testing.T) {
	svc := newService(t)

	_, err := svc.Convert(context.Background(), svgFile("huge.svg", `<svg xmlns="http://www.w3.org/2000/svg" width="1e10" height="1e10"/>`))
	assert.ErrorIs(t, err, agentdoc.ErrSurfaceTooLarge)
	assert.ErrorIs(t, err, agentdoc.ErrUnreadableFile)

	small := GetService(logger.FromZap(zaptest.NewLogger(t)), &ServiceConfig{MaxPixels: 100})
	_, err = small.Convert(context.Background(), pngFile(t, "wide.png", 20, 20))
	assert.ErrorIs(t, err, agentdoc.ErrSurfaceTooLarge)
}
