package svg

import (
	"context"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/feichai0017/image2pdf/internal/agent/document"
	"github.com/feichai0017/image2pdf/internal/models"
	"github.com/feichai0017/image2pdf/pkg/logger"
)

var white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

func newProcessor(t *testing.T, cfg *Config) *Processor {
	return NewProcessor(logger.FromZap(zaptest.NewLogger(t)), cfg)
}

func decode(t *testing.T, p *Processor, markup string) (*models.RasterSurface, error) {
	t.Helper()
	return p.Decode(context.Background(), models.InputFile{
		Name:     "drawing.svg",
		Size:     int64(len(markup)),
		MimeType: "image/svg+xml",
		Data:     []byte(markup),
	})
}

func TestProcessor_Decode_ExplicitSize(t *testing.T) {
	p := newProcessor(t, nil)
	assert.Equal(t, models.SvgRasterize, p.Strategy())

	surface, err := decode(t, p, `<svg xmlns="http://www.w3.org/2000/svg" width="300" height="150">
  <rect x="0" y="0" width="10" height="10" fill="blue"/>
</svg>`)
	require.NoError(t, err)

	assert.Equal(t, 300, surface.Width)
	assert.Equal(t, 150, surface.Height)
	assert.Equal(t, 300, surface.Pixels.Bounds().Dx())
	assert.Equal(t, 150, surface.Pixels.Bounds().Dy())
}

func TestProcessor_Decode_FallbackSize(t *testing.T) {
	p := newProcessor(t, nil)

	surface, err := decode(t, p, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 50 50">
  <circle cx="25" cy="25" r="20" fill="green"/>
</svg>`)
	require.NoError(t, err)

	assert.Equal(t, 800, surface.Width)
	assert.Equal(t, 600, surface.Height)
}

func TestProcessor_Decode_ConfiguredFallback(t *testing.T) {
	p := newProcessor(t, &Config{FallbackWidth: 640, FallbackHeight: 480})

	surface, err := decode(t, p, `<svg xmlns="http://www.w3.org/2000/svg"></svg>`)
	require.NoError(t, err)

	assert.Equal(t, 640, surface.Width)
	assert.Equal(t, 480, surface.Height)
}

func TestProcessor_Decode_WhiteBackground(t *testing.T) {
	p := newProcessor(t, nil)

	surface, err := decode(t, p, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100">
  <rect x="10" y="10" width="20" height="20" fill="#ff0000"/>
</svg>`)
	require.NoError(t, err)

	assert.Equal(t, white, surface.Pixels.NRGBAAt(0, 0))
	assert.Equal(t, white, surface.Pixels.NRGBAAt(90, 90))
	assert.Equal(t, white, surface.Pixels.NRGBAAt(99, 99))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, surface.Pixels.NRGBAAt(20, 20))

	for y := 0; y < surface.Height; y += 7 {
		for x := 0; x < surface.Width; x += 7 {
			assert.Equal(t, uint8(255), surface.Pixels.NRGBAAt(x, y).A, "pixel %d,%d not opaque", x, y)
		}
	}
}

func TestProcessor_Decode_NoScalingWithoutIntrinsicSize(t *testing.T) {
	p := newProcessor(t, nil)

	surface, err := decode(t, p, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 40 40">
  <rect x="0" y="0" width="40" height="40" fill="#000000"/>
</svg>`)
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{A: 255}, surface.Pixels.NRGBAAt(20, 20))
	assert.Equal(t, white, surface.Pixels.NRGBAAt(60, 60))
}

func TestProcessor_Decode_Errors(t *testing.T) {
	p := newProcessor(t, nil)

	tests := []struct {
		name   string
		markup string
	}{
		{"malformed", `<svg xmlns="http://www.w3.org/2000/svg"><rect></svg>`},
		{"unclosed", `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10">`},
		{"not svg", `<html><body>hello</body></html>`},
		{"plain text", `hello world`},
		{"invalid utf8", string([]byte{'<', 's', 'v', 'g', 0xff, 0xfe, '>'})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(t, p, tt.markup)
			require.Error(t, err)

			var de *document.DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, models.ReasonUnreadableFile, de.Reason)
			assert.Equal(t, "drawing.svg", de.FileName)
		})
	}
}

func TestIntrinsicSize(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		w, h   int
		ok     bool
	}{
		{"unitless", `<svg width="300" height="150"/>`, 300, 150, true},
		{"px", `<svg width="120px" height="80px"/>`, 120, 80, true},
		{"inches", `<svg width="1in" height="2in"/>`, 96, 192, true},
		{"points", `<svg width="72pt" height="36pt"/>`, 96, 48, true},
		{"percent", `<svg width="100%" height="100%"/>`, 0, 0, false},
		{"missing height", `<svg width="300"/>`, 0, 0, false},
		{"zero", `<svg width="0" height="10"/>`, 0, 0, false},
		{"em", `<svg width="10em" height="10em"/>`, 0, 0, false},
		{"saturates", `<svg width="1e30" height="2"/>`, math.MaxInt32, 2, true},
		{"bom and prolog", "<?xml version=\"1.0\"?>\n<!-- c -->\n<svg width=\"5\" height=\"6\"></svg>", 5, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, ok, err := intrinsicSize([]byte(tt.markup))
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestProcessor_Decode_TooLarge(t *testing.T) {
	tests := []struct {
		name   string
		cfg    *Config
		markup string
	}{
		{"exponent size", nil, `<svg xmlns="http://www.w3.org/2000/svg" width="1e10" height="1e10"/>`},
		{"beyond int range", nil, `<svg xmlns="http://www.w3.org/2000/svg" width="1e300" height="1"/>`},
		{"large but finite", nil, `<svg xmlns="http://www.w3.org/2000/svg" width="100000" height="100000"/>`},
		{"configured cap", &Config{MaxPixels: 1000}, `<svg xmlns="http://www.w3.org/2000/svg" width="40" height="30"/>`},
		{"fallback over cap", &Config{MaxPixels: 1000}, `<svg xmlns="http://www.w3.org/2000/svg"/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProcessor(t, tt.cfg)

			var err error
			require.NotPanics(t, func() {
				_, err = decode(t, p, tt.markup)
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, document.ErrSurfaceTooLarge)

			var de *document.DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, models.ReasonUnreadableFile, de.Reason)
		})
	}
}

func TestProcessor_Decode_WithinConfiguredCap(t *testing.T) {
	p := newProcessor(t, &Config{MaxPixels: 1000})

	surface, err := decode(t, p, `<svg xmlns="http://www.w3.org/2000/svg" width="1in" height="10"/>`)
	require.NoError(t, err)
	assert.Equal(t, 96, surface.Width)
	assert.Equal(t, 10, surface.Height)
	assert.Equal(t, white, surface.Pixels.NRGBAAt(95, 9))
}
