package document

import (
	"context"

	"github.com/feichai0017/image2pdf/internal/models"
)

// Decoder turns an InputFile into a RasterSurface.
type Decoder interface {
	// Strategy reports which decode path the decoder implements.
	Strategy() models.DecodeStrategy

	// Decode reads the file and renders it onto a fresh surface. Failures
	// are returned as *DecodeError.
	Decode(ctx context.Context, file models.InputFile) (*models.RasterSurface, error)
}
