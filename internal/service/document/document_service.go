package document

import (
	"context"

	"github.com/feichai0017/image2pdf/internal/models"
)

// Converter turns one InputFile into a single-page PDF. Failures are
// *document.DecodeError or *document.EncodeError from the agent packages,
// or the context error when ctx is done before work starts.
type Converter interface {
	Convert(ctx context.Context, file models.InputFile) (*models.PdfDocument, error)
}
