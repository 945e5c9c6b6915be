package batch

import (
	"errors"
	"fmt"

	"github.com/feichai0017/image2pdf/internal/models"
)

var (
	ErrEmptyBatch = errors.New("empty batch")
	ErrItemFailed = errors.New("batch item failed")
)

// BatchError reports why a batch did not complete. For item failures it
// names the offending file and wraps the converter's error.
type BatchError struct {
	Reason   models.ErrorReason
	FileName string
	Index    int
	Err      error
}

func (e *BatchError) Error() string {
	switch e.Reason {
	case models.ReasonEmptyBatch:
		return "batch: no files to convert"
	default:
		return fmt.Sprintf("batch: converting %s (item %d) failed: %v", e.FileName, e.Index+1, e.Err)
	}
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

func (e *BatchError) Is(target error) bool {
	switch target {
	case ErrEmptyBatch:
		return e.Reason == models.ReasonEmptyBatch
	case ErrItemFailed:
		return e.Reason == models.ReasonItemFailed
	}
	return false
}
