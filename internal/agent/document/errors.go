package document

import (
	"errors"
	"fmt"

	"github.com/feichai0017/image2pdf/internal/models"
)

var (
	ErrUnreadableFile  = errors.New("unreadable file")
	ErrUnreadableImage = errors.New("unreadable image")
	ErrEncodeFailed    = errors.New("encode failed")
)

// DecodeError is returned when a file cannot be turned into pixels.
type DecodeError struct {
	Reason   models.ErrorReason
	FileName string
	Err      error
}

func NewDecodeError(reason models.ErrorReason, fileName string, err error) *DecodeError {
	return &DecodeError{Reason: reason, FileName: fileName, Err: err}
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode %s: %s", e.FileName, e.Reason)
	}
	return fmt.Sprintf("decode %s: %s: %v", e.FileName, e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the reason sentinels.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrUnreadableFile:
		return e.Reason == models.ReasonUnreadableFile
	case ErrUnreadableImage:
		return e.Reason == models.ReasonUnreadableImage
	}
	return false
}

// EncodeError is returned when a surface cannot be written as a PDF.
// It is never retried.
type EncodeError struct {
	Reason   models.ErrorReason
	FileName string
	Err      error
}

func NewEncodeError(fileName string, err error) *EncodeError {
	return &EncodeError{Reason: models.ReasonEncodeFailed, FileName: fileName, Err: err}
}

func (e *EncodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("encode %s: %s", e.FileName, e.Reason)
	}
	return fmt.Sprintf("encode %s: %s: %v", e.FileName, e.Reason, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

func (e *EncodeError) Is(target error) bool {
	return target == ErrEncodeFailed
}

// ReasonOf extracts the failure reason from a decode or encode error.
func ReasonOf(err error) (models.ErrorReason, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Reason, true
	}
	var ee *EncodeError
	if errors.As(err, &ee) {
		return ee.Reason, true
	}
	return "", false
}
