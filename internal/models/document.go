package models

import (
	"image"
	"time"
)

// InputFile is a user-selected image. It is never mutated after selection.
type InputFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"-"`
}

// Key identifies a file within one selection batch.
type Key struct {
	Name string
	Size int64
}

func (f InputFile) Key() Key {
	return Key{Name: f.Name, Size: f.Size}
}

// DecodeStrategy picks the decode path for an InputFile.
type DecodeStrategy int

const (
	RasterNative DecodeStrategy = iota
	SvgRasterize
)

func (s DecodeStrategy) String() string {
	switch s {
	case RasterNative:
		return "raster-native"
	case SvgRasterize:
		return "svg-rasterize"
	default:
		return "unknown"
	}
}

// RasterSurface is a decoded pixel grid anchored at (0,0).
type RasterSurface struct {
	Width  int
	Height int
	Pixels *image.NRGBA
}

// Release drops the surface's reference to its pixel buffer. The buffer
// becomes collectable as soon as the encoder is done with it, even while
// the surface itself is still referenced (by a decoder cache, a test, or a
// caller still holding the pointer). Pixels is nil afterwards.
func (s *RasterSurface) Release() {
	if s != nil {
		s.Pixels = nil
	}
}

// Orientation of a PDF page.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// OrientationFor returns landscape only when the page is strictly wider
// than tall.
func OrientationFor(width, height int) Orientation {
	if width > height {
		return Landscape
	}
	return Portrait
}

// PdfDocument is a finished single-page PDF. Width and Height are in
// pixel units, one pixel per PDF point.
type PdfDocument struct {
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Orientation Orientation `json:"orientation"`
	Data        []byte      `json:"-"`
}

// ErrorReason names why a conversion or batch failed.
type ErrorReason string

const (
	ReasonUnreadableFile  ErrorReason = "unreadable-file"
	ReasonUnreadableImage ErrorReason = "unreadable-image"
	ReasonEncodeFailed    ErrorReason = "encode-failed"
	ReasonEmptyBatch      ErrorReason = "empty-batch"
	ReasonItemFailed      ErrorReason = "item-failed"
)

// ConversionResult is either a success (Document set, Err nil) or a
// failure (Err set, Reason describing it).
type ConversionResult struct {
	InputName string       `json:"inputName"`
	FileName  string       `json:"fileName,omitempty"`
	Document  *PdfDocument `json:"document,omitempty"`
	Reason    ErrorReason  `json:"reason,omitempty"`
	Err       error        `json:"-"`
}

func (r ConversionResult) Succeeded() bool {
	return r.Err == nil && r.Document != nil
}

// BatchStatus is the runner's state machine.
type BatchStatus string

const (
	StatusIdle      BatchStatus = "idle"
	StatusRunning   BatchStatus = "running"
	StatusCompleted BatchStatus = "completed"
	StatusAborted   BatchStatus = "aborted"
)

// BatchState is owned by the pipeline runner for the duration of one batch.
type BatchState struct {
	ID         string             `json:"id"`
	Files      []InputFile        `json:"files"`
	Index      int                `json:"index"`
	Results    []ConversionResult `json:"results"`
	Progress   int                `json:"progress"`
	Status     BatchStatus        `json:"status"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt,omitempty"`
}

// Total is the number of files in the batch.
func (b *BatchState) Total() int {
	return len(b.Files)
}
