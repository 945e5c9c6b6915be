package validator

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/feichai0017/image2pdf/internal/models"
	"github.com/feichai0017/image2pdf/pkg/logger"
)

var (
	ErrNoValidFiles = errors.New("no valid image files selected (JPG, PNG, GIF, BMP, TIFF, WebP, SVG)")
	ErrIndexRange   = errors.New("file index out of range")
)

// extToMIME covers the formats the platform tables commonly miss.
var extToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// ValidatorConfig lists what the selection accepts.
type ValidatorConfig struct {
	AllowedMimeTypes  []string
	AllowedExtensions []string
}

func DefaultConfig() *ValidatorConfig {
	return &ValidatorConfig{
		AllowedMimeTypes: []string{
			"image/jpeg", "image/jpg", "image/png", "image/gif",
			"image/bmp", "image/tiff", "image/webp",
		},
		AllowedExtensions: []string{".svg"},
	}
}

// Rejection explains why a candidate was not queued.
type Rejection struct {
	File   models.InputFile
	Code   string
	Reason string
}

const (
	CodeInvalidType = "INVALID_FILE_TYPE"
	CodeDuplicate   = "DUPLICATE_FILE"
)

// SelectionFilter keeps the ordered, de-duplicated queue of files the user
// picked. The queue is handed to the batch runner as is.
type SelectionFilter struct {
	logger    logger.Logger
	config    *ValidatorConfig
	mimeTypes map[string]bool
	mu        sync.RWMutex
	files     []models.InputFile
	seen      map[models.Key]bool
}

func NewSelectionFilter(log logger.Logger, config *ValidatorConfig) *SelectionFilter {
	if config == nil {
		config = DefaultConfig()
	}

	mimeTypes := make(map[string]bool, len(config.AllowedMimeTypes))
	for _, m := range config.AllowedMimeTypes {
		mimeTypes[strings.ToLower(m)] = true
	}

	return &SelectionFilter{
		logger:    log.Named("selection"),
		config:    config,
		mimeTypes: mimeTypes,
		seen:      make(map[models.Key]bool),
	}
}

// Accept reports whether the file's declared type or name is supported.
func (v *SelectionFilter) Accept(file models.InputFile) bool {
	if v.mimeTypes[strings.ToLower(file.MimeType)] {
		return true
	}
	name := strings.ToLower(file.Name)
	for _, ext := range v.config.AllowedExtensions {
		if strings.HasSuffix(name, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// Add queues every accepted candidate not already queued, in order. It
// returns ErrNoValidFiles when no candidate passes the type filter;
// duplicates alone are not an error.
func (v *SelectionFilter) Add(candidates ...models.InputFile) ([]models.InputFile, []Rejection, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var added []models.InputFile
	var rejected []Rejection
	valid := 0

	for _, file := range candidates {
		if !v.Accept(file) {
			rejected = append(rejected, Rejection{
				File:   file,
				Code:   CodeInvalidType,
				Reason: fmt.Sprintf("File type %q of %s is not allowed", file.MimeType, file.Name),
			})
			continue
		}
		valid++

		if v.seen[file.Key()] {
			rejected = append(rejected, Rejection{
				File:   file,
				Code:   CodeDuplicate,
				Reason: fmt.Sprintf("%s (%d bytes) is already selected", file.Name, file.Size),
			})
			continue
		}

		v.seen[file.Key()] = true
		v.files = append(v.files, file)
		added = append(added, file)
	}

	for _, r := range rejected {
		v.logger.Warn("File rejected",
			logger.String("file", r.File.Name),
			logger.String("code", r.Code),
		)
	}

	if valid == 0 {
		return nil, rejected, ErrNoValidFiles
	}
	return added, rejected, nil
}

// Remove drops the file at index from the queue.
func (v *SelectionFilter) Remove(index int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if index < 0 || index >= len(v.files) {
		return ErrIndexRange
	}
	delete(v.seen, v.files[index].Key())
	v.files = append(v.files[:index], v.files[index+1:]...)
	return nil
}

// Files returns a copy of the queue in selection order.
func (v *SelectionFilter) Files() []models.InputFile {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]models.InputFile, len(v.files))
	copy(out, v.files)
	return out
}

// Reset empties the queue.
func (v *SelectionFilter) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.files = nil
	v.seen = make(map[models.Key]bool)
}

// ReadInputFile loads a file from disk and declares its type the way a
// browser file picker would: by extension first, then by content sniffing.
func ReadInputFile(path string) (models.InputFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.InputFile{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.InputFile{}, fmt.Errorf("failed to read file: %w", err)
	}

	name := filepath.Base(path)
	return models.InputFile{
		Name:     name,
		Size:     int64(len(data)),
		MimeType: detectMimeType(name, data),
		Data:     data,
	}, nil
}

func detectMimeType(name string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if m, ok := extToMIME[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		if mediaType, _, err := mime.ParseMediaType(m); err == nil {
			return mediaType
		}
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(head))
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}
