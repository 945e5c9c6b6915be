package converters

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/feichai0017/image2pdf/internal/models"
)

// BatchConverter turns a finished or aborted batch into a report.
type BatchConverter interface {
	Convert(state *models.BatchState, deliveries map[int]Delivery) (*BatchManifest, error)
}

// Delivery records where one result was stored. Key may differ from the
// derived file name when two inputs derive the same name.
type Delivery struct {
	Key      string
	Location string
}

// BatchManifest is the JSON summary written next to the delivered PDFs.
type BatchManifest struct {
	BatchID    string         `json:"batchId"`
	Status     string         `json:"status"`
	Progress   int            `json:"progress"`
	Items      []ManifestItem `json:"items"`
	Error      *ManifestError `json:"error,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// ManifestItem describes one delivered PDF.
type ManifestItem struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Location    string `json:"location,omitempty"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Orientation string `json:"orientation"`
	Bytes       int    `json:"bytes"`
}

// ManifestError names the file that stopped the batch.
type ManifestError struct {
	Input   string `json:"input"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// ManifestConverter 实现 BatchConverter
type ManifestConverter struct{}

func NewManifestConverter() *ManifestConverter {
	return &ManifestConverter{}
}

// Convert summarises state. deliveries is keyed by the index of the result
// in state.Results; results without a delivery keep their derived name and
// a blank location.
func (c *ManifestConverter) Convert(state *models.BatchState, deliveries map[int]Delivery) (*BatchManifest, error) {
	if state == nil {
		return nil, fmt.Errorf("no batch to convert")
	}

	manifest := &BatchManifest{
		BatchID:    state.ID,
		Status:     string(state.Status),
		Progress:   state.Progress,
		Items:      make([]ManifestItem, 0, len(state.Results)),
		StartedAt:  state.StartedAt,
		FinishedAt: state.FinishedAt,
	}

	for i, result := range state.Results {
		if !result.Succeeded() {
			manifest.Error = &ManifestError{
				Input:  result.InputName,
				Reason: string(result.Reason),
			}
			if result.Err != nil {
				manifest.Error.Message = result.Err.Error()
			}
			continue
		}

		doc := result.Document
		item := ManifestItem{
			Input:       result.InputName,
			Output:      result.FileName,
			Width:       doc.Width,
			Height:      doc.Height,
			Orientation: string(doc.Orientation),
			Bytes:       len(doc.Data),
		}
		if d, ok := deliveries[i]; ok {
			item.Output = d.Key
			item.Location = d.Location
		}
		manifest.Items = append(manifest.Items, item)
	}

	return manifest, nil
}

// Write encodes the manifest as indented JSON.
func (m *BatchManifest) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}
