package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	agentdoc "github.com/feichai0017/image2pdf/internal/agent/document"
	"github.com/feichai0017/image2pdf/internal/models"
	"github.com/feichai0017/image2pdf/internal/service/document"
	"github.com/feichai0017/image2pdf/pkg/logger"
)

const (
	labelConverting = "Converting: %s"
	labelCompleted  = "Conversion complete"
)

// ProgressFunc receives the overall percentage (0-100) and a label naming
// the file about to be converted.
type ProgressFunc func(percent int, label string)

// ItemFunc receives each successful conversion, in input order.
type ItemFunc func(result models.ConversionResult)

// Runner converts a queue of files one at a time and stops at the first
// failure.
type Runner struct {
	converter document.Converter
	logger    logger.Logger
	now       func() time.Time
}

func NewRunner(converter document.Converter, log logger.Logger) *Runner {
	return &Runner{
		converter: converter,
		logger:    log.Named("batch"),
		now:       time.Now,
	}
}

// RunBatch converts files strictly in order. The returned state is nil
// only for an empty batch; otherwise it reflects how far the batch got,
// including on abort.
func (r *Runner) RunBatch(ctx context.Context, files []models.InputFile, onProgress ProgressFunc, onItem ItemFunc) (*models.BatchState, error) {
	if len(files) == 0 {
		return nil, &BatchError{Reason: models.ReasonEmptyBatch, Err: ErrEmptyBatch}
	}
	if onProgress == nil {
		onProgress = func(int, string) {}
	}
	if onItem == nil {
		onItem = func(models.ConversionResult) {}
	}

	state := &models.BatchState{
		ID:        uuid.New().String(),
		Files:     append([]models.InputFile(nil), files...),
		Results:   make([]models.ConversionResult, 0, len(files)),
		Status:    models.StatusRunning,
		StartedAt: r.now(),
	}

	log := r.logger.With(logger.String("batch_id", state.ID))
	log.Info("Batch started", logger.Int("files", state.Total()))

	for i, file := range state.Files {
		state.Index = i
		state.Progress = i * 100 / state.Total()
		onProgress(state.Progress, fmt.Sprintf(labelConverting, file.Name))

		doc, err := r.convert(ctx, file)
		if err != nil {
			reason, _ := agentdoc.ReasonOf(err)
			state.Results = append(state.Results, models.ConversionResult{
				InputName: file.Name,
				Reason:    reason,
				Err:       err,
			})
			state.Status = models.StatusAborted
			state.FinishedAt = r.now()

			log.Error("Batch aborted",
				logger.String("file", file.Name),
				logger.Int("index", i),
				logger.Int("progress", state.Progress),
				logger.Error(err),
			)
			return state, &BatchError{
				Reason:   models.ReasonItemFailed,
				FileName: file.Name,
				Index:    i,
				Err:      err,
			}
		}

		result := models.ConversionResult{
			InputName: file.Name,
			FileName:  DeriveFileName(file.Name),
			Document:  doc,
		}
		state.Results = append(state.Results, result)
		onItem(result)
	}

	state.Index = state.Total()
	state.Progress = 100
	state.Status = models.StatusCompleted
	state.FinishedAt = r.now()
	onProgress(state.Progress, labelCompleted)

	log.Info("Batch completed",
		logger.Int("files", state.Total()),
		logger.Duration("elapsed", state.FinishedAt.Sub(state.StartedAt)),
	)

	return state, nil
}

// convert refuses to start a new file once ctx is done.
func (r *Runner) convert(ctx context.Context, file models.InputFile) (*models.PdfDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.converter.Convert(ctx, file)
}
