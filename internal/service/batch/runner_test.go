package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	agentdoc "github.com/feichai0017/image2pdf/internal/agent/document"
	"github.com/feichai0017/image2pdf/internal/models"
	"github.com/feichai0017/image2pdf/internal/service/document"
	"github.com/feichai0017/image2pdf/pkg/logger"
)

// fakeConverter fails for the names in failures and records every call.
type fakeConverter struct {
	calls    []string
	failures map[string]error
}

func (f *fakeConverter) Convert(_ context.Context, file models.InputFile) (*models.PdfDocument, error) {
	f.calls = append(f.calls, file.Name)
	if err, ok := f.failures[file.Name]; ok {
		return nil, err
	}
	return &models.PdfDocument{Width: 10, Height: 5, Orientation: models.Landscape, Data: []byte("%PDF-" + file.Name)}, nil
}

type progressEvent struct {
	percent int
	label   string
}

type recorder struct {
	progress []progressEvent
	items    []models.ConversionResult
}

func (r *recorder) onProgress(percent int, label string) {
	r.progress = append(r.progress, progressEvent{percent, label})
}

func (r *recorder) onItem(result models.ConversionResult) {
	r.items = append(r.items, result)
}

func files(names ...string) []models.InputFile {
	out := make([]models.InputFile, len(names))
	for i, name := range names {
		out[i] = models.InputFile{Name: name, Size: int64(i + 1)}
	}
	return out
}

func TestRunner_RunBatch_Completes(t *testing.T) {
	conv := &fakeConverter{}
	runner := NewRunner(conv, logger.NewTestLogger())
	rec := &recorder{}

	state, err := runner.RunBatch(context.Background(), files("a.png", "b.jpg", "c.svg"), rec.onProgress, rec.onItem)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.png", "b.jpg", "c.svg"}, conv.calls)
	assert.Equal(t, []progressEvent{
		{0, "Converting: a.png"},
		{33, "Converting: b.jpg"},
		{66, "Converting: c.svg"},
		{100, "Conversion complete"},
	}, rec.progress)

	require.Len(t, rec.items, 3)
	assert.Equal(t, "a.pdf", rec.items[0].FileName)
	assert.Equal(t, "b.pdf", rec.items[1].FileName)
	assert.Equal(t, "c.pdf", rec.items[2].FileName)
	for _, item := range rec.items {
		assert.True(t, item.Succeeded())
	}

	assert.Equal(t, models.StatusCompleted, state.Status)
	assert.Equal(t, 100, state.Progress)
	assert.Equal(t, 3, state.Index)
	assert.NotEmpty(t, state.ID)
	assert.False(t, state.FinishedAt.Before(state.StartedAt))
}

func TestRunner_RunBatch_ProgressMonotonic(t *testing.T) {
	runner := NewRunner(&fakeConverter{}, logger.NewTestLogger())
	rec := &recorder{}

	names := make([]string, 7)
	for i := range names {
		names[i] = fmt.Sprintf("img%d.png", i)
	}

	_, err := runner.RunBatch(context.Background(), files(names...), rec.onProgress, rec.onItem)
	require.NoError(t, err)

	require.Len(t, rec.progress, 8)
	for i := 1; i < len(rec.progress); i++ {
		assert.GreaterOrEqual(t, rec.progress[i].percent, rec.progress[i-1].percent)
	}
	// floor(i/n*100)
	assert.Equal(t, 14, rec.progress[1].percent)
	assert.Equal(t, 85, rec.progress[6].percent)
}

func TestRunner_RunBatch_FailFast(t *testing.T) {
	cause := agentdoc.NewDecodeError(models.ReasonUnreadableImage, "c.gif", errors.New("bad lzw"))
	conv := &fakeConverter{failures: map[string]error{"c.gif": cause}}
	tl := logger.NewTestLogger()
	runner := NewRunner(conv, tl)
	rec := &recorder{}

	state, err := runner.RunBatch(context.Background(),
		files("a.png", "b.png", "c.gif", "d.png", "e.png"), rec.onProgress, rec.onItem)
	require.Error(t, err)

	// k = 3: two successes, nothing after the failing file
	assert.Len(t, rec.items, 2)
	assert.Equal(t, []string{"a.png", "b.png", "c.gif"}, conv.calls)
	assert.Equal(t, progressEvent{40, "Converting: c.gif"}, rec.progress[len(rec.progress)-1])

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, models.ReasonItemFailed, be.Reason)
	assert.Equal(t, "c.gif", be.FileName)
	assert.Equal(t, 2, be.Index)
	assert.ErrorIs(t, err, ErrItemFailed)
	assert.ErrorIs(t, err, agentdoc.ErrUnreadableImage)

	var de *agentdoc.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Same(t, cause, de)

	assert.Equal(t, models.StatusAborted, state.Status)
	require.Len(t, state.Results, 3)
	assert.False(t, state.Results[2].Succeeded())
	assert.Equal(t, models.ReasonUnreadableImage, state.Results[2].Reason)
	assert.Contains(t, tl.Messages("ERROR"), "Batch aborted")
}

func TestRunner_RunBatch_EncodeFailure(t *testing.T) {
	conv := &fakeConverter{failures: map[string]error{
		"a.png": agentdoc.NewEncodeError("a.png", errors.New("boom")),
	}}
	runner := NewRunner(conv, logger.NewTestLogger())
	rec := &recorder{}

	_, err := runner.RunBatch(context.Background(), files("a.png", "b.png"), rec.onProgress, rec.onItem)
	assert.ErrorIs(t, err, agentdoc.ErrEncodeFailed)
	assert.Empty(t, rec.items)
	assert.Equal(t, []string{"a.png"}, conv.calls)
}

func TestRunner_RunBatch_Empty(t *testing.T) {
	conv := &fakeConverter{}
	runner := NewRunner(conv, logger.NewTestLogger())
	rec := &recorder{}

	state, err := runner.RunBatch(context.Background(), nil, rec.onProgress, rec.onItem)
	require.Error(t, err)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, models.ReasonEmptyBatch, be.Reason)

	assert.Empty(t, rec.progress)
	assert.Empty(t, rec.items)
	assert.Empty(t, conv.calls)
}

func TestRunner_RunBatch_NilCallbacks(t *testing.T) {
	runner := NewRunner(&fakeConverter{}, logger.NewTestLogger())

	state, err := runner.RunBatch(context.Background(), files("a.png"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, state.Status)
}

func TestRunner_RunBatch_CancelledBetweenItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	conv := &fakeConverter{}
	runner := NewRunner(conv, logger.NewTestLogger())

	onItem := func(models.ConversionResult) { cancel() }

	state, err := runner.RunBatch(ctx, files("a.png", "b.png", "c.png"), nil, onItem)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a.png"}, conv.calls)

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "b.png", be.FileName)
	assert.Equal(t, models.StatusAborted, state.Status)
}

func TestRunner_RunBatch_RealConverter(t *testing.T) {
	log := logger.FromZap(zaptest.NewLogger(t))
	runner := NewRunner(document.GetService(log, nil), log)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 12, 34))))

	input := []models.InputFile{
		{Name: "tall.png", Size: int64(buf.Len()), MimeType: "image/png", Data: buf.Bytes()},
		{Name: "logo.svg", Size: 10, MimeType: "image/svg+xml", Data: []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="300" height="150"/>`)},
		{Name: "broken.png", Size: 3, MimeType: "image/png", Data: []byte("xyz")},
		{Name: "never.png", Size: int64(buf.Len()), MimeType: "image/png", Data: buf.Bytes()},
	}

	rec := &recorder{}
	_, err := runner.RunBatch(context.Background(), input, rec.onProgress, rec.onItem)
	require.Error(t, err)

	require.Len(t, rec.items, 2)
	assert.Equal(t, "tall.pdf", rec.items[0].FileName)
	assert.Equal(t, models.Portrait, rec.items[0].Document.Orientation)
	assert.Equal(t, "logo.pdf", rec.items[1].FileName)
	assert.Equal(t, models.Landscape, rec.items[1].Document.Orientation)

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "broken.png", be.FileName)
	assert.ErrorIs(t, err, agentdoc.ErrUnreadableFile)
}

func TestRunner_RunBatch_OversizedSvgAbortsWithError(t *testing.T) {
	log := logger.FromZap(zaptest.NewLogger(t))
	runner := NewRunner(document.GetService(log, nil), log)

	input := []models.InputFile{
		{Name: "ok.svg", Size: 1, Data: []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"/>`)},
		{Name: "huge.svg", Size: 2, Data: []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="1e10" height="1e10"/>`)},
		{Name: "after.svg", Size: 3, Data: []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"/>`)},
	}

	rec := &recorder{}
	var err error
	require.NotPanics(t, func() {
		_, err = runner.RunBatch(context.Background(), input, rec.onProgress, rec.onItem)
	})

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, models.ReasonItemFailed, be.Reason)
	assert.Equal(t, "huge.svg", be.FileName)
	assert.ErrorIs(t, err, agentdoc.ErrUnreadableFile)
	assert.ErrorIs(t, err, agentdoc.ErrSurfaceTooLarge)
	assert.Len(t, rec.items, 1)
}
