package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/feichai0017/image2pdf/cmd/img2pdf/ui"
	"github.com/feichai0017/image2pdf/config"
	"github.com/feichai0017/image2pdf/internal/models"
	"github.com/feichai0017/image2pdf/internal/service/batch"
	"github.com/feichai0017/image2pdf/internal/service/document"
	"github.com/feichai0017/image2pdf/internal/utils/validator"
	"github.com/feichai0017/image2pdf/pkg/converters"
	"github.com/feichai0017/image2pdf/pkg/logger"
	"github.com/feichai0017/image2pdf/pkg/storage"
)

var (
	convertOutDir   string
	convertStorage  string
	convertManifest string
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert images to PDF, one page per image",
	Long: `Convert each image into its own single-page PDF. Files are processed in
order and the batch stops at the first file that cannot be converted.
PDFs converted before the failure are kept.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutDir, "out", "o", "", "output directory for the local backend")
	convertCmd.Flags().StringVar(&convertStorage, "storage", "", "storage backend: local, minio or s3")
	convertCmd.Flags().StringVar(&convertManifest, "manifest", "", "write a JSON batch manifest to this path")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("out") {
		cfg.Storage.OutputDir = convertOutDir
	}
	if cmd.Flags().Changed("storage") {
		cfg.Storage.Type = convertStorage
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	files, err := selectFiles(log, args)
	if err != nil {
		return err
	}

	store, err := storage.NewStorage(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	converter := document.GetService(log, &document.ServiceConfig{
		SvgFallbackWidth:  cfg.Convert.SvgFallbackWidth,
		SvgFallbackHeight: cfg.Convert.SvgFallbackHeight,
		MaxPixels:         cfg.Convert.MaxPixels,
	})
	runner := batch.NewRunner(converter, log)

	ui.Info("Converting %d file(s)", len(files))

	d := newDeliverer(ctx, store, log)
	bar := ui.NewProgressBar("Starting")

	state, runErr := runner.RunBatch(d.ctx, files, bar.Update, d.deliver)
	if runErr == nil {
		bar.Finish()
	} else {
		bar.Abort()
	}
	d.cancel()

	if convertManifest != "" && state != nil {
		if err := writeManifest(convertManifest, state, d.deliveries); err != nil {
			ui.Error("Failed to write manifest: %v", err)
		}
	}

	printDelivered(state, d.deliveries)

	if d.err != nil {
		return fmt.Errorf("delivery failed: %w", d.err)
	}
	if runErr != nil {
		var be *batch.BatchError
		if errors.As(runErr, &be) && be.FileName != "" {
			ui.Error("Conversion stopped at %s", be.FileName)
		}
		return runErr
	}

	ui.Success("Converted %d file(s)", state.Total())
	return nil
}

// selectFiles loads paths from disk and filters them like a file picker.
func selectFiles(log logger.Logger, paths []string) ([]models.InputFile, error) {
	candidates := make([]models.InputFile, 0, len(paths))
	for _, path := range paths {
		file, err := validator.ReadInputFile(path)
		if err != nil {
			ui.Warning("Skipping %s: %v", path, err)
			continue
		}
		candidates = append(candidates, file)
	}

	filter := validator.NewSelectionFilter(log, nil)
	_, rejected, err := filter.Add(candidates...)
	for _, r := range rejected {
		ui.Warning("%s", r.Reason)
	}
	if err != nil {
		return nil, err
	}
	return filter.Files(), nil
}

// deliverer hands each converted PDF to storage as soon as it is ready.
// A storage failure cancels the batch before the next file starts.
type deliverer struct {
	ctx        context.Context
	cancel     context.CancelFunc
	store      storage.Storage
	logger     logger.Logger
	mu         sync.Mutex
	next       int
	used       map[string]bool
	deliveries map[int]converters.Delivery
	err        error
}

func newDeliverer(ctx context.Context, store storage.Storage, log logger.Logger) *deliverer {
	ctx, cancel := context.WithCancel(ctx)
	return &deliverer{
		ctx:        ctx,
		cancel:     cancel,
		store:      store,
		logger:     log,
		used:       make(map[string]bool),
		deliveries: make(map[int]converters.Delivery),
	}
}

// uniqueKey returns name, or "name (n).ext" when an earlier result of
// this batch already took it. Callers hold d.mu.
func (d *deliverer) uniqueKey(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	key := name
	for n := 1; d.used[key]; n++ {
		key = fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
	d.used[key] = true
	return key
}

// deliver is called once per success in input order. The runner stops at
// the first failure, so the n-th call belongs to state.Results[n].
func (d *deliverer) deliver(result models.ConversionResult) {
	d.mu.Lock()
	index := d.next
	d.next++
	key := d.uniqueKey(result.FileName)
	d.mu.Unlock()

	if key != result.FileName {
		d.logger.Warn("Output name already used in this batch",
			logger.String("input", result.InputName),
			logger.String("name", result.FileName),
			logger.String("key", key),
		)
	}

	location, err := d.store.Store(d.ctx, bytes.NewReader(result.Document.Data), key)

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		d.logger.Error("Failed to deliver PDF",
			logger.String("file", key),
			logger.Error(err),
		)
		if d.err == nil {
			d.err = fmt.Errorf("%s: %w", key, err)
		}
		d.cancel()
		return
	}
	d.deliveries[index] = converters.Delivery{Key: key, Location: location}
}

func writeManifest(path string, state *models.BatchState, deliveries map[int]converters.Delivery) error {
	manifest, err := converters.NewManifestConverter().Convert(state, deliveries)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	if err := manifest.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printDelivered(state *models.BatchState, deliveries map[int]converters.Delivery) {
	if state == nil {
		return
	}

	rows := make([][]string, 0, len(state.Results))
	for i, r := range state.Results {
		delivery, ok := deliveries[i]
		if !r.Succeeded() || !ok {
			continue
		}
		rows = append(rows, []string{
			r.InputName,
			fmt.Sprintf("%dx%d %s", r.Document.Width, r.Document.Height, r.Document.Orientation),
			ui.HumanBytes(len(r.Document.Data)),
			delivery.Location,
		})
	}
	if len(rows) > 0 {
		ui.Table([]string{"INPUT", "PAGE", "SIZE", "PDF"}, rows)
	}
}
