package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/plastinin/comictranslate/cmd/comictl/ui"
	"github.com/plastinin/comictranslate/internal/adapter/backend"
	"github.com/plastinin/comictranslate/internal/adapter/imaging"
	"github.com/plastinin/comictranslate/internal/domain"
	"github.com/plastinin/comictranslate/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	sourceLanguage string
	targetLanguage string
	extraContext   string
	outputPath     string
	pdfPage        int
	restarts       int
	noGPU          bool
	stageTimeout   time.Duration
	pacingDelay    time.Duration
)

var translateCmd = &cobra.Command{
	Use:   "translate <file>",
	Short: "Translate a comic page",
	Long: `Upload an image (PNG, JPEG, WEBP) or a PDF page, run every pipeline stage and
save the translated image. Ctrl-C cancels the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().StringVarP(&sourceLanguage, "source", "s", "Japanese", "source language")
	translateCmd.Flags().StringVarP(&targetLanguage, "target", "t", "Vietnamese", "target language")
	translateCmd.Flags().StringVar(&extraContext, "context", "", "extra context for the translator")
	translateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default translated_comic_<name><ext>)")
	translateCmd.Flags().IntVar(&pdfPage, "page", 1, "page to translate when the input is a PDF")
	translateCmd.Flags().IntVar(&restarts, "restarts", 0, "restart a failed run up to N times")
	translateCmd.Flags().BoolVar(&noGPU, "no-gpu", false, "ask the service to run on CPU")
	translateCmd.Flags().DurationVar(&stageTimeout, "stage-timeout", 0, "timeout of a single stage (overrides PIPELINE_STAGE_TIMEOUT)")
	translateCmd.Flags().DurationVar(&pacingDelay, "pacing", -1, "pause between stages (overrides PIPELINE_PACING_DELAY)")
	rootCmd.AddCommand(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	languages := domain.LanguagePair{Source: sourceLanguage, Target: targetLanguage}
	if err := languages.Validate(); err != nil {
		return err
	}
	for _, lang := range []string{languages.Source, languages.Target} {
		if !domain.IsSupportedLanguage(lang) {
			ui.Warning("%q is not in the list of supported languages", lang)
		}
	}
	if restarts < 0 {
		return fmt.Errorf("%w: --restarts must not be negative", domain.ErrInvalidInput)
	}

	fileName, contentType, data, err := readInput(args[0], pdfPage)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(cfg.Backend, log)

	ui.Section("Comic translation")
	ui.Info("File: %s (%s)", fileName, languages)

	workItemID, err := client.Upload(ctx, fileName, contentType, data, languages)
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}
	ui.Success("Uploaded, work item %s", workItemID)

	seqCfg := usecase.SequencerConfig{
		PacingDelay:  cfg.Pipeline.PacingDelay,
		StageTimeout: cfg.Pipeline.StageTimeout,
		ExtraContext: extraContext,
		UseGPU:       cfg.Pipeline.UseGPU && !noGPU,
	}
	if stageTimeout > 0 {
		seqCfg.StageTimeout = stageTimeout
	}
	if pacingDelay >= 0 {
		seqCfg.PacingDelay = pacingDelay
	}

	seq := usecase.NewSequencer(client, seqCfg, log.With(zap.String("work_item_id", workItemID)))

	final, err := drive(ctx, seq, workItemID, languages, restarts)
	if err != nil {
		return err
	}

	switch {
	case final.State == domain.RunStateCompleted:
	case errors.Is(final.LastError, domain.ErrCancelled):
		ui.Warning("Translation cancelled")
		return final.LastError
	default:
		return fmt.Errorf("translation failed: %w", final.LastError)
	}

	target := outputPath
	if target == "" {
		target = defaultOutputPath(args[0], final.Result.ContentType)
	}
	if err := os.WriteFile(target, final.Result.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	ui.Success("Saved %s (%d bytes)", target, len(final.Result.Data))
	return nil
}

// drive выполняет запуск и перезапускает его после ошибки, пока есть попытки.
// Отменённый запуск не перезапускается.
func drive(ctx context.Context, seq *usecase.Sequencer, workItemID string, languages domain.LanguagePair, restarts int) (domain.Snapshot, error) {
	var (
		mu       sync.Mutex
		progress *ui.RunProgress
	)
	current := func() *ui.RunProgress {
		mu.Lock()
		defer mu.Unlock()
		return progress
	}

	unsubscribe := seq.Subscribe(func(snap domain.Snapshot) {
		if p := current(); p != nil {
			p.Update(snap)
		}
	})
	defer unsubscribe()

	start := func(first bool) error {
		mu.Lock()
		progress = ui.NewRunProgress()
		mu.Unlock()
		if first {
			return seq.Start(ctx, workItemID, languages)
		}
		return seq.Restart(ctx)
	}

	if err := start(true); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to start translation: %w", err)
	}

	for attempt := 0; ; attempt++ {
		final, err := seq.Wait(context.Background())
		current().Finish()
		if err != nil {
			return final, err
		}

		if final.State == domain.RunStateCompleted || errors.Is(final.LastError, domain.ErrCancelled) || attempt >= restarts {
			return final, nil
		}

		ui.Error("%s", final.ErrorMessage())
		ui.Info("Restarting (%d of %d)", attempt+1, restarts)
		if err := start(false); err != nil {
			return final, fmt.Errorf("failed to restart translation: %w", err)
		}
	}
}

// readInput читает файл и приводит его к изображению
func readInput(path string, page int) (string, string, []byte, error) {
	contentType, err := domain.ContentTypeFromFileName(path)
	if err != nil {
		return "", "", nil, fmt.Errorf("%s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to read input: %w", err)
	}

	if page < 1 {
		return "", "", nil, fmt.Errorf("%w: page numbers start at 1", domain.ErrInvalidInput)
	}

	return imaging.NewPDFConverter().Prepare(filepath.Base(path), contentType, data, page-1)
}

// defaultOutputPath translated_comic_<name><ext> рядом с исходным файлом
func defaultOutputPath(input, contentType string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name := "translated_comic_" + base + domain.ExtensionForContentType(contentType)
	return filepath.Join(filepath.Dir(input), name)
}
