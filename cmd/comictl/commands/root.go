package commands

import (
	"os"

	"github.com/plastinin/comictranslate/cmd/comictl/ui"
	"github.com/plastinin/comictranslate/internal/config"
	"github.com/plastinin/comictranslate/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	backendURL string
	verbose    bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "comictl",
	Short: "Translate comic pages with the remote translation service",
	Long: `comictl uploads a comic page to the translation service, drives it through
detection, OCR, translation, inpainting and rendering, and saves the translated image.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Init(noColor)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "translation service API URL (overrides BACKEND_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute запускает корневую команду
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig загружает конфигурацию и применяет флаги командной строки
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if backendURL != "" {
		cfg.Backend.URL = backendURL
	}
	return cfg, nil
}

// newLogger логгер CLI пишет в stderr, чтобы не мешать выводу команды
func newLogger() (*zap.Logger, error) {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.NewWithWriter(level, "console", os.Stderr)
}
