package commands

import (
	"github.com/plastinin/comictranslate/cmd/comictl/ui"
	"github.com/plastinin/comictranslate/internal/domain"
	"github.com/spf13/cobra"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List languages supported by the translation service",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ui.Section("Supported languages")
		for _, lang := range domain.SupportedLanguages {
			ui.Message("  %s", lang)
		}
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
