// Package cli implements the llmkeys command-line interface using Cobra.
// It exposes credential resolution and diagnostics for the configured
// authentication sources.
package cli

import (
	"os"
	"path/filepath"

	"github.com/docsmith/llmkeys/internal/config"
	"github.com/docsmith/llmkeys/internal/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "llmkeys",
	Short: "llmkeys - API key resolution for LLM services",
	Long: `llmkeys resolves API keys for LLM services (openai, anthropic, gemini,
deepseek) from an ordered set of sources: a central key service, AWS
Secrets Manager, an offline service-account file, OIDC client-credentials,
the OS keyring, and environment variables.

The first source with a key wins; keys are never written to disk or logs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		debugDir := filepath.Join(config.Dir(), "debug")

		if err := log.Init(log.Options{
			Verbose:       verbose,
			JSONFormat:    jsonOut,
			Interactive:   isatty.IsTerminal(os.Stdout.Fd()) && !verbose,
			DebugDir:      debugDir,
			RetentionDays: 14,
		}); err != nil {
			// Log init failure is non-fatal; continue with the default logger.
			cmd.PrintErrf("Warning: failed to initialize debug logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		log.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "log in JSON format")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(doctorCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
