package cli

import (
	"fmt"

	"github.com/docsmith/llmkeys/internal/keys"
	"github.com/spf13/cobra"
)

var showKey bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <service>",
	Short: "Resolve the API key for a service",
	Long: `Resolve the API key for a service (openai, anthropic, gemini, deepseek)
from the highest-precedence configured source.

By default the key is printed masked. Use --show to print the raw key to
stdout, e.g. for shell substitution:

  export OPENAI_API_KEY=$(llmkeys resolve openai --show)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service := args[0]

		resolver, err := keys.Default()
		if err != nil {
			return err
		}

		key, err := resolver.Resolve(cmd.Context(), service)
		if err != nil {
			return err
		}

		if showKey {
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), keys.MaskKey(key))
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&showKey, "show", false, "print the raw key instead of a masked one")
}
