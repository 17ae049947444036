package cli

import (
	"errors"
	"fmt"

	"github.com/docsmith/llmkeys/internal/keys"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose credential resolution",
	Long: `Diagnose credential resolution: reports, for every supported service,
which source produced a key or why each source yielded nothing. Keys are
shown masked; secret values never appear in the output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		resolver, err := keys.Default()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		if !resolver.HasAnyCredential() {
			fmt.Fprintln(out, "No credential sources are configured.")
			fmt.Fprintln(out, "Set a provider API key environment variable (e.g. OPENAI_API_KEY)")
			fmt.Fprintln(out, "or configure a key service in ~/.llmkeys/config.yaml.")
			return nil
		}

		fmt.Fprintf(out, "Configured sources: %v\n\n", resolver.AvailableSources())

		for _, service := range keys.Services() {
			key, err := resolver.Resolve(cmd.Context(), service)
			if err == nil {
				fmt.Fprintf(out, "%-10s ok (%s)\n", service, keys.MaskKey(key))
				continue
			}

			var failure *keys.ResolutionFailure
			if errors.As(err, &failure) {
				fmt.Fprintf(out, "%-10s missing\n", service)
				for _, attempt := range failure.Attempts {
					fmt.Fprintf(out, "    %-20s %s\n", attempt.Source, attempt.Reason)
				}
				continue
			}
			fmt.Fprintf(out, "%-10s error: %v\n", service, err)
		}
		return nil
	},
}
