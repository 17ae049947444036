package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/docsmith/llmkeys/internal/keys"
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List credential sources in precedence order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		resolver, err := keys.Default()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRECEDENCE\tSOURCE\tCONFIGURED")
		for i, src := range resolver.Sources() {
			configured := "no"
			if src.Available() {
				configured = "yes"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, src.ID(), configured)
		}
		return w.Flush()
	},
}
