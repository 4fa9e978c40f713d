package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// RootCommand creates the peoplegraph command tree
func RootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "peoplegraph",
		Short:         "Personal relationship graph service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCommand(),
		duplicatesCommand(),
		networkCommand(),
		pathCommand(),
	)
	return rootCmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
