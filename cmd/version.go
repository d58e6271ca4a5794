package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

// newVersionCmd creates the 'version' subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the grabber version",

		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tvgrab %s\n", version)
		},
	}
}
