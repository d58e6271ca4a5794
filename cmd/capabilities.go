package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCapabilitiesCmd creates the 'capabilities' subcommand. Wrapper scripts
// probe it to learn what the grabber supports, so it must work without any
// configuration.
func newCapabilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Prints the grabber capabilities",

		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "baseline")
			fmt.Fprintln(cmd.OutOrStdout(), "manualconfig")
		},
	}
}
