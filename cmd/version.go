package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/favac/no-framework-starter/version"
)

// NewVersionCmd returns the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("devserver %s (%s)\n", version.Version, version.Commit)
		},
	}
}
