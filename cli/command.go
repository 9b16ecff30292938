// Package cli holds shared command scaffolding for the toolkit's binaries.
package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/favac/no-framework-starter/logging"
)

// NewStandardCommand creates a root command with the standard flags.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to devserver.yml config file")

	return cmd
}

// GetLogger creates a logger honoring the command's flags.
func GetLogger(cmd *cobra.Command, component string) *logrus.Entry {
	entry := logging.NewLogger(component)

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		entry.Logger.SetLevel(logrus.DebugLevel)
	}
	return entry
}

// ConfigPath returns the --config flag value.
func ConfigPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
