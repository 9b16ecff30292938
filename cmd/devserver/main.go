package main

import (
	"os"

	"github.com/favac/no-framework-starter/cli"
	"github.com/favac/no-framework-starter/cmd"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"devserver",
		"No-framework development server with hot module replacement",
	)

	rootCmd.AddCommand(cmd.NewServeCmd())
	rootCmd.AddCommand(cmd.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
