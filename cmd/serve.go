package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/favac/no-framework-starter/cli"
	"github.com/favac/no-framework-starter/config"
	"github.com/favac/no-framework-starter/internal/devserver"
	"github.com/favac/no-framework-starter/internal/pidfile"
)

// NewServeCmd returns the serve command: the long-running dev server.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [root]",
		Short: "Start the development server",
		Long: "Serve the project root with live reload: file changes are pushed to " +
			"connected browsers over the HMR channel.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.GetLogger(cmd, "serve")

			configPath := cli.ConfigPath(cmd)
			if configPath == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return err
				}
				// Missing config is fine; defaults apply.
				configPath, _ = config.FindConfigFile(cwd)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Root, err = filepath.Abs(args[0])
				if err != nil {
					return err
				}
			}
			if port, _ := cmd.Flags().GetInt("port"); port != 0 {
				cfg.Port = port
			}

			pidPath := filepath.Join(os.TempDir(), fmt.Sprintf("devserver-%d.pid", cfg.Port))
			if err := pidfile.Acquire(pidPath); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			defer func() {
				if err := pidfile.Release(pidPath); err != nil {
					logger.Errorf("Failed to release pidfile: %v", err)
				}
			}()

			srv, err := devserver.New(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-stop
				logger.Info("Received stop signal")
				cancel()
			}()

			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntP("port", "p", 0, "Listen port (overrides config and DEVSERVER_PORT)")
	return cmd
}
