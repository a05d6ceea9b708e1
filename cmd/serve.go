package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"linkctl/internal/app"
)

var (
	serveConfigPath string
	serveDebug      bool
	serveLogJSON    bool
)

// serveCmd starts the link control plane.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the linkctl server",
	Long: `Starts the linkctl server. It exposes the link API, the link proxy,
the status event stream and, when enabled, the MCP link tools.

Configuration:
  linkctl loads configuration from ~/.config/linkctl/config.yaml and
  .linkctl/config.yaml in the current directory, later files overriding
  earlier ones. Use --config to load a single file instead.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveConfigPath, serveDebug, serveLogJSON)
	if rootCmd.Version != "" {
		cfg.Version = rootCmd.Version
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Load configuration from this file only")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveLogJSON, "log-json", false, "Write logs as JSON")
}
