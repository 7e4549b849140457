package main

import (
	"github.com/spf13/cobra"

	"dyscraper/internal/server"
	"dyscraper/pkg/browser"
)

var (
	// Serve command flags
	serverAddr string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve exposes the resolver and harvester over HTTP:

  GET    /get_video_url?url=...       resolve a share link
  GET    /get_user_videos?pageurl=... harvest a profile synchronously
  POST   /harvest                     start an asynchronous harvest job
  GET    /harvest/:id                 poll a job
  DELETE /harvest/:id                 cancel and forget a job

Each request gets its own browser session; requests beyond the configured
rate limit are rejected with 429.`,
	Example: `  # Serve on the default address
  dyscraper serve

  # Serve on a custom port
  dyscraper serve --addr :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "addr", "", "listen address (default :8000)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serverAddr != "" {
		cfg.Server.Addr = serverAddr
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	factory := func() (browser.Driver, error) {
		return newSession(cfg, log)
	}

	return server.New(cfg, log, factory).Run()
}
