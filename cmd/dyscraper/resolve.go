package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dyscraper/pkg/scraper"
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <share-url>",
	Short: "Resolve a shared video link to a watermark-free playback URL",
	Long: `Resolve takes any shared Douyin video link, including the short
v.douyin.com form pasted from the app, follows its redirects in a real
browser, and prints the direct playback URL without the watermark.`,
	Example: `  # Resolve a short share link
  dyscraper resolve https://v.douyin.com/iRNBho6u/

  # Resolve a full video page URL
  dyscraper resolve https://www.douyin.com/video/7318000000000000000`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	shareURL := strings.TrimSpace(args[0])

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	session, err := newSession(cfg, log)
	if err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	defer func() { _ = session.Close() }()

	resolver := scraper.NewLinkResolver(session, cfg, log)
	videoURL, err := resolver.Resolve(context.Background(), shareURL)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, videoURL)
	return nil
}
