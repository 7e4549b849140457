package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dyscraper/pkg/export"
	"dyscraper/pkg/scraper"
)

var (
	// Harvest command flags
	outputDir string
)

// harvestCmd represents the harvest command
var harvestCmd = &cobra.Command{
	Use:   "harvest <profile-url>",
	Short: "Collect every video from a Douyin user profile",
	Long: `Harvest opens a user's profile page, scrolls until the feed reports
no more content, and collects one record per video from the API traffic
the page generates on the way down. Each record carries the canonical
page URL, title, engagement counters and a watermark-free download URL.

Without --output the records are printed to stdout as a JSON array;
with --output they are written to a timestamped file in that directory.`,
	Example: `  # Print the profile's videos as JSON
  dyscraper harvest https://www.douyin.com/user/MS4wLjABAAAA...

  # Save the result under ./out
  dyscraper harvest https://www.douyin.com/user/MS4wLjABAAAA... -o ./out`,
	Args: cobra.ExactArgs(1),
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(harvestCmd)

	harvestCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory to write the harvest result into")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	profileURL := strings.TrimSpace(args[0])

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

	harvester := scraper.NewFeedHarvester(session, cfg, log)
	records, err := harvester.Harvest(context.Background(), profileURL)
	if err != nil {
		return err
	}
	log.WithField("total", len(records)).Info("harvest finished")

	if outputDir != "" {
		writer, err := export.NewWriter(outputDir)
		if err != nil {
			return err
		}
		path, err := writer.Write(profileURL, records)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, path)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
