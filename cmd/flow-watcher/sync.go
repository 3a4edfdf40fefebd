// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thibo73800/flow-watcher/internal/ledger"
	"github.com/thibo73800/flow-watcher/internal/pipeline"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download, transcribe and publish new recordings",
	Long: `Sync lists drive.folder_id and, for every audio file not yet published,
downloads it to drive.download_dir, transcribes it into sync.transcript_dir
and creates an entry in notion.database_id. A failed file is recorded and
retried on the next run; the other files are still processed.

With --watch the sync repeats every --interval until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the files and runs recorded in the ledger",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	syncCmd.Flags().Bool("watch", false, "keep running and sync every --interval")
	syncCmd.Flags().Duration("interval", 0, "polling interval for --watch (default from sync.interval)")
	syncCmd.Flags().Int("limit", 0, "handle at most this many folder entries (0 = all)")
	syncCmd.Flags().Bool("skip-transcribe", false, "only download")
	syncCmd.Flags().Bool("skip-publish", false, "download and transcribe, do not publish")
	syncCmd.Flags().String("folder", "", "Drive folder ID (default from drive.folder_id)")

	statusCmd.Flags().Int("runs", 5, "number of recent runs to show")

	rootCmd.AddCommand(syncCmd, statusCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd, map[string]string{
		"sync.interval":        "interval",
		"sync.limit":           "limit",
		"sync.skip_transcribe": "skip-transcribe",
		"sync.skip_publish":    "skip-publish",
		"drive.folder_id":      "folder",
	})
	if err := cfg.ValidateForSync(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	store, err := ledger.Open(cfg.Sync.LedgerPath)
	if err != nil {
		return err
	}
	defer store.Close()

	deps := pipeline.Deps{Ledger: store, Metrics: runMetrics, Log: log(cmd)}
	if deps.Drive, err = driveClient(ctx, cmd, cfg); err != nil {
		return err
	}
	if !cfg.Sync.SkipTranscribe {
		if deps.Transcriber, err = openaiClient(cmd, cfg); err != nil {
			return err
		}
		if !cfg.Sync.SkipPublish {
			if deps.Publisher, err = notionClient(cmd, cfg); err != nil {
				return err
			}
		}
	}

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		log(cmd).Info("watching drive folder", "folder", cfg.Drive.FolderID, "interval", cfg.Sync.Interval)
		return pipeline.Watch(ctx, deps, cfg, os.Stdout)
	}

	result, err := pipeline.Sync(ctx, deps, cfg, os.Stdout)
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed", result.Failed)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd, nil)
	store, err := ledger.Open(cfg.Sync.LedgerPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	files, err := store.List(ctx)
	if err != nil {
		return err
	}
	n, _ := cmd.Flags().GetInt("runs")
	runs, err := store.Runs(ctx, n)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tUPDATED\tNOTION PAGE\tERROR")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.Name, f.Status, f.UpdatedAt.Local().Format("2006-01-02 15:04"), f.NotionPageID, f.Error)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDOWNLOADED\tTRANSCRIBED\tPUBLISHED\tSKIPPED\tFAILED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n", r.ID[:8], r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Downloaded, r.Transcribed, r.Published, r.Skipped, r.Failed)
	}
	return tw.Flush()
}
