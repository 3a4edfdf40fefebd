// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline moves recordings from a Drive folder to Notion: each new
// audio file is downloaded, transcribed and published as a database entry.
// Progress per file is kept in the ledger so a later run resumes at the
// first stage that has not completed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thibo73800/flow-watcher/internal/ledger"
	"github.com/thibo73800/flow-watcher/internal/logging"
	"github.com/thibo73800/flow-watcher/internal/metrics"
	"github.com/thibo73800/flow-watcher/internal/notion"
	"github.com/thibo73800/flow-watcher/internal/openai"
	"github.com/thibo73800/flow-watcher/pkg/types"
)

// Drive lists and fetches folder contents. *drive.Client implements it.
type Drive interface {
	ListFiles(ctx context.Context, folderID string) ([]types.DriveFile, error)
	Download(ctx context.Context, f types.DriveFile, destPath string, progress io.Writer) error
}

// Transcriber turns an audio file into text. *openai.Client implements it.
type Transcriber interface {
	Transcribe(ctx context.Context, path string, opts openai.TranscribeOptions) (*openai.Transcription, error)
}

// Publisher creates database entries. *notion.Client implements it.
type Publisher interface {
	CreatePage(ctx context.Context, databaseID, title string, children []notion.BlockDescriptor) (*notion.Page, error)
}

// Ledger persists per-file progress and run summaries. *ledger.Store
// implements it.
type Ledger interface {
	Get(ctx context.Context, fileID string) (*types.FileRecord, error)
	Upsert(ctx context.Context, rec *types.FileRecord) error
	BeginRun(ctx context.Context) (*types.RunRecord, error)
	FinishRun(ctx context.Context, run *types.RunRecord) error
}

// Deps are the collaborators of a sync run. Transcriber and Publisher may be
// nil when the matching stage is skipped.
type Deps struct {
	Drive       Drive
	Transcriber Transcriber
	Publisher   Publisher
	Ledger      Ledger
	Metrics     *metrics.Metrics
	Log         *slog.Logger
}

// BatchResult holds the outcome of one sync run. Downloaded, Transcribed and
// Published count stage completions, so one file can add to all three.
type BatchResult struct {
	RunID       string
	Files       int
	Downloaded  int
	Transcribed int
	Published   int
	Skipped     int
	Failed      int
}

// Total returns the number of folder entries considered.
func (r BatchResult) Total() int {
	return r.Files
}

// HasFailures reports whether any file failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Sync runs the pipeline once over the configured folder. Per-file failures
// are recorded and counted without stopping the batch; the returned error is
// reserved for failures that prevent the run itself (listing the folder,
// writing the run log, cancellation).
func Sync(ctx context.Context, deps Deps, cfg types.Config, w io.Writer) (BatchResult, error) {
	if deps.Log == nil {
		deps.Log = logging.NewNop()
	}
	var result BatchResult

	run, err := deps.Ledger.BeginRun(ctx)
	if err != nil {
		return result, err
	}
	result.RunID = run.ID

	s := &syncer{deps: deps, cfg: cfg, w: w, result: &result}
	files, err := deps.Drive.ListFiles(ctx, cfg.Drive.FolderID)
	if err != nil {
		if ferr := s.finish(ctx, run); ferr != nil {
			deps.Log.Warn("recording run", "run", run.ID, "error", ferr)
		}
		return result, fmt.Errorf("listing drive folder: %w", err)
	}
	if cfg.Sync.Limit > 0 && len(files) > cfg.Sync.Limit {
		files = files[:cfg.Sync.Limit]
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			_ = s.finish(ctx, run)
			return result, err
		}
		result.Files++
		s.file(ctx, f)
	}

	fmt.Fprintf(w, "\nSync summary: %d downloaded, %d transcribed, %d published, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Transcribed, result.Published, result.Skipped, result.Failed, result.Total())

	if err := s.finish(ctx, run); err != nil {
		return result, err
	}
	return result, nil
}

// Watch runs Sync immediately and then every cfg.Sync.Interval until ctx is
// cancelled. A failed run is logged and retried at the next tick.
func Watch(ctx context.Context, deps Deps, cfg types.Config, w io.Writer) error {
	if cfg.Sync.Interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", cfg.Sync.Interval)
	}
	log := deps.Log
	if log == nil {
		log = logging.NewNop()
	}

	ticker := time.NewTicker(cfg.Sync.Interval)
	defer ticker.Stop()
	for {
		if _, err := Sync(ctx, deps, cfg, w); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("sync run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type syncer struct {
	deps   Deps
	cfg    types.Config
	w      io.Writer
	result *BatchResult
}

func (s *syncer) finish(ctx context.Context, run *types.RunRecord) error {
	run.Downloaded = s.result.Downloaded
	run.Transcribed = s.result.Transcribed
	run.Published = s.result.Published
	run.Skipped = s.result.Skipped
	run.Failed = s.result.Failed
	// The run row is written even when ctx has been cancelled.
	return s.deps.Ledger.FinishRun(context.WithoutCancel(ctx), run)
}

func (s *syncer) file(ctx context.Context, f types.DriveFile) {
	rec, err := s.deps.Ledger.Get(ctx, f.ID)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		rec = &types.FileRecord{FileID: f.ID, Name: f.Name}
	case err != nil:
		s.fail(ctx, &types.FileRecord{FileID: f.ID, Name: f.Name}, err)
		return
	}

	if rec.Status == types.StatusPublished {
		s.skip(f, "already published")
		return
	}
	if !f.IsAudio() {
		s.skip(f, "not an audio file")
		return
	}

	if err := s.download(ctx, f, rec); err != nil {
		s.fail(ctx, rec, err)
		return
	}
	if s.cfg.Sync.SkipTranscribe {
		return
	}
	if err := s.transcribe(ctx, rec); err != nil {
		s.fail(ctx, rec, err)
		return
	}
	if s.cfg.Sync.SkipPublish {
		return
	}
	if err := s.publish(ctx, rec); err != nil {
		s.fail(ctx, rec, err)
		return
	}
}

func (s *syncer) download(ctx context.Context, f types.DriveFile, rec *types.FileRecord) error {
	rec.LocalPath = filepath.Join(s.cfg.Drive.DownloadDir, filepath.Base(f.Name))
	if _, err := os.Stat(rec.LocalPath); err == nil {
		fmt.Fprintf(s.w, "exists:      %s\n", f.Name)
	} else {
		fmt.Fprintf(s.w, "downloading: %s\n", f.Name)
		if err := s.deps.Drive.Download(ctx, f, rec.LocalPath, s.w); err != nil {
			return err
		}
		s.result.Downloaded++
		s.deps.Metrics.ObserveFile("downloaded")
	}
	if rec.Status == "" || rec.Status == types.StatusFailed {
		rec.Status = types.StatusDownloaded
	}
	rec.Error = ""
	return s.deps.Ledger.Upsert(ctx, rec)
}

func (s *syncer) transcribe(ctx context.Context, rec *types.FileRecord) error {
	if rec.TranscriptPath != "" {
		if _, err := os.Stat(rec.TranscriptPath); err == nil {
			rec.Status = types.StatusTranscribed
			return s.deps.Ledger.Upsert(ctx, rec)
		}
	}
	if s.deps.Transcriber == nil {
		return errors.New("no transcriber configured")
	}

	fmt.Fprintf(s.w, "transcribing: %s\n", rec.Name)
	tr, err := s.deps.Transcriber.Transcribe(ctx, rec.LocalPath, openai.TranscribeOptions{
		Model:    s.cfg.OpenAI.TranscriptionModel,
		Language: s.cfg.OpenAI.Language,
	})
	if err != nil {
		return err
	}

	rec.TranscriptPath = TranscriptPath(s.cfg.Sync.TranscriptDir, rec.Name)
	if err := os.MkdirAll(filepath.Dir(rec.TranscriptPath), 0o755); err != nil {
		return fmt.Errorf("creating transcript directory: %w", err)
	}
	if err := os.WriteFile(rec.TranscriptPath, []byte(tr.Text), 0o644); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	s.result.Transcribed++
	s.deps.Metrics.ObserveFile("transcribed")

	rec.Status = types.StatusTranscribed
	return s.deps.Ledger.Upsert(ctx, rec)
}

func (s *syncer) publish(ctx context.Context, rec *types.FileRecord) error {
	if s.deps.Publisher == nil {
		return errors.New("no publisher configured")
	}
	text, err := os.ReadFile(rec.TranscriptPath)
	if err != nil {
		return fmt.Errorf("reading transcript: %w", err)
	}

	fmt.Fprintf(s.w, "publishing:  %s\n", rec.Name)
	page, err := s.deps.Publisher.CreatePage(ctx, s.cfg.Notion.DatabaseID, rec.Name, notion.ParseMarkup(strings.TrimSuffix(string(text), "\n")))
	if page != nil && page.ID != "" {
		rec.NotionPageID = page.ID
	}
	if err != nil {
		return err
	}
	s.result.Published++
	s.deps.Metrics.ObserveFile("published")

	rec.Status = types.StatusPublished
	return s.deps.Ledger.Upsert(ctx, rec)
}

func (s *syncer) skip(f types.DriveFile, reason string) {
	fmt.Fprintf(s.w, "skipped:     %s (%s)\n", f.Name, reason)
	s.result.Skipped++
	s.deps.Metrics.ObserveFile("skipped")
}

func (s *syncer) fail(ctx context.Context, rec *types.FileRecord, err error) {
	fmt.Fprintf(s.w, "failed:      %s (%v)\n", rec.Name, err)
	s.result.Failed++
	s.deps.Metrics.ObserveFile("failed")

	rec.Status = types.StatusFailed
	rec.Error = err.Error()
	if uerr := s.deps.Ledger.Upsert(ctx, rec); uerr != nil {
		s.deps.Log.Warn("recording failure", "file", rec.FileID, "error", uerr)
	}
}

// TranscriptPath is where the transcript of the named recording is stored:
// the base name with its extension replaced by ".txt".
func TranscriptPath(dir, name string) string {
	base := filepath.Base(name)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".txt")
}
