// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the flow-watcher CLI.
package types

import (
	"path"
	"strings"
	"time"
)

// DriveFile is one entry of a Drive folder listing.
type DriveFile struct {
	// ID is the Drive file identifier.
	ID string `json:"id" yaml:"id"`

	// Name is the display name, used as the local file name.
	Name string `json:"name" yaml:"name"`

	// MimeType is the Drive MIME type (e.g. "audio/mpeg").
	MimeType string `json:"mimeType" yaml:"mime_type"`

	// Size is the byte size; zero for Google-native documents.
	Size int64 `json:"size,string,omitempty" yaml:"size,omitempty"`

	// ModifiedTime is the last modification time reported by Drive.
	ModifiedTime time.Time `json:"modifiedTime" yaml:"modified_time"`
}

// audioExtensions lists the upload formats accepted by the transcription API.
var audioExtensions = map[string]bool{
	".flac": true,
	".m4a":  true,
	".mp3":  true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".oga":  true,
	".ogg":  true,
	".wav":  true,
	".webm": true,
}

// IsAudio reports whether the file can be sent for transcription, by MIME
// type or, failing that, by extension.
func (f DriveFile) IsAudio() bool {
	if strings.HasPrefix(f.MimeType, "audio/") {
		return true
	}
	return audioExtensions[strings.ToLower(path.Ext(f.Name))]
}

// FileStatus tracks how far a Drive file has progressed through the pipeline.
type FileStatus string

const (
	StatusDownloaded  FileStatus = "downloaded"
	StatusTranscribed FileStatus = "transcribed"
	StatusPublished   FileStatus = "published"
	StatusFailed      FileStatus = "failed"
)

// FileRecord is the ledger row for one Drive file.
type FileRecord struct {
	FileID         string     `json:"file_id" yaml:"file_id"`
	Name           string     `json:"name" yaml:"name"`
	LocalPath      string     `json:"local_path" yaml:"local_path"`
	TranscriptPath string     `json:"transcript_path,omitempty" yaml:"transcript_path,omitempty"`
	NotionPageID   string     `json:"notion_page_id,omitempty" yaml:"notion_page_id,omitempty"`
	Status         FileStatus `json:"status" yaml:"status"`
	Error          string     `json:"error,omitempty" yaml:"error,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at" yaml:"updated_at"`
}

// RunRecord summarizes one pipeline run.
type RunRecord struct {
	ID          string    `json:"id" yaml:"id"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Downloaded  int       `json:"downloaded" yaml:"downloaded"`
	Transcribed int       `json:"transcribed" yaml:"transcribed"`
	Published   int       `json:"published" yaml:"published"`
	Skipped     int       `json:"skipped" yaml:"skipped"`
	Failed      int       `json:"failed" yaml:"failed"`
}
