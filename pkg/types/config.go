package types

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// HTTPConfig holds shared HTTP settings used by every remote client.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "flow-watcher/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// DriveConfig holds settings for the Google Drive client.
type DriveConfig struct {
	// CredentialsFile is the OAuth client secrets JSON downloaded from the
	// Google Cloud console.
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`

	// TokenFile caches the authorized user token between runs.
	TokenFile string `json:"token_file" yaml:"token_file"`

	// FolderID is the Drive folder watched for new recordings.
	FolderID string `json:"folder_id" yaml:"folder_id"`

	// DownloadDir is where downloaded files are written.
	DownloadDir string `json:"download_dir" yaml:"download_dir"`
}

// Validate checks the settings needed to authorize and list a folder.
func (c DriveConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.CredentialsFile, validation.Required),
		validation.Field(&c.TokenFile, validation.Required),
		validation.Field(&c.DownloadDir, validation.Required),
	)
}

// NotionConfig holds settings for the Notion client.
type NotionConfig struct {
	// APIKey is the integration secret.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// DatabaseID is the database new pages are created in.
	DatabaseID string `json:"database_id" yaml:"database_id"`

	// PageID is the default page read and written by the notion commands.
	PageID string `json:"page_id" yaml:"page_id"`

	// ExportDir is where `notion read --out` writes page exports.
	ExportDir string `json:"export_dir" yaml:"export_dir"`
}

// Validate checks that the integration secret is present.
func (c NotionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.APIKey, validation.Required.Error("is required (set notion.api_key or .secrets/notion-api-key)")),
	)
}

// OpenAIConfig holds settings for the transcription and speech clients.
type OpenAIConfig struct {
	// APIKey is the authentication key for the OpenAI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// TranscriptionModel is the speech-to-text model (default "whisper-1").
	TranscriptionModel string `json:"transcription_model" yaml:"transcription_model"`

	// Language is an optional ISO-639-1 hint passed to transcription.
	Language string `json:"language,omitempty" yaml:"language,omitempty"`

	// SpeechModel is the text-to-speech model (default "tts-1").
	SpeechModel string `json:"speech_model" yaml:"speech_model"`

	// Voice is the text-to-speech voice (default "alloy").
	Voice string `json:"voice" yaml:"voice"`
}

// Validate checks that the API key is present.
func (c OpenAIConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.APIKey, validation.Required.Error("is required (set openai.api_key or .secrets/openai-api-key)")),
	)
}

// SyncConfig holds settings for the drive-to-notion pipeline.
type SyncConfig struct {
	// TranscriptDir is where transcripts are written as plain text.
	TranscriptDir string `json:"transcript_dir" yaml:"transcript_dir"`

	// LedgerPath is the SQLite database recording processed files.
	LedgerPath string `json:"ledger_path" yaml:"ledger_path"`

	// Limit caps the number of folder entries handled per run (0 = all).
	Limit int `json:"limit" yaml:"limit"`

	// Interval is the polling period used by watch mode.
	Interval time.Duration `json:"interval" yaml:"interval"`

	// SkipTranscribe stops the pipeline after downloading.
	SkipTranscribe bool `json:"skip_transcribe" yaml:"skip_transcribe"`

	// SkipPublish stops the pipeline after transcribing.
	SkipPublish bool `json:"skip_publish" yaml:"skip_publish"`
}

// Validate checks the pipeline bounds.
func (c SyncConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TranscriptDir, validation.Required),
		validation.Field(&c.LedgerPath, validation.Required),
		validation.Field(&c.Limit, validation.Min(0)),
		validation.Field(&c.Interval, validation.Min(time.Duration(0))),
	)
}

// Config groups all settings for the CLI.
type Config struct {
	HTTP   HTTPConfig   `json:"http" yaml:"http"`
	Drive  DriveConfig  `json:"drive" yaml:"drive"`
	Notion NotionConfig `json:"notion" yaml:"notion"`
	OpenAI OpenAIConfig `json:"openai" yaml:"openai"`
	Sync   SyncConfig   `json:"sync" yaml:"sync"`
}

// ValidateForSync checks every section the full pipeline touches. Sections
// for skipped stages are not required.
func (c Config) ValidateForSync() error {
	errs := validation.Errors{
		"drive": c.Drive.Validate(),
		"sync":  c.Sync.Validate(),
	}
	if c.Drive.FolderID == "" {
		errs["drive.folder_id"] = validation.NewError("flow.sync.folder_required", "drive folder is required")
	}
	if !c.Sync.SkipTranscribe {
		errs["openai"] = c.OpenAI.Validate()
	}
	if !c.Sync.SkipPublish && !c.Sync.SkipTranscribe {
		errs["notion"] = c.Notion.Validate()
		if c.Notion.DatabaseID == "" {
			errs["notion.database_id"] = validation.NewError("flow.sync.database_required", "notion database is required to publish transcripts")
		}
	}
	return errs.Filter()
}
