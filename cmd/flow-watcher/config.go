package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thibo73800/flow-watcher/internal/openai"
	"github.com/thibo73800/flow-watcher/internal/secrets"
	"github.com/thibo73800/flow-watcher/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "flow-watcher/0.1"
	defaultInterval  = 5 * time.Minute
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", defaultTimeout)
	v.SetDefault("http.user_agent", defaultUserAgent)
	v.SetDefault("drive.credentials_file", "auth/credentials.json")
	v.SetDefault("drive.token_file", "auth/token.json")
	v.SetDefault("drive.download_dir", "downloads")
	v.SetDefault("notion.export_dir", "notion_exports")
	v.SetDefault("openai.transcription_model", openai.DefaultTranscriptionModel)
	v.SetDefault("openai.speech_model", openai.DefaultSpeechModel)
	v.SetDefault("openai.voice", openai.DefaultVoice)
	v.SetDefault("sync.transcript_dir", "transcripts")
	v.SetDefault("sync.ledger_path", "state/flow-watcher.db")
	v.SetDefault("sync.interval", defaultInterval)
}

// configFrom assembles the settings from v and fills API keys left empty
// from the secrets directory.
func configFrom(v *viper.Viper, s map[string]string) types.Config {
	cfg := types.Config{
		HTTP: types.HTTPConfig{
			Timeout:   v.GetDuration("http.timeout"),
			UserAgent: v.GetString("http.user_agent"),
		},
		Drive: types.DriveConfig{
			CredentialsFile: v.GetString("drive.credentials_file"),
			TokenFile:       v.GetString("drive.token_file"),
			FolderID:        v.GetString("drive.folder_id"),
			DownloadDir:     v.GetString("drive.download_dir"),
		},
		Notion: types.NotionConfig{
			APIKey:     v.GetString("notion.api_key"),
			DatabaseID: v.GetString("notion.database_id"),
			PageID:     v.GetString("notion.page_id"),
			ExportDir:  v.GetString("notion.export_dir"),
		},
		OpenAI: types.OpenAIConfig{
			APIKey:             v.GetString("openai.api_key"),
			TranscriptionModel: v.GetString("openai.transcription_model"),
			Language:           v.GetString("openai.language"),
			SpeechModel:        v.GetString("openai.speech_model"),
			Voice:              v.GetString("openai.voice"),
		},
		Sync: types.SyncConfig{
			TranscriptDir:  v.GetString("sync.transcript_dir"),
			LedgerPath:     v.GetString("sync.ledger_path"),
			Limit:          v.GetInt("sync.limit"),
			Interval:       v.GetDuration("sync.interval"),
			SkipTranscribe: v.GetBool("sync.skip_transcribe"),
			SkipPublish:    v.GetBool("sync.skip_publish"),
		},
	}
	secrets.Fill(&cfg.Notion.APIKey, s, secrets.NotionAPIKey)
	secrets.Fill(&cfg.OpenAI.APIKey, s, secrets.OpenAIAPIKey)
	if cfg.HTTP.Timeout <= 0 {
		cfg.HTTP.Timeout = defaultTimeout
	}
	return cfg
}

// loadConfig returns the process configuration with any flags named in
// overrides applied on top. Keys are viper paths such as "sync.limit".
func loadConfig(cmd *cobra.Command, overrides map[string]string) types.Config {
	v := viper.GetViper()
	for key, flag := range overrides {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}
	return configFrom(v, loadedSecrets)
}
