package main

import (
	"context"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/thibo73800/flow-watcher/internal/drive"
	"github.com/thibo73800/flow-watcher/internal/notion"
	"github.com/thibo73800/flow-watcher/internal/openai"
	"github.com/thibo73800/flow-watcher/pkg/types"
)

// httpClient returns a client with the configured timeout, instrumented
// under service when metrics are enabled.
func httpClient(cfg types.HTTPConfig, service string) *http.Client {
	return runMetrics.InstrumentClient(service, &http.Client{Timeout: cfg.Timeout})
}

func notionClient(cmd *cobra.Command, cfg types.Config) (*notion.Client, error) {
	if err := cfg.Notion.Validate(); err != nil {
		return nil, err
	}
	return notion.NewClient(httpClient(cfg.HTTP, "notion"), cfg.Notion.APIKey, cfg.HTTP.UserAgent, log(cmd)), nil
}

func openaiClient(cmd *cobra.Command, cfg types.Config) (*openai.Client, error) {
	if err := cfg.OpenAI.Validate(); err != nil {
		return nil, err
	}
	return openai.NewClient(httpClient(cfg.HTTP, "openai"), cfg.OpenAI.APIKey, cfg.HTTP.UserAgent, log(cmd)), nil
}

func driveClient(ctx context.Context, cmd *cobra.Command, cfg types.Config) (*drive.Client, error) {
	if err := cfg.Drive.Validate(); err != nil {
		return nil, err
	}
	auth := &drive.Authorizer{
		CredentialsFile: cfg.Drive.CredentialsFile,
		TokenFile:       cfg.Drive.TokenFile,
		Prompt:          os.Stderr,
	}
	authed, err := auth.Client(ctx, httpClient(cfg.HTTP, "drive"))
	if err != nil {
		return nil, err
	}
	authed.Timeout = cfg.HTTP.Timeout
	return drive.NewClient(authed, cfg.HTTP.UserAgent, log(cmd)), nil
}
