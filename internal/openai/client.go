// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package openai calls the OpenAI audio endpoints: speech-to-text for
// transcribing recordings and text-to-speech for reading text aloud.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/thibo73800/flow-watcher/internal/httputil"
	"github.com/thibo73800/flow-watcher/internal/logging"
)

// openaiAPIBase is the API root. Tests replace it with an httptest server.
var openaiAPIBase = "https://api.openai.com/v1"

const (
	DefaultTranscriptionModel = "whisper-1"
	DefaultSpeechModel        = "tts-1"
	DefaultVoice              = "alloy"
)

// APIError is a non-2xx response from the OpenAI API.
type APIError struct {
	Status  int    `json:"-"`
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("OpenAI API returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("OpenAI API returned HTTP %d: %s", e.Status, e.Message)
}

// Client holds credentials and transport for the OpenAI API.
type Client struct {
	HTTP      *http.Client
	APIKey    string
	UserAgent string
	Log       *slog.Logger
}

// NewClient returns a Client. A nil httpClient uses http.DefaultClient.
func NewClient(httpClient *http.Client, apiKey, userAgent string, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Client{HTTP: httpClient, APIKey: apiKey, UserAgent: userAgent, Log: log}
}

// Model is one entry of the model listing.
type Model struct {
	ID      string `json:"id" yaml:"id"`
	Created int64  `json:"created" yaml:"created"`
	OwnedBy string `json:"owned_by" yaml:"owned_by"`
}

// ListModels returns the models available to the key, sorted by ID.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []Model `json:"data"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].ID < out.Data[j].ID })
	return out.Data, nil
}

// TranscribeOptions tunes a transcription request. Empty fields are omitted
// except Model, which defaults to DefaultTranscriptionModel.
type TranscribeOptions struct {
	Model    string
	Language string
	Prompt   string
}

// Transcription is the text recognized in an audio file.
type Transcription struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Transcribe uploads the audio file at path and returns its transcript.
func (c *Client) Transcribe(ctx context.Context, path string, opts TranscribeOptions) (*Transcription, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading audio file: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = DefaultTranscriptionModel
	}
	fields := [][2]string{
		{"model", model},
		{"response_format", "json"},
		{"language", opts.Language},
		{"prompt", opts.Prompt},
	}
	for _, kv := range fields {
		if kv[1] == "" {
			continue
		}
		if err := writer.WriteField(kv[0], kv[1]); err != nil {
			return nil, fmt.Errorf("writing form field %s: %w", kv[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/audio/transcriptions", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.Log.Debug("transcribing", "file", filepath.Base(path), "model", model, "bytes", body.Len())

	var out Transcription
	if err := c.doJSON(req, &out); err != nil {
		return nil, fmt.Errorf("transcribing %s: %w", filepath.Base(path), err)
	}
	return &out, nil
}

// SpeechOptions tunes a speech request. Empty fields take the package
// defaults; Format defaults to mp3.
type SpeechOptions struct {
	Model  string
	Voice  string
	Format string
}

// Speak synthesizes text and streams the encoded audio to w.
func (c *Client) Speak(ctx context.Context, text string, opts SpeechOptions, w io.Writer) error {
	if text == "" {
		return fmt.Errorf("speech input is empty")
	}
	payload := map[string]string{
		"model":           orDefault(opts.Model, DefaultSpeechModel),
		"voice":           orDefault(opts.Voice, DefaultVoice),
		"response_format": orDefault(opts.Format, "mp3"),
		"input":           text,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding speech request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/audio/speech", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("synthesizing speech: %w", err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("writing speech audio: %w", err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, openaiAPIBase+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	return req, nil
}

// do sends req with retry on 429 and returns the response when it is 2xx.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := httputil.DoWithRetry(req.Context(), c.HTTP, req, 0)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return resp, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing OpenAI response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error APIError `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &body)
	apiErr := body.Error
	apiErr.Status = resp.StatusCode
	return &apiErr
}
