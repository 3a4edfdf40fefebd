// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package drive lists and downloads files from a Google Drive folder.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/thibo73800/flow-watcher/internal/httputil"
	"github.com/thibo73800/flow-watcher/internal/logging"
	"github.com/thibo73800/flow-watcher/pkg/types"
)

// driveAPIBase is the Drive v3 REST root. Tests point it at an httptest
// server.
var driveAPIBase = "https://www.googleapis.com/drive/v3"

const listFields = "nextPageToken, files(id, name, mimeType, size, modifiedTime)"

// APIError is a non-2xx response from the Drive API.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("Drive API returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("Drive API returned HTTP %d: %s", e.Status, e.Message)
}

// Client calls the Drive API with an already-authorized HTTP client (see
// Authorizer).
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Log       *slog.Logger
}

// NewClient wraps an authorized HTTP client.
func NewClient(httpClient *http.Client, userAgent string, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Client{HTTP: httpClient, UserAgent: userAgent, Log: log}
}

type listResponse struct {
	Files         []types.DriveFile `json:"files"`
	NextPageToken string            `json:"nextPageToken"`
}

// ListFiles returns the non-trashed files directly inside folderID.
func (c *Client) ListFiles(ctx context.Context, folderID string) ([]types.DriveFile, error) {
	q := url.Values{
		"q":        {fmt.Sprintf("'%s' in parents and trashed = false", strings.ReplaceAll(folderID, "'", `\'`))},
		"fields":   {listFields},
		"pageSize": {"100"},
		"orderBy":  {"modifiedTime"},
	}
	var files []types.DriveFile
	for {
		resp, err := c.get(ctx, "/files?"+q.Encode())
		if err != nil {
			return nil, fmt.Errorf("listing folder %s: %w", folderID, err)
		}
		var page listResponse
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing Drive listing: %w", err)
		}
		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		q.Set("pageToken", page.NextPageToken)
	}
}

// Download writes the content of f to destPath through a temporary file in
// the same directory. When progress is non-nil and the size is known, a
// progress bar is drawn on it.
func (c *Client) Download(ctx context.Context, f types.DriveFile, destPath string, progress io.Writer) error {
	resp, err := c.get(ctx, "/files/"+url.PathEscape(f.ID)+"?alt=media")
	if err != nil {
		return fmt.Errorf("downloading %s: %w", f.Name, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	var dst io.Writer = tmpFile
	var bar *progressBar
	total := f.Size
	if total <= 0 {
		total = resp.ContentLength
	}
	if progress != nil && total > 0 {
		bar = &progressBar{w: progress, total: total, last: -1}
		dst = io.MultiWriter(tmpFile, bar)
	}

	_, copyErr := io.Copy(dst, resp.Body)
	closeErr := tmpFile.Close()
	if bar != nil {
		bar.finish()
	}
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	c.Log.Debug("downloaded file", "id", f.ID, "path", destPath)
	return nil
}

// get issues a GET and returns the response when it is 200.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, driveAPIBase+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Drive API request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return resp, nil
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
