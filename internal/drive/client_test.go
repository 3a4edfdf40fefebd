// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thibo73800/flow-watcher/pkg/types"
)

func driveServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	orig := driveAPIBase
	driveAPIBase = ts.URL
	t.Cleanup(func() {
		driveAPIBase = orig
		ts.Close()
	})
	return NewClient(ts.Client(), "flow-watcher/test", nil)
}

func TestListFiles_Paginates(t *testing.T) {
	var tokens []string
	c := driveServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		assert.Equal(t, "'folder-1' in parents and trashed = false", r.URL.Query().Get("q"))
		assert.Contains(t, r.URL.Query().Get("fields"), "nextPageToken")
		assert.Equal(t, "flow-watcher/test", r.Header.Get("User-Agent"))

		tok := r.URL.Query().Get("pageToken")
		tokens = append(tokens, tok)
		if tok == "" {
			fmt.Fprint(w, `{"files":[{"id":"f1","name":"memo.m4a","mimeType":"audio/x-m4a","size":"2048","modifiedTime":"2024-05-01T09:00:00Z"}],"nextPageToken":"p2"}`)
			return
		}
		fmt.Fprint(w, `{"files":[{"id":"f2","name":"notes","mimeType":"application/vnd.google-apps.document"}]}`)
	})

	files, err := c.ListFiles(context.Background(), "folder-1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, []string{"", "p2"}, tokens)

	assert.Equal(t, "memo.m4a", files[0].Name)
	assert.Equal(t, int64(2048), files[0].Size)
	assert.True(t, files[0].IsAudio())
	assert.Equal(t, 2024, files[0].ModifiedTime.Year())
	assert.False(t, files[1].IsAudio())
	assert.Zero(t, files[1].Size)
}

func TestListFiles_APIError(t *testing.T) {
	c := driveServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"message":"File not found: folder-x.","status":"NOT_FOUND"}}`)
	})

	_, err := c.ListFiles(context.Background(), "folder-x")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "File not found: folder-x.", apiErr.Message)
	assert.Contains(t, err.Error(), "folder-x")
}

func TestDownload_WritesFileAndProgress(t *testing.T) {
	content := strings.Repeat("a", 1000)
	c := driveServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/f1", r.URL.Path)
		assert.Equal(t, "media", r.URL.Query().Get("alt"))
		fmt.Fprint(w, content)
	})

	dest := filepath.Join(t.TempDir(), "nested", "memo.mp3")
	var progress bytes.Buffer
	err := c.Download(context.Background(), types.DriveFile{ID: "f1", Name: "memo.mp3", Size: 1000}, dest, &progress)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.Contains(t, progress.String(), "\r["+strings.Repeat("█", barWidth)+"] 100%")
	assert.True(t, strings.HasSuffix(progress.String(), "\n"))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(dest), ".download-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDownload_FailureLeavesNoFile(t *testing.T) {
	c := driveServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	dest := filepath.Join(t.TempDir(), "memo.mp3")
	err := c.Download(context.Background(), types.DriveFile{ID: "f1", Name: "memo.mp3"}, dest, nil)
	require.Error(t, err)
	assert.NoFileExists(t, dest)
}

func TestProgressBar(t *testing.T) {
	var out bytes.Buffer
	bar := &progressBar{w: &out, total: 10, last: -1}

	_, _ = bar.Write(make([]byte, 4))
	assert.Equal(t, "\r[████████------------] 40%", out.String())

	out.Reset()
	_, _ = bar.Write(nil)
	assert.Empty(t, out.String(), "unchanged percentage is not redrawn")
}
