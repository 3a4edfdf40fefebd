// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, NotionAPIKey, "  secret_abc123  \n")
				writeFile(t, dir, OpenAIAPIKey, "sk-xyz789\n")
				return dir
			},
			want: map[string]string{
				NotionAPIKey: "secret_abc123",
				OpenAIAPIKey: "sk-xyz789",
			},
		},
		{
			name: "nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files, dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, OpenAIAPIKey, "sk-1")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{OpenAIAPIKey: "sk-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, dir, NotionAPIKey, "value123")

	badPath := filepath.Join(dir, OpenAIAPIKey)
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{NotionAPIKey: "value123"}, got)
}

func TestFill(t *testing.T) {
	s := map[string]string{NotionAPIKey: "from-file"}

	empty := ""
	Fill(&empty, s, NotionAPIKey)
	assert.Equal(t, "from-file", empty)

	set := "from-config"
	Fill(&set, s, NotionAPIKey)
	assert.Equal(t, "from-config", set)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
