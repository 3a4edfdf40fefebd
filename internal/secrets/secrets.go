// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files. Each
// file holds one secret: the file name is the key and the trimmed contents
// are the value.
//
// Recognized keys: notion-api-key, openai-api-key.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/thibo73800/flow-watcher/internal/logging"
)

// Key file names read by the CLI.
const (
	NotionAPIKey = "notion-api-key"
	OpenAIAPIKey = "openai-api-key"
)

// Load reads every regular, non-hidden file in dir. A missing directory is
// not an error and yields an empty map. Unreadable files are logged and
// skipped.
func Load(dir string, log *slog.Logger) (map[string]string, error) {
	if log == nil {
		log = logging.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", "name", name, "error", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Fill sets *dst to secrets[key] when *dst is empty.
func Fill(dst *string, secrets map[string]string, key string) {
	if *dst == "" {
		*dst = secrets[key]
	}
}
