// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes rendered Notion pages to disk and converts the
// Markdown for display.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.yaml.in/yaml/v3"
)

// FrontMatter is the metadata header of an exported page.
type FrontMatter struct {
	PageID     string    `yaml:"page_id"`
	Title      string    `yaml:"title"`
	URL        string    `yaml:"url,omitempty"`
	ExportedAt time.Time `yaml:"exported_at"`
}

// Document is an exported page: its metadata plus the Markdown body.
type Document struct {
	FrontMatter `yaml:",inline"`
	Markdown    string `yaml:"-"`
}

// WriteMarkdown writes doc as a Markdown file with a YAML frontmatter block.
func WriteMarkdown(w io.Writer, doc Document) error {
	meta, err := yaml.Marshal(doc.FrontMatter)
	if err != nil {
		return fmt.Errorf("marshaling frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n\n")
	buf.WriteString(doc.Markdown)
	if !strings.HasSuffix(doc.Markdown, "\n") {
		buf.WriteByte('\n')
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// ReadMarkdown splits a Markdown file into its frontmatter and body. A
// leading "---" block counts as frontmatter only when it decodes and names a
// page_id; otherwise it is a divider and the input is returned whole as the
// body.
func ReadMarkdown(r io.Reader) (FrontMatter, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return FrontMatter{}, "", fmt.Errorf("reading markdown: %w", err)
	}
	if !bytes.HasPrefix(data, []byte("---")) {
		return FrontMatter{}, string(data), nil
	}

	var meta FrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta)
	if err != nil || meta.PageID == "" {
		return FrontMatter{}, string(data), nil
	}
	return meta, strings.TrimPrefix(string(body), "\n"), nil
}

// FileName returns a file-system safe name for a page export, e.g.
// "Weekly notes" -> "weekly-notes.md". Pages without a usable title fall
// back to their ID.
func FileName(title, pageID string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		name = pageID
	}
	return name + ".md"
}

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	// Toggles render as <details> elements, which must pass through.
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// HTML converts Markdown to an HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("markdown to html: %w", err)
	}
	return buf.String(), nil
}

// Terminal renders Markdown for display in a terminal, wrapping at width
// columns (0 uses glamour's default).
func Terminal(markdown string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
