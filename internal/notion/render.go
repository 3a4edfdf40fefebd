// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thibo73800/flow-watcher/internal/logging"
)

// Fetcher lists the immediate children of a page or block, in order.
// Client implements it against the Notion API.
type Fetcher interface {
	ListChildren(ctx context.Context, blockID string) ([]Record, error)
}

// WarningType categorizes non-fatal render conditions.
type WarningType string

const (
	WarningCycle            WarningType = "cycle"
	WarningUnsupportedBlock WarningType = "unsupported_block"
	WarningToggleFetch      WarningType = "toggle_fetch"
	WarningMissingPageID    WarningType = "missing_page_id"
	WarningMalformedBlock   WarningType = "malformed_block"
)

// Warning is a condition the renderer degraded around instead of failing.
type Warning struct {
	Type    WarningType `json:"type" yaml:"type"`
	BlockID string      `json:"block_id" yaml:"block_id"`
	Message string      `json:"message" yaml:"message"`
}

// Result is the Markdown for one page and the warnings raised producing it.
type Result struct {
	Markdown string
	Warnings []Warning
}

// untitledPage is the heading used for child pages without a title.
const untitledPage = "Untitled Page"

// Renderer flattens a page's block tree into Markdown.
type Renderer struct {
	fetcher Fetcher
	log     *slog.Logger
}

// NewRenderer creates a Renderer reading through f. A nil logger discards
// diagnostics; they are still returned in Result.Warnings.
func NewRenderer(f Fetcher, log *slog.Logger) *Renderer {
	if log == nil {
		log = logging.NewNop()
	}
	return &Renderer{fetcher: f, log: log}
}

// RenderPage fetches pageID's children and renders them, recursing into
// toggles and child pages. Each call tracks its own set of visited pages, so
// a page that links back to an ancestor is rendered once and the repeat is
// reported as a cycle warning.
//
// A failure listing a page's children (including a nested child page) is
// returned as an error. A failure listing a toggle's children degrades to a
// toggle with an empty body.
func (r *Renderer) RenderPage(ctx context.Context, pageID string) (*Result, error) {
	w := &walk{Renderer: r, visited: make(map[string]struct{})}
	md, err := w.page(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return &Result{Markdown: md, Warnings: w.warnings}, nil
}

// walk is the state of one RenderPage call.
type walk struct {
	*Renderer
	visited  map[string]struct{}
	warnings []Warning
}

func (w *walk) warn(typ WarningType, blockID, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	w.warnings = append(w.warnings, Warning{Type: typ, BlockID: blockID, Message: msg})
	w.log.Warn(msg, "type", string(typ), "block_id", blockID)
}

func (w *walk) page(ctx context.Context, pageID string) (string, error) {
	if _, seen := w.visited[pageID]; seen {
		w.warn(WarningCycle, pageID, "page %s already processed, skipping to avoid recursion", pageID)
		return "", nil
	}
	w.visited[pageID] = struct{}{}

	records, err := w.fetcher.ListChildren(ctx, pageID)
	if err != nil {
		return "", fmt.Errorf("listing children of page %s: %w", pageID, err)
	}
	return w.blocks(ctx, records)
}

// blocks renders records in order, dropping empty fragments.
func (w *walk) blocks(ctx context.Context, records []Record) (string, error) {
	var fragments []string
	for _, rec := range records {
		if rec.Type == "" {
			continue
		}
		frag, err := w.block(ctx, DecodeBlock(rec))
		if err != nil {
			return "", err
		}
		if frag != "" {
			fragments = append(fragments, frag)
		}
	}
	return strings.Join(fragments, "\n\n"), nil
}

func (w *walk) block(ctx context.Context, b Block) (string, error) {
	switch b := b.(type) {
	case Paragraph:
		return b.Text.Markdown(), nil
	case Heading:
		return strings.Repeat("#", headingLevel(b.Level)) + " " + b.Text.Markdown(), nil
	case BulletedItem:
		return "- " + b.Text.Markdown(), nil
	case NumberedItem:
		// Always "1."; Markdown renderers number consecutive items.
		return "1. " + b.Text.Markdown(), nil
	case ToDo:
		box := "[ ]"
		if b.Checked {
			box = "[x]"
		}
		return "- " + box + " " + b.Text.Markdown(), nil
	case Code:
		return "```" + b.Language + "\n" + b.Text.Markdown() + "\n```", nil
	case Quote:
		return "> " + b.Text.Markdown(), nil
	case Divider:
		return "---", nil
	case Toggle:
		return w.toggle(ctx, b)
	case ChildPage:
		return w.childPage(ctx, b)
	case Unsupported:
		if b.Reason != "" {
			w.warn(WarningMalformedBlock, b.ID, "malformed %s block: %s", b.Type, b.Reason)
			return "", nil
		}
		w.warn(WarningUnsupportedBlock, b.ID, "unhandled block type: %s", b.Type)
		return "", nil
	default:
		w.warn(WarningUnsupportedBlock, b.BlockID(), "unhandled block type: %s", b.Kind())
		return "", nil
	}
}

func (w *walk) toggle(ctx context.Context, b Toggle) (string, error) {
	summary := b.Text.Markdown()
	records, err := w.fetcher.ListChildren(ctx, b.ID)
	if err != nil {
		w.warn(WarningToggleFetch, b.ID, "fetching toggle children of %s: %v", b.ID, err)
		return "> <details><summary>" + summary + "</summary>\n\n</details>", nil
	}
	nested, err := w.blocks(ctx, records)
	if err != nil {
		return "", err
	}
	return "> <details><summary>" + summary + "</summary>\n\n" + nested + "\n</details>", nil
}

func (w *walk) childPage(ctx context.Context, b ChildPage) (string, error) {
	if b.PageID == "" {
		w.warn(WarningMissingPageID, b.ID, "child page id not found in block %s", b.ID)
		return "", nil
	}
	title := b.Title
	if title == "" {
		title = untitledPage
	}
	body, err := w.page(ctx, b.PageID)
	if err != nil {
		return "", err
	}
	return "\n### " + title + "\n\n" + body + "\n", nil
}

func headingLevel(n int) int {
	switch {
	case n < 1:
		return 1
	case n > 3:
		return 3
	default:
		return n
	}
}
