// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notion reads and writes Notion pages and converts between Notion's
// block tree and Markdown.
//
// Reading walks a page's children through a Fetcher, recursing into toggles
// and child pages, and flattens the tree into Markdown. Writing classifies
// Markdown line by line into BlockDescriptors that the Client appends to a
// page. The two directions are deliberately asymmetric: toggles, code bodies
// and inline annotations do not survive a round trip.
package notion

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the Notion block type name.
type Kind string

const (
	KindParagraph   Kind = "paragraph"
	KindHeading1    Kind = "heading_1"
	KindHeading2    Kind = "heading_2"
	KindHeading3    Kind = "heading_3"
	KindBulleted    Kind = "bulleted_list_item"
	KindNumbered    Kind = "numbered_list_item"
	KindToDo        Kind = "to_do"
	KindToggle      Kind = "toggle"
	KindCode        Kind = "code"
	KindQuote       Kind = "quote"
	KindDivider     Kind = "divider"
	KindChildPage   Kind = "child_page"
	KindUnsupported Kind = "unsupported"
)

// headingKind returns the Kind for a heading level clamped to 1..3.
func headingKind(level int) Kind {
	switch {
	case level <= 1:
		return KindHeading1
	case level == 2:
		return KindHeading2
	default:
		return KindHeading3
	}
}

// Annotations are the inline styles of a rich text run. Flags are
// independent; any combination is valid.
type Annotations struct {
	Bold          bool `json:"bold"`
	Italic        bool `json:"italic"`
	Underline     bool `json:"underline"`
	Strikethrough bool `json:"strikethrough"`
	Code          bool `json:"code"`
}

// RichTextRun is a span of text sharing one set of annotations.
type RichTextRun struct {
	Content     string
	Annotations Annotations
}

// RichText is an ordered sequence of runs.
type RichText []RichTextRun

// Plain returns the run contents concatenated without markup.
func (rt RichText) Plain() string {
	var b strings.Builder
	for _, r := range rt {
		b.WriteString(r.Content)
	}
	return b.String()
}

// Block is one node of a page's content tree. The set of implementations is
// closed; callers switch on the concrete type.
type Block interface {
	BlockID() string
	Kind() Kind
	isBlock()
}

type Paragraph struct {
	ID   string
	Text RichText
}

type Heading struct {
	ID    string
	Level int
	Text  RichText
}

type BulletedItem struct {
	ID   string
	Text RichText
}

type NumberedItem struct {
	ID   string
	Text RichText
}

// ToDo is a checklist item.
type ToDo struct {
	ID      string
	Text    RichText
	Checked bool
}

// Toggle is a collapsible block. Its children are not embedded in the
// listing; they are fetched by ID when the toggle is rendered.
type Toggle struct {
	ID   string
	Text RichText
}

type Code struct {
	ID       string
	Text     RichText
	Language string
}

type Quote struct {
	ID   string
	Text RichText
}

type Divider struct {
	ID string
}

// ChildPage references another page whose content is fetched on demand.
type ChildPage struct {
	ID     string
	PageID string
	Title  string
}

// Unsupported stands in for any block type outside the handled set, or for a
// handled type whose payload could not be decoded. Type holds the remote type
// name; Reason is set only in the second case.
type Unsupported struct {
	ID     string
	Type   string
	Reason string
}

func (b Paragraph) BlockID() string    { return b.ID }
func (b Heading) BlockID() string      { return b.ID }
func (b BulletedItem) BlockID() string { return b.ID }
func (b NumberedItem) BlockID() string { return b.ID }
func (b ToDo) BlockID() string         { return b.ID }
func (b Toggle) BlockID() string       { return b.ID }
func (b Code) BlockID() string         { return b.ID }
func (b Quote) BlockID() string        { return b.ID }
func (b Divider) BlockID() string      { return b.ID }
func (b ChildPage) BlockID() string    { return b.ID }
func (b Unsupported) BlockID() string  { return b.ID }

func (Paragraph) Kind() Kind    { return KindParagraph }
func (b Heading) Kind() Kind    { return headingKind(b.Level) }
func (BulletedItem) Kind() Kind { return KindBulleted }
func (NumberedItem) Kind() Kind { return KindNumbered }
func (ToDo) Kind() Kind         { return KindToDo }
func (Toggle) Kind() Kind       { return KindToggle }
func (Code) Kind() Kind         { return KindCode }
func (Quote) Kind() Kind        { return KindQuote }
func (Divider) Kind() Kind      { return KindDivider }
func (ChildPage) Kind() Kind    { return KindChildPage }
func (Unsupported) Kind() Kind  { return KindUnsupported }

func (Paragraph) isBlock()    {}
func (Heading) isBlock()      {}
func (BulletedItem) isBlock() {}
func (NumberedItem) isBlock() {}
func (ToDo) isBlock()         {}
func (Toggle) isBlock()       {}
func (Code) isBlock()         {}
func (Quote) isBlock()        {}
func (Divider) isBlock()      {}
func (ChildPage) isBlock()    {}
func (Unsupported) isBlock()  {}

// Record is a block as returned by the children endpoint. Payload holds the
// object keyed by Type (e.g. the value of "paragraph" for a paragraph).
type Record struct {
	Object      string          `json:"object"`
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	HasChildren bool            `json:"has_children"`
	Payload     json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the common header and keeps the type-keyed payload raw.
func (r *Record) UnmarshalJSON(data []byte) error {
	type header Record
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	*r = Record(h)
	if r.Type == "" {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.Payload = fields[r.Type]
	return nil
}

// MarshalJSON emits the record in the wire shape it was decoded from.
func (r Record) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"object":       r.Object,
		"id":           r.ID,
		"type":         r.Type,
		"has_children": r.HasChildren,
	}
	if r.Type != "" {
		payload := r.Payload
		if len(payload) == 0 {
			payload = json.RawMessage(`{}`)
		}
		out[r.Type] = payload
	}
	return json.Marshal(out)
}

// wireText is one element of a rich_text array.
type wireText struct {
	Type string `json:"type"`
	Text *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
	Annotations Annotations `json:"annotations"`
	PlainText   string      `json:"plain_text,omitempty"`
}

// textPayload covers every text-bearing block payload.
type textPayload struct {
	RichText []wireText `json:"rich_text"`
	Checked  bool       `json:"checked"`
	Language string     `json:"language"`
}

type childPagePayload struct {
	Title  string `json:"title"`
	PageID string `json:"page_id"`
}

// decodeRichText converts wire runs. Only "text" runs carry content;
// mentions, equations and anything else contribute an empty, unstyled run.
func decodeRichText(in []wireText) RichText {
	out := make(RichText, 0, len(in))
	for _, w := range in {
		var run RichTextRun
		if w.Type == "text" && w.Text != nil {
			run = RichTextRun{Content: w.Text.Content, Annotations: w.Annotations}
		}
		out = append(out, run)
	}
	return out
}

// DecodeBlock converts a record into its Block variant. It never fails: an
// unknown type yields Unsupported, and a payload that does not decode yields
// Unsupported carrying the decode error as Reason.
func DecodeBlock(r Record) Block {
	switch Kind(r.Type) {
	case KindDivider:
		return Divider{ID: r.ID}
	case KindChildPage:
		var p childPagePayload
		if err := unmarshalPayload(r, &p); err != nil {
			return Unsupported{ID: r.ID, Type: r.Type, Reason: err.Error()}
		}
		// The API identifies a child page by its block ID; page_id is
		// accepted for records produced by older exports.
		pageID := p.PageID
		if pageID == "" {
			pageID = r.ID
		}
		return ChildPage{ID: r.ID, PageID: pageID, Title: p.Title}
	case KindParagraph, KindHeading1, KindHeading2, KindHeading3, KindBulleted,
		KindNumbered, KindToDo, KindToggle, KindCode, KindQuote:
	default:
		return Unsupported{ID: r.ID, Type: r.Type}
	}

	var p textPayload
	if err := unmarshalPayload(r, &p); err != nil {
		return Unsupported{ID: r.ID, Type: r.Type, Reason: err.Error()}
	}
	text := decodeRichText(p.RichText)

	switch Kind(r.Type) {
	case KindParagraph:
		return Paragraph{ID: r.ID, Text: text}
	case KindHeading1:
		return Heading{ID: r.ID, Level: 1, Text: text}
	case KindHeading2:
		return Heading{ID: r.ID, Level: 2, Text: text}
	case KindHeading3:
		return Heading{ID: r.ID, Level: 3, Text: text}
	case KindBulleted:
		return BulletedItem{ID: r.ID, Text: text}
	case KindNumbered:
		return NumberedItem{ID: r.ID, Text: text}
	case KindToDo:
		return ToDo{ID: r.ID, Text: text, Checked: p.Checked}
	case KindToggle:
		return Toggle{ID: r.ID, Text: text}
	case KindCode:
		return Code{ID: r.ID, Text: text, Language: p.Language}
	default:
		return Quote{ID: r.ID, Text: text}
	}
}

func unmarshalPayload(r Record, v any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload of block %s: %w", r.Type, r.ID, err)
	}
	return nil
}
