package notion

import (
	"encoding/json"
	"unicode/utf8"
)

// maxTextContent is Notion's limit on the content of one text object.
const maxTextContent = 2000

// defaultCodeLanguage is sent when a fence carries no language; the API
// rejects an empty one.
const defaultCodeLanguage = "plain text"

type wireTextOut struct {
	Type        string       `json:"type"`
	Text        wireContent  `json:"text"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

type wireContent struct {
	Content string `json:"content"`
}

// MarshalJSON encodes the descriptor as a block object for the append and
// create endpoints.
func (d BlockDescriptor) MarshalJSON() ([]byte, error) {
	body := map[string]any{}
	switch d.Kind {
	case KindDivider:
	case KindCode:
		lang := d.Language
		if lang == "" {
			lang = defaultCodeLanguage
		}
		body["rich_text"] = wireRichText(d.Text)
		body["language"] = lang
	case KindToDo:
		body["rich_text"] = wireRichText(d.Text)
		body["checked"] = d.Checked
	default:
		body["rich_text"] = wireRichText(d.Text)
	}
	return json.Marshal(map[string]any{
		"object":       "block",
		"type":         d.Kind,
		string(d.Kind): body,
	})
}

// wireRichText converts runs to text objects, dropping empty runs and
// splitting content that exceeds the per-object limit.
func wireRichText(rt RichText) []wireTextOut {
	out := make([]wireTextOut, 0, len(rt))
	for _, r := range rt {
		var ann *Annotations
		if r.Annotations != (Annotations{}) {
			a := r.Annotations
			ann = &a
		}
		for _, chunk := range splitContent(r.Content, maxTextContent) {
			out = append(out, wireTextOut{Type: "text", Text: wireContent{Content: chunk}, Annotations: ann})
		}
	}
	return out
}

// splitContent cuts s into pieces of at most n runes.
func splitContent(s string, n int) []string {
	if s == "" {
		return nil
	}
	if utf8.RuneCountInString(s) <= n {
		return []string{s}
	}
	var parts []string
	for len(s) > 0 {
		i, count := 0, 0
		for i < len(s) && count < n {
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			count++
		}
		parts = append(parts, s[:i])
		s = s[i:]
	}
	return parts
}
