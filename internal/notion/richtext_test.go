package notion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRichTextRunMarkdown(t *testing.T) {
	tests := []struct {
		name string
		ann  Annotations
		want string
	}{
		{name: "plain", want: "x"},
		{name: "bold", ann: Annotations{Bold: true}, want: "**x**"},
		{name: "italic", ann: Annotations{Italic: true}, want: "*x*"},
		{name: "bold italic nests", ann: Annotations{Bold: true, Italic: true}, want: "***x***"},
		{name: "underline", ann: Annotations{Underline: true}, want: "<u>x</u>"},
		{name: "strikethrough", ann: Annotations{Strikethrough: true}, want: "~~x~~"},
		{name: "code", ann: Annotations{Code: true}, want: "`x`"},
		{name: "bold code", ann: Annotations{Bold: true, Code: true}, want: "`**x**`"},
		{
			name: "all flags in fixed order",
			ann:  Annotations{Bold: true, Italic: true, Underline: true, Strikethrough: true, Code: true},
			want: "`~~<u>***x***</u>~~`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RichTextRun{Content: "x", Annotations: tt.ann}.Markdown())
		})
	}
}

func TestRichTextMarkdownConcatenates(t *testing.T) {
	rt := RichText{
		{Content: "Read "},
		{Content: "this", Annotations: Annotations{Bold: true}},
		{Content: ""},
		{Content: " now", Annotations: Annotations{Strikethrough: true}},
	}
	assert.Equal(t, "Read **this**~~ now~~", rt.Markdown())
	assert.Equal(t, "Read this now", rt.Plain())
}
