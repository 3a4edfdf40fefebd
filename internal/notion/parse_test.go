package notion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkupClassifiesLines(t *testing.T) {
	tests := []struct {
		line string
		want BlockDescriptor
	}{
		{"### Small", plain(KindHeading3, "Small")},
		{"## Sub", plain(KindHeading2, "Sub")},
		{"# Title", plain(KindHeading1, "Title")},
		{"### [x] done", plain(KindHeading3, "[x] done")},
		{"- [x] shipped", BlockDescriptor{Kind: KindToDo, Text: RichText{{Content: "shipped"}}, Checked: true}},
		{"- [ ] pending", BlockDescriptor{Kind: KindToDo, Text: RichText{{Content: "pending"}}}},
		{"- [X] upper", plain(KindBulleted, "[X] upper")},
		{"- apples", plain(KindBulleted, "apples")},
		{"1. first", plain(KindNumbered, "first")},
		{"2. second", plain(KindParagraph, "2. second")},
		{"```python  ", BlockDescriptor{Kind: KindCode, Text: RichText{{}}, Language: "python"}},
		{"```", BlockDescriptor{Kind: KindCode, Text: RichText{{}}}},
		{"---", BlockDescriptor{Kind: KindDivider}},
		{"***", BlockDescriptor{Kind: KindDivider}},
		{"-----", BlockDescriptor{Kind: KindDivider}},
		{"***bold italic***", BlockDescriptor{Kind: KindDivider}},
		{"> quoted", plain(KindQuote, "quoted")},
		{">no space", plain(KindParagraph, ">no space")},
		{"###toggle", plain(KindToggle, "###toggle")},
		{"####", plain(KindToggle, "####")},
		{"#tag", plain(KindParagraph, "#tag")},
		{"**bold** words", plain(KindParagraph, "**bold** words")},
		{"  - indented", plain(KindParagraph, "  - indented")},
		{"", plain(KindParagraph, "")},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := ParseMarkup(tt.line)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestParseMarkupOneDescriptorPerLine(t *testing.T) {
	md := "# Notes\n```go\nfmt.Println()\n```\n- a\n"

	got := ParseMarkup(md)

	require.Len(t, got, 6)
	kinds := make([]Kind, len(got))
	for i, d := range got {
		kinds[i] = d.Kind
	}
	assert.Equal(t, []Kind{KindHeading1, KindCode, KindParagraph, KindCode, KindBulleted, KindParagraph}, kinds)
	assert.Equal(t, "go", got[1].Language)
	assert.Equal(t, "fmt.Println()", got[2].Text.Plain(), "code bodies are not captured")
}

func TestParseMarkupDividerForms(t *testing.T) {
	assert.Equal(t, ParseMarkup("---"), ParseMarkup("***"))

	f := &fakeFetcher{children: map[string][]Record{"p": {record("d", KindDivider, map[string]any{})}}}
	assert.Equal(t, "---", render(t, f, "p").Markdown)
}

func TestParseMarkupRunsCarryNoAnnotations(t *testing.T) {
	for _, d := range ParseMarkup("# **big**\n- *lean*\n> `code`") {
		require.Len(t, d.Text, 1)
		assert.Equal(t, Annotations{}, d.Text[0].Annotations)
	}
}
