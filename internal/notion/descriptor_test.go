package notion

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshal(t *testing.T, d BlockDescriptor) string {
	t.Helper()
	data, err := json.Marshal(d)
	require.NoError(t, err)
	return string(data)
}

func TestBlockDescriptorMarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   BlockDescriptor
		want string
	}{
		{
			name: "heading",
			in:   plain(KindHeading2, "Plan"),
			want: `{"object":"block","type":"heading_2","heading_2":{"rich_text":[{"type":"text","text":{"content":"Plan"}}]}}`,
		},
		{
			name: "checked to do",
			in:   BlockDescriptor{Kind: KindToDo, Text: RichText{{Content: "ship"}}, Checked: true},
			want: `{"object":"block","type":"to_do","to_do":{"rich_text":[{"type":"text","text":{"content":"ship"}}],"checked":true}}`,
		},
		{
			name: "code without language",
			in:   BlockDescriptor{Kind: KindCode, Text: RichText{{}}},
			want: `{"object":"block","type":"code","code":{"rich_text":[],"language":"plain text"}}`,
		},
		{
			name: "code with language",
			in:   BlockDescriptor{Kind: KindCode, Text: RichText{{}}, Language: "go"},
			want: `{"object":"block","type":"code","code":{"rich_text":[],"language":"go"}}`,
		},
		{
			name: "divider",
			in:   BlockDescriptor{Kind: KindDivider},
			want: `{"object":"block","type":"divider","divider":{}}`,
		},
		{
			name: "annotated run",
			in:   BlockDescriptor{Kind: KindParagraph, Text: RichText{{Content: "hi", Annotations: Annotations{Bold: true}}}},
			want: `{"object":"block","type":"paragraph","paragraph":{"rich_text":[{"type":"text","text":{"content":"hi"},
				"annotations":{"bold":true,"italic":false,"underline":false,"strikethrough":false,"code":false}}]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, marshal(t, tt.in))
		})
	}
}

func TestBlockDescriptorSplitsLongContent(t *testing.T) {
	long := strings.Repeat("é", maxTextContent+5)

	var out struct {
		Paragraph struct {
			RichText []wireTextOut `json:"rich_text"`
		} `json:"paragraph"`
	}
	require.NoError(t, json.Unmarshal([]byte(marshal(t, plain(KindParagraph, long))), &out))

	require.Len(t, out.Paragraph.RichText, 2)
	assert.Equal(t, strings.Repeat("é", maxTextContent), out.Paragraph.RichText[0].Text.Content)
	assert.Equal(t, strings.Repeat("é", 5), out.Paragraph.RichText[1].Text.Content)
}

func TestSplitContent(t *testing.T) {
	assert.Nil(t, splitContent("", 3))
	assert.Equal(t, []string{"abc"}, splitContent("abc", 3))
	assert.Equal(t, []string{"abc", "de"}, splitContent("abcde", 3))
}
