// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// notionServer starts an httptest server and points notionAPIBase at it for
// the duration of the test.
func notionServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	orig := notionAPIBase
	notionAPIBase = ts.URL
	t.Cleanup(func() {
		notionAPIBase = orig
		ts.Close()
	})
	return NewClient(ts.Client(), "secret_test", "flow-watcher/test", nil)
}

func TestListChildren_Paginates(t *testing.T) {
	var cursors []string
	c := notionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/blocks/page-1/children", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("page_size"))
		assert.Equal(t, "Bearer secret_test", r.Header.Get("Authorization"))
		assert.Equal(t, notionVersion, r.Header.Get("Notion-Version"))
		assert.Equal(t, "flow-watcher/test", r.Header.Get("User-Agent"))

		cursor := r.URL.Query().Get("start_cursor")
		cursors = append(cursors, cursor)
		if cursor == "" {
			fmt.Fprint(w, `{"results":[{"object":"block","id":"a","type":"divider","divider":{}}],"has_more":true,"next_cursor":"c2"}`)
			return
		}
		fmt.Fprint(w, `{"results":[{"object":"block","id":"b","type":"divider","divider":{}}],"has_more":false,"next_cursor":null}`)
	})

	records, err := c.ListChildren(context.Background(), "page-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, []string{"", "c2"}, cursors)
}

func TestClient_APIError(t *testing.T) {
	c := notionServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"object":"error","status":404,"code":"object_not_found","message":"Could not find page"}`)
	})

	_, err := c.RetrievePage(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "object_not_found", apiErr.Code)
	assert.Contains(t, err.Error(), "Could not find page")
}

func TestClient_APIErrorWithoutBody(t *testing.T) {
	c := notionServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.ListChildren(context.Background(), "p")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Notion API returned HTTP 502", apiErr.Error())
}

func TestRetrievePage_Title(t *testing.T) {
	c := notionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pages/p1", r.URL.Path)
		fmt.Fprint(w, `{
		  "object": "page",
		  "id": "p1",
		  "url": "https://www.notion.so/p1",
		  "created_time": "2024-05-01T10:00:00.000Z",
		  "last_edited_time": "2024-05-02T10:00:00.000Z",
		  "properties": {
		    "Tags": {"id": "t", "type": "multi_select", "multi_select": []},
		    "Name": {"id": "title", "type": "title", "title": [
		      {"type": "text", "plain_text": "Morning "},
		      {"type": "text", "plain_text": "memo"}
		    ]}
		  }
		}`)
	})

	page, err := c.RetrievePage(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Morning memo", page.Title())
	assert.Equal(t, "https://www.notion.so/p1", page.URL)
	assert.Equal(t, 2024, page.CreatedTime.Year())
}

func TestPageTitle_NoTitleProperty(t *testing.T) {
	p := &Page{Properties: map[string]json.RawMessage{"Status": json.RawMessage(`{"type":"select"}`)}}
	assert.Empty(t, p.Title())
}

// appendRecorder records the size of every PATCH children request.
type appendRecorder struct {
	mu      sync.Mutex
	batches []int
	created string
}

func (a *appendRecorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req struct {
			Parent   map[string]string `json:"parent"`
			Children []json.RawMessage `json:"children"`
		}
		require.NoError(t, json.Unmarshal(body, &req))

		a.mu.Lock()
		defer a.mu.Unlock()
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/pages":
			a.created = string(body)
			a.batches = append(a.batches, len(req.Children))
			fmt.Fprint(w, `{"object":"page","id":"new-page","url":"https://www.notion.so/new-page"}`)
		case r.Method == http.MethodPatch && strings.HasSuffix(r.URL.Path, "/children"):
			a.batches = append(a.batches, len(req.Children))
			fmt.Fprint(w, `{"results":[]}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}
}

func paragraphs(n int) []BlockDescriptor {
	out := make([]BlockDescriptor, n)
	for i := range out {
		out[i] = plain(KindParagraph, fmt.Sprintf("line %d", i))
	}
	return out
}

func TestAppendChildren_Batches(t *testing.T) {
	rec := &appendRecorder{}
	c := notionServer(t, rec.handler(t))

	_, err := c.AppendChildren(context.Background(), "page", paragraphs(150))
	require.NoError(t, err)
	assert.Equal(t, []int{100, 50}, rec.batches)
}

func TestAppendChildren_Empty(t *testing.T) {
	rec := &appendRecorder{}
	c := notionServer(t, rec.handler(t))

	created, err := c.AppendChildren(context.Background(), "page", nil)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, rec.batches)
}

func TestCreatePage_AppendsOverflow(t *testing.T) {
	rec := &appendRecorder{}
	c := notionServer(t, rec.handler(t))

	page, err := c.CreatePage(context.Background(), "db-1", "Voice memo", paragraphs(120))
	require.NoError(t, err)
	assert.Equal(t, "new-page", page.ID)
	assert.Equal(t, []int{100, 20}, rec.batches)
	assert.Contains(t, rec.created, `"database_id":"db-1"`)
	assert.Contains(t, rec.created, `"content":"Voice memo"`)
}

func TestWriteMarkdown_SendsParsedBlocks(t *testing.T) {
	var got []map[string]any
	c := notionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/blocks/page/children", r.URL.Path)
		var req struct {
			Children []map[string]any `json:"children"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = req.Children
		fmt.Fprint(w, `{"results":[]}`)
	})

	_, err := c.WriteMarkdown(context.Background(), "page", "# Plan\n- [x] record\n---")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "heading_1", got[0]["type"])
	assert.Equal(t, "to_do", got[1]["type"])
	assert.Equal(t, true, got[1]["to_do"].(map[string]any)["checked"])
	assert.Equal(t, "divider", got[2]["type"])
}

func TestRenderer_WithClient(t *testing.T) {
	c := notionServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/blocks/root/children":
			fmt.Fprint(w, `{"results":[
			  {"object":"block","id":"h","type":"heading_1","heading_1":{"rich_text":[{"type":"text","text":{"content":"Journal"}}]}},
			  {"object":"block","id":"t","type":"toggle","has_children":true,"toggle":{"rich_text":[{"type":"text","text":{"content":"More"}}]}},
			  {"object":"block","id":"sub","type":"child_page","child_page":{"title":"Sub"}}
			],"has_more":false}`)
		case "/blocks/t/children":
			fmt.Fprint(w, `{"results":[{"object":"block","id":"q","type":"quote","quote":{"rich_text":[{"type":"text","text":{"content":"inside"}}]}}]}`)
		case "/blocks/sub/children":
			fmt.Fprint(w, `{"results":[{"object":"block","id":"d","type":"divider","divider":{}}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	res, err := NewRenderer(c, nil).RenderPage(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t,
		"# Journal\n\n> <details><summary>More</summary>\n\n> inside\n</details>\n\n\n### Sub\n\n---\n",
		res.Markdown)
	assert.Empty(t, res.Warnings)
}
