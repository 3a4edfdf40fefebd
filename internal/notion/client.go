// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thibo73800/flow-watcher/internal/httputil"
	"github.com/thibo73800/flow-watcher/internal/logging"
)

// notionAPIBase is the Notion REST root. Declared as a var so tests can
// substitute an httptest server.
var notionAPIBase = "https://api.notion.com/v1"

const notionVersion = "2022-06-28"

// maxBatch is the most children the API accepts per list page, per append
// request, and on page creation.
const maxBatch = 100

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("Notion API returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("Notion API returned HTTP %d (%s): %s", e.Status, e.Code, e.Message)
}

// Client talks to the Notion API with an integration secret. It satisfies
// Fetcher.
type Client struct {
	HTTP      *http.Client
	APIKey    string
	UserAgent string
	Log       *slog.Logger
}

// NewClient returns a Client using httpClient for transport.
func NewClient(httpClient *http.Client, apiKey, userAgent string, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Client{HTTP: httpClient, APIKey: apiKey, UserAgent: userAgent, Log: log}
}

// Page is the subset of a page object the CLI uses. Properties are kept raw
// because their shape depends on the database schema.
type Page struct {
	Object         string                     `json:"object" yaml:"object"`
	ID             string                     `json:"id" yaml:"id"`
	URL            string                     `json:"url" yaml:"url"`
	CreatedTime    time.Time                  `json:"created_time" yaml:"created_time"`
	LastEditedTime time.Time                  `json:"last_edited_time" yaml:"last_edited_time"`
	Archived       bool                       `json:"archived" yaml:"archived"`
	Properties     map[string]json.RawMessage `json:"properties" yaml:"-"`
}

// Title returns the plain text of the page's title property, or "" when the
// page has none.
func (p *Page) Title() string {
	for _, raw := range p.Properties {
		var prop struct {
			Type  string `json:"type"`
			Title []struct {
				PlainText string `json:"plain_text"`
			} `json:"title"`
		}
		if json.Unmarshal(raw, &prop) != nil || prop.Type != "title" {
			continue
		}
		var b strings.Builder
		for _, t := range prop.Title {
			b.WriteString(t.PlainText)
		}
		return b.String()
	}
	return ""
}

type childrenResponse struct {
	Results    []Record `json:"results"`
	HasMore    bool     `json:"has_more"`
	NextCursor *string  `json:"next_cursor"`
}

// ListChildren returns every child of blockID, following pagination cursors.
func (c *Client) ListChildren(ctx context.Context, blockID string) ([]Record, error) {
	var all []Record
	cursor := ""
	for {
		q := url.Values{"page_size": {fmt.Sprint(maxBatch)}}
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		var page childrenResponse
		if err := c.do(ctx, http.MethodGet, "/blocks/"+url.PathEscape(blockID)+"/children", q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if !page.HasMore || page.NextCursor == nil || *page.NextCursor == "" {
			return all, nil
		}
		cursor = *page.NextCursor
	}
}

// RetrievePage fetches a page (or database entry) by ID.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	var p Page
	if err := c.do(ctx, http.MethodGet, "/pages/"+url.PathEscape(pageID), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePage creates a database entry titled title with the given children.
// Children beyond the creation limit are appended afterwards.
func (c *Client) CreatePage(ctx context.Context, databaseID, title string, children []BlockDescriptor) (*Page, error) {
	first, rest := children, []BlockDescriptor(nil)
	if len(children) > maxBatch {
		first, rest = children[:maxBatch], children[maxBatch:]
	}
	if first == nil {
		first = []BlockDescriptor{}
	}

	body := map[string]any{
		"parent": map[string]string{"database_id": databaseID},
		"properties": map[string]any{
			"title": map[string]any{
				"title": wireRichText(RichText{{Content: title}}),
			},
		},
		"children": first,
	}

	var p Page
	if err := c.do(ctx, http.MethodPost, "/pages", nil, body, &p); err != nil {
		return nil, fmt.Errorf("creating page %q: %w", title, err)
	}
	if len(rest) > 0 {
		if _, err := c.AppendChildren(ctx, p.ID, rest); err != nil {
			return &p, fmt.Errorf("appending remaining blocks to page %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

// AppendChildren appends descriptors to blockID in request-sized batches and
// returns the created blocks.
func (c *Client) AppendChildren(ctx context.Context, blockID string, children []BlockDescriptor) ([]Record, error) {
	var created []Record
	for start := 0; start < len(children); start += maxBatch {
		end := min(start+maxBatch, len(children))
		var resp childrenResponse
		body := map[string]any{"children": children[start:end]}
		if err := c.do(ctx, http.MethodPatch, "/blocks/"+url.PathEscape(blockID)+"/children", nil, body, &resp); err != nil {
			return created, fmt.Errorf("appending blocks %d-%d: %w", start, end-1, err)
		}
		created = append(created, resp.Results...)
	}
	return created, nil
}

// WriteMarkdown parses markdown into blocks and appends them to pageID.
func (c *Client) WriteMarkdown(ctx context.Context, pageID, markdown string) ([]Record, error) {
	return c.AppendChildren(ctx, pageID, ParseMarkup(markdown))
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	reqURL := notionAPIBase + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, rdr)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	c.Log.Debug("notion request", "method", method, "path", path)

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0)
	if err != nil {
		return fmt.Errorf("Notion API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing Notion response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(data) > 0 {
		_ = json.Unmarshal(data, apiErr)
	}
	apiErr.Status = resp.StatusCode
	return apiErr
}
