// Package export pushes completed summaries into a Notion workspace. The
// subpipeline is isolated: its failure is recorded on the summary's notion
// fields and never escalates to the parent job.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tubebrief/tubebrief/pkg/models"
)

const notionVersion = "2022-06-28"

// Exporter creates one document per completed summary.
type Exporter interface {
	CreatePage(ctx context.Context, token, databaseID string, content models.SummaryContent, video *models.Video) (string, error)
}

// NotionClient implements Exporter against the Notion REST API.
type NotionClient struct {
	baseURL string
	client  *http.Client
}

// NewNotionClient creates a new Notion client.
func NewNotionClient(baseURL string, timeout time.Duration) *NotionClient {
	return &NotionClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *NotionClient) CreatePage(ctx context.Context, token, databaseID string, content models.SummaryContent, video *models.Video) (string, error) {
	payload := buildPagePayload(databaseID, content, video)

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode notion payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/pages", buf)
	if err != nil {
		return "", fmt.Errorf("create notion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Notion-Version", notionVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call notion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("notion page create failed: status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return "", fmt.Errorf("decode notion response: %w", err)
	}
	if page.URL == "" {
		return "", fmt.Errorf("notion response missing page url")
	}
	return page.URL, nil
}

func buildPagePayload(databaseID string, content models.SummaryContent, video *models.Video) map[string]any {
	children := []map[string]any{
		heading("Key Points"),
	}
	for _, kp := range content.KeyPoints {
		children = append(children, bullet(kp))
	}
	for _, sec := range content.Sections {
		children = append(children,
			heading(fmt.Sprintf("%s %s", sec.Timestamp, sec.Title)),
			paragraph(sec.Summary))
	}

	return map[string]any{
		"parent": map[string]any{"database_id": databaseID},
		"properties": map[string]any{
			"Name": map[string]any{
				"title": []map[string]any{richText(video.Title)},
			},
			"Topic": map[string]any{
				"rich_text": []map[string]any{richText(content.Topic)},
			},
			"Video": map[string]any{
				"url": "https://www.youtube.com/watch?v=" + video.YoutubeVideoID,
			},
		},
		"children": children,
	}
}

func richText(text string) map[string]any {
	return map[string]any{"text": map[string]any{"content": text}}
}

func heading(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "heading_2",
		"heading_2": map[string]any{
			"rich_text": []map[string]any{richText(text)},
		},
	}
}

func paragraph(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "paragraph",
		"paragraph": map[string]any{
			"rich_text": []map[string]any{richText(text)},
		},
	}
}

func bullet(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "bulleted_list_item",
		"bulleted_list_item": map[string]any{
			"rich_text": []map[string]any{richText(text)},
		},
	}
}

var _ Exporter = (*NotionClient)(nil)
