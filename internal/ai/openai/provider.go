// Package openai implements models.SummaryProvider using the OpenAI chat
// completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tubebrief/tubebrief/internal/config"
	"github.com/tubebrief/tubebrief/pkg/models"
)

const completionsEndpoint = "https://api.openai.com/v1/chat/completions"

// Provider implements models.SummaryProvider using OpenAI.
type Provider struct {
	cfg        config.OpenAIConfig
	endpoint   string
	httpClient *http.Client
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	return &Provider{
		cfg:        cfg,
		endpoint:   completionsEndpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Summarize(ctx context.Context, req models.SummaryRequest) (models.SummaryContent, error) {
	payload := map[string]any{
		"model": p.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildUserPrompt(req)},
		},
		"temperature":     0.3,
		"response_format": map[string]string{"type": "json_object"},
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return models.SummaryContent{}, fmt.Errorf("encode completion payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, buf)
	if err != nil {
		return models.SummaryContent{}, fmt.Errorf("create completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return models.SummaryContent{}, fmt.Errorf("call openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.SummaryContent{}, &models.ProviderError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return models.SummaryContent{}, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}
	if len(response.Choices) == 0 {
		return models.SummaryContent{}, fmt.Errorf("%w: no choices returned", models.ErrMalformedResponse)
	}

	return ParseContent(response.Choices[0].Message.Content)
}

// ParseContent parses the raw completion text as the structured summary
// shape. Any deviation from the expected shape is fatal.
func ParseContent(raw string) (models.SummaryContent, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var content models.SummaryContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return models.SummaryContent{}, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}
	if content.Topic == "" || len(content.KeyPoints) == 0 {
		return models.SummaryContent{}, fmt.Errorf("%w: missing topic or key points", models.ErrMalformedResponse)
	}
	return content, nil
}

var _ models.SummaryProvider = (*Provider)(nil)
