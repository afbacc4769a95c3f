// Package mock provides a models.SummaryProvider for tests and local
// development without an API key.
package mock

import (
	"context"

	"github.com/tubebrief/tubebrief/pkg/models"
)

// Provider satisfies models.SummaryProvider for testing.
type Provider struct {
	Name_         string
	SummarizeFunc func(ctx context.Context, req models.SummaryRequest) (models.SummaryContent, error)
}

func (p *Provider) Name() string { return p.Name_ }

func (p *Provider) Summarize(ctx context.Context, req models.SummaryRequest) (models.SummaryContent, error) {
	if p.SummarizeFunc != nil {
		return p.SummarizeFunc(ctx, req)
	}
	return models.SummaryContent{}, nil
}

// NewProvider returns a Provider with a sensible canned response.
func NewProvider() *Provider {
	return &Provider{
		Name_: "mock",
		SummarizeFunc: func(_ context.Context, req models.SummaryRequest) (models.SummaryContent, error) {
			return models.SummaryContent{
				Topic:     "Mock summary of " + req.Title,
				KeyPoints: []string{"First mock point", "Second mock point", "Third mock point"},
				Sections: []models.SummarySection{
					{Timestamp: "00:00", Title: "Introduction", Summary: "Mock section summary."},
				},
				Tags: []string{"mock", "testing", "video"},
			}, nil
		},
	}
}

// NewFailingProvider returns a Provider that always returns the given error.
func NewFailingProvider(err error) *Provider {
	return &Provider{
		Name_: "mock-failing",
		SummarizeFunc: func(_ context.Context, _ models.SummaryRequest) (models.SummaryContent, error) {
			return models.SummaryContent{}, err
		},
	}
}

// Compile-time check that Provider implements SummaryProvider.
var _ models.SummaryProvider = (*Provider)(nil)
