// Package transcript fetches video captions with an ordered language
// fallback chain.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/tubebrief/tubebrief/pkg/models"
)

// Sentinel errors for caption fetch failures.
var (
	ErrUnreachable = errors.New("caption endpoint unreachable")
	ErrFetchFailed = errors.New("caption fetch failed")
	ErrTimeout     = errors.New("caption fetch timeout")
)

// Fetcher retrieves the caption track for one video. An empty language hint
// requests the provider's default track.
type Fetcher interface {
	Fetch(ctx context.Context, videoID, lang string) ([]models.TranscriptSegment, error)
}

// HTTPClient implements Fetcher against the YouTube timedtext API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new caption HTTP client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Fetch(ctx context.Context, videoID, lang string) ([]models.TranscriptSegment, error) {
	params := url.Values{
		"v":   {videoID},
		"fmt": {"json3"},
	}
	if lang != "" {
		params.Set("lang", lang)
	}

	u := fmt.Sprintf("%s/api/timedtext?%s", c.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	var track timedtextResponse
	if err := json.NewDecoder(resp.Body).Decode(&track); err != nil {
		return nil, fmt.Errorf("decoding caption response: %w", err)
	}

	return parseEvents(track.Events), nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// parseEvents flattens timedtext events into transcript segments.
func parseEvents(events []timedtextEvent) []models.TranscriptSegment {
	var segments []models.TranscriptSegment
	for _, ev := range events {
		var text string
		for _, seg := range ev.Segs {
			text += seg.UTF8
		}
		if text == "" {
			continue
		}
		segments = append(segments, models.TranscriptSegment{
			OffsetSeconds: float64(ev.TStartMs) / 1000,
			Text:          decodeEntities(text),
		})
	}
	return segments
}

// --- timedtext response types ---

type timedtextResponse struct {
	Events []timedtextEvent `json:"events"`
}

type timedtextEvent struct {
	TStartMs int64          `json:"tStartMs"`
	Segs     []timedtextSeg `json:"segs"`
}

type timedtextSeg struct {
	UTF8 string `json:"utf8"`
}

// Compile-time check that HTTPClient implements Fetcher.
var _ Fetcher = (*HTTPClient)(nil)
