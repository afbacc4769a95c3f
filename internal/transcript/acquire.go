package transcript

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tubebrief/tubebrief/pkg/models"
)

// PlaceholderText is the single synthetic segment returned when no caption
// track exists in any candidate language. Downstream summarization is told
// to fall back to the video title and description.
const PlaceholderText = "Captions are unavailable for this video. " +
	"Base the summary on the video title and description only."

// Acquirer runs the ordered language fallback chain over a Fetcher.
type Acquirer struct {
	fetcher   Fetcher
	languages []string
	logger    *slog.Logger
}

// NewAcquirer creates an Acquirer trying the given languages in order,
// then the provider default.
func NewAcquirer(fetcher Fetcher, languages []string, logger *slog.Logger) *Acquirer {
	return &Acquirer{fetcher: fetcher, languages: languages, logger: logger}
}

// Acquire never fails: a fetch that errors or comes back empty is a miss
// and advances the chain; if every candidate misses the result is the
// one-element placeholder.
func (a *Acquirer) Acquire(ctx context.Context, videoID string) []models.TranscriptSegment {
	// Empty string last requests the provider default track.
	candidates := append(append([]string{}, a.languages...), "")

	for _, lang := range candidates {
		segments, err := a.fetcher.Fetch(ctx, videoID, lang)
		if err != nil {
			a.logger.Debug("caption fetch miss",
				"video_id", videoID, "lang", lang, "error", err)
			continue
		}
		if len(segments) == 0 {
			a.logger.Debug("caption track empty", "video_id", videoID, "lang", lang)
			continue
		}
		return segments
	}

	a.logger.Info("no captions found, using placeholder", "video_id", videoID)
	return []models.TranscriptSegment{{OffsetSeconds: 0, Text: PlaceholderText}}
}

// entityReplacer decodes the HTML entities YouTube leaves in caption text.
// The double-escaped apostrophe must be listed before the bare ampersand.
var entityReplacer = strings.NewReplacer(
	"&amp;#39;", "'",
	"&amp;", "&",
	"&quot;", `"`,
	"&lt;", "<",
	"&gt;", ">",
	"&#39;", "'",
)

func decodeEntities(s string) string {
	return entityReplacer.Replace(s)
}
