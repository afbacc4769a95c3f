package openai

import (
	"fmt"
	"strings"

	"github.com/tubebrief/tubebrief/pkg/models"
)

const systemPrompt = `You are a video summarization assistant. Respond with a single JSON object:
{"topic": string, "tags": [3-5 strings], "key_points": [strings], "sections": [{"timestamp": "mm:ss", "title": string, "summary": string}]}
Prefer reusing tags from the provided vocabulary when they fit. Respond with JSON only.`

// keyPointTarget maps the user's detail preference to a key-point count.
func keyPointTarget(detail string) int {
	switch detail {
	case "brief":
		return 3
	case "detailed":
		return 7
	default:
		return 5
	}
}

func buildUserPrompt(req models.SummaryRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Video title: %s\n", req.Title)
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	}
	fmt.Fprintf(&b, "Provide %d key points.\n", keyPointTarget(req.Detail))
	if len(req.ExistingTags) > 0 {
		fmt.Fprintf(&b, "Existing tag vocabulary: %s\n", strings.Join(req.ExistingTags, ", "))
	}

	b.WriteString("\nTranscript:\n")
	for _, seg := range req.Transcript {
		fmt.Fprintf(&b, "[%ds] %s\n", int(seg.OffsetSeconds), seg.Text)
	}

	return b.String()
}
