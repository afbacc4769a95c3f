package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tubebrief/tubebrief/internal/events"
	"github.com/tubebrief/tubebrief/internal/storage"
	"github.com/tubebrief/tubebrief/internal/store"
	"github.com/tubebrief/tubebrief/internal/tts"
	"github.com/tubebrief/tubebrief/pkg/models"
)

// minScriptLength guards against synthesizing a near-empty narration. The
// intro and closing lines alone are ~90 characters, so the floor sits above
// boilerplate-only scripts.
const minScriptLength = 160

const (
	narrationIntro   = "Here is an audio summary of this video."
	narrationClosing = "That concludes this summary. Thanks for listening."
)

// AudioWorker consumes audio-generation jobs for completed summaries.
// A cached audio URL short-circuits regeneration.
type AudioWorker struct {
	store       store.Store
	synthesizer tts.Synthesizer
	objects     storage.ObjectStore
	bus         events.Bus
	voice       string
	logger      *slog.Logger
}

// NewAudioWorker creates a new AudioWorker.
func NewAudioWorker(st store.Store, synth tts.Synthesizer, objects storage.ObjectStore, bus events.Bus, voice string, logger *slog.Logger) *AudioWorker {
	return &AudioWorker{
		store:       st,
		synthesizer: synth,
		objects:     objects,
		bus:         bus,
		voice:       voice,
		logger:      logger.With("worker", "audio"),
	}
}

// Handle generates narrated audio for one completed summary. Any error is
// published as an audio_failed event and returned; the parent summary's own
// status is never altered.
func (w *AudioWorker) Handle(ctx context.Context, body []byte) error {
	var job models.AudioJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode audio job: %w", err)
	}

	if err := w.generate(ctx, job); err != nil {
		_ = w.bus.Publish(ctx, job.SummaryID, events.Event{
			Type:  events.AudioFailed,
			Error: err.Error(),
		})
		return err
	}
	return nil
}

func (w *AudioWorker) generate(ctx context.Context, job models.AudioJob) error {
	logger := w.logger.With("summary_id", job.SummaryID)

	summary, err := w.store.GetSummary(ctx, job.SummaryID)
	if err != nil {
		return fmt.Errorf("load summary: %w", err)
	}

	// Idempotency: a prior run's URL is republished without regeneration.
	if summary.AudioURL != nil && *summary.AudioURL != "" {
		logger.Info("audio already generated, republishing cached url")
		_ = w.bus.Publish(ctx, job.SummaryID, events.Event{
			Type:     events.AudioCompleted,
			AudioURL: *summary.AudioURL,
		})
		return nil
	}

	if summary.Status != models.SummaryStatusCompleted || summary.Content == nil {
		return fmt.Errorf("summary %s is not completed (status %s)", job.SummaryID, summary.Status)
	}

	_ = w.bus.Publish(ctx, job.SummaryID, events.Event{Type: events.AudioGenerating})

	script := BuildNarrationScript(*summary.Content)
	if len(script) < minScriptLength {
		return fmt.Errorf("narration script too short (%d chars)", len(script))
	}

	audio, err := w.synthesizer.Synthesize(ctx, script, w.voice)
	if err != nil {
		return fmt.Errorf("synthesize audio: %w", err)
	}

	url, err := w.objects.Store(ctx, fmt.Sprintf("summaries/%s.mp3", job.SummaryID), audio)
	if err != nil {
		return fmt.Errorf("store audio: %w", err)
	}

	if err := w.store.UpdateSummaryAudio(ctx, job.SummaryID, url, time.Now().UTC()); err != nil {
		return fmt.Errorf("persist audio url: %w", err)
	}

	logger.Info("audio generated", "url", url, "bytes", len(audio))
	_ = w.bus.Publish(ctx, job.SummaryID, events.Event{
		Type:     events.AudioCompleted,
		AudioURL: url,
	})
	return nil
}

// BuildNarrationScript assembles the spoken script deterministically:
// intro, topic, enumerated key points, section titles with their
// summaries, then the closing line.
func BuildNarrationScript(content models.SummaryContent) string {
	var b strings.Builder

	b.WriteString(narrationIntro)
	b.WriteString(" The topic is: ")
	b.WriteString(content.Topic)
	b.WriteString(".\n")

	for i, kp := range content.KeyPoints {
		fmt.Fprintf(&b, "Point %d: %s.\n", i+1, kp)
	}
	for _, sec := range content.Sections {
		fmt.Fprintf(&b, "%s. %s\n", sec.Title, sec.Summary)
	}

	b.WriteString(narrationClosing)
	return b.String()
}
