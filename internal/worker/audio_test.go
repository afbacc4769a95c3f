package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tubebrief/tubebrief/internal/events"
	"github.com/tubebrief/tubebrief/pkg/models"
)

type fakeSynthesizer struct {
	audio []byte
	err   error
	calls int
}

func (s *fakeSynthesizer) Synthesize(_ context.Context, _, _ string) ([]byte, error) {
	s.calls++
	return s.audio, s.err
}

type fakeObjectStore struct {
	paths []string
}

func (s *fakeObjectStore) Store(_ context.Context, path string, _ []byte) (string, error) {
	s.paths = append(s.paths, path)
	return "http://localhost:8080/media/" + path, nil
}

func completedContent() *models.SummaryContent {
	return &models.SummaryContent{
		Topic: "Distributed systems fundamentals",
		KeyPoints: []string{
			"Consensus requires a majority of nodes to agree",
			"Clocks drift, so ordering needs logical timestamps",
			"Replication trades consistency for availability",
		},
		Sections: []models.SummarySection{
			{Timestamp: "01:00", Title: "Consensus", Summary: "Raft and Paxos compared in depth."},
		},
		Tags: []string{"distributed-systems"},
	}
}

type audioFixture struct {
	store   *fakeStore
	synth   *fakeSynthesizer
	objects *fakeObjectStore
	bus     *events.MemoryBus
	worker  *AudioWorker
	job     models.AudioJob
}

func newAudioFixture() *audioFixture {
	summaryID := uuid.New()
	st := &fakeStore{
		summary: &models.Summary{
			ID:      summaryID,
			Status:  models.SummaryStatusCompleted,
			Content: completedContent(),
		},
	}
	synth := &fakeSynthesizer{audio: []byte("mp3-bytes")}
	objects := &fakeObjectStore{}
	bus := events.NewMemoryBus()

	return &audioFixture{
		store: st, synth: synth, objects: objects, bus: bus,
		worker: NewAudioWorker(st, synth, objects, bus, "alloy", discardLogger()),
		job:    models.AudioJob{SummaryID: summaryID, YoutubeVideoID: "yt123"},
	}
}

func (f *audioFixture) encodedJob(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(f.job)
	require.NoError(t, err)
	return body
}

func TestAudioWorker_HappyPath(t *testing.T) {
	f := newAudioFixture()
	ch, unsubscribe, err := f.bus.Subscribe(context.Background(), f.job.SummaryID)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, f.worker.Handle(context.Background(), f.encodedJob(t)))

	assert.Equal(t, 1, f.synth.calls)
	require.Len(t, f.objects.paths, 1)
	assert.Equal(t, fmt.Sprintf("summaries/%s.mp3", f.job.SummaryID), f.objects.paths[0])
	assert.Contains(t, f.store.audioURL, f.job.SummaryID.String())

	evs := collectEvents(t, ch, 2)
	assert.Equal(t, events.AudioGenerating, evs[0].Type)
	assert.Equal(t, events.AudioCompleted, evs[1].Type)
	assert.Equal(t, f.store.audioURL, evs[1].AudioURL)
}

func TestAudioWorker_CachedURLShortCircuits(t *testing.T) {
	f := newAudioFixture()
	cached := "http://localhost:8080/media/summaries/cached.mp3"
	f.store.summary.AudioURL = &cached

	ch, unsubscribe, err := f.bus.Subscribe(context.Background(), f.job.SummaryID)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, f.worker.Handle(context.Background(), f.encodedJob(t)))

	// No regeneration: the stored URL is republished as-is.
	assert.Zero(t, f.synth.calls)
	assert.Empty(t, f.objects.paths)

	ev := collectEvents(t, ch, 1)[0]
	assert.Equal(t, events.AudioCompleted, ev.Type)
	assert.Equal(t, cached, ev.AudioURL)
}

func TestAudioWorker_RejectsIncompleteSummary(t *testing.T) {
	f := newAudioFixture()
	f.store.summary.Status = models.SummaryStatusProcessing
	f.store.summary.Content = nil

	ch, unsubscribe, err := f.bus.Subscribe(context.Background(), f.job.SummaryID)
	require.NoError(t, err)
	defer unsubscribe()

	require.Error(t, f.worker.Handle(context.Background(), f.encodedJob(t)))
	assert.Zero(t, f.synth.calls)

	ev := collectEvents(t, ch, 1)[0]
	assert.Equal(t, events.AudioFailed, ev.Type)
	assert.NotEmpty(t, ev.Error)
}

func TestAudioWorker_RejectsTooShortScript(t *testing.T) {
	f := newAudioFixture()
	f.store.summary.Content = &models.SummaryContent{Topic: "x", KeyPoints: []string{"y"}}
	require.Less(t, len(BuildNarrationScript(*f.store.summary.Content)), minScriptLength)

	err := f.worker.Handle(context.Background(), f.encodedJob(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
	assert.Zero(t, f.synth.calls)
}

func TestAudioWorker_SynthesizerFailure(t *testing.T) {
	f := newAudioFixture()
	f.synth.err = errors.New("speech api down")

	ch, unsubscribe, err := f.bus.Subscribe(context.Background(), f.job.SummaryID)
	require.NoError(t, err)
	defer unsubscribe()

	require.Error(t, f.worker.Handle(context.Background(), f.encodedJob(t)))

	evs := collectEvents(t, ch, 2)
	assert.Equal(t, events.AudioGenerating, evs[0].Type)
	assert.Equal(t, events.AudioFailed, evs[1].Type)
}

func TestBuildNarrationScript_Deterministic(t *testing.T) {
	content := *completedContent()
	script := BuildNarrationScript(content)

	assert.True(t, strings.HasPrefix(script, narrationIntro))
	assert.True(t, strings.HasSuffix(script, narrationClosing))
	assert.Contains(t, script, "The topic is: Distributed systems fundamentals.")
	assert.Contains(t, script, "Point 1: Consensus requires a majority of nodes to agree.")
	assert.Contains(t, script, "Point 3: Replication trades consistency for availability.")
	assert.Contains(t, script, "Consensus. Raft and Paxos compared in depth.")

	// Same content, same script.
	assert.Equal(t, script, BuildNarrationScript(content))
}
