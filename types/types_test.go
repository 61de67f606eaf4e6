package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentCloneIsDeep(t *testing.T) {
	doc := NewDocument()
	doc.Elements = append(doc.Elements, Element{
		Type:  TypeComposition,
		Track: 1,
		Elements: []Element{
			{Type: TypeVideo, Track: TrackVideo, Source: "https://cdn.example.com/a.mp4", Volume: Zero()},
			{Type: TypeText, Track: TrackCaption, TranscriptColor: "#04f827"},
		},
	})

	cp := doc.Clone()
	cp.Elements[0].Elements[1].TranscriptColor = "#FFFFFF"
	*cp.Elements[0].Elements[0].Volume = 5
	cp.Elements[0].Elements = cp.Elements[0].Elements[:1]

	require.Len(t, doc.Elements[0].Elements, 2)
	assert.Equal(t, "#04f827", doc.Elements[0].Elements[1].TranscriptColor)
	assert.Equal(t, 0, *doc.Elements[0].Elements[0].Volume)
}

func TestSynthesisDescriptor(t *testing.T) {
	p := SynthesisProfile{VoiceID: "voice-123"}.Merge(SynthesisProfile{
		Engine:          "elevenlabs",
		ModelID:         "eleven_multilingual_v2",
		VoiceID:         "fallback",
		Stability:       0.5,
		SimilarityBoost: 0.75,
	})
	require.NoError(t, p.Check())
	assert.Equal(t,
		"elevenlabs model_id=eleven_multilingual_v2 voice_id=voice-123 stability=0.50 similarity_boost=0.75",
		p.Descriptor())

	assert.Error(t, SynthesisProfile{Engine: "elevenlabs"}.Check())
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err       error
		kind      string
		retryable bool
	}{
		{&SchemaLoadError{Source: "file", Err: errors.New("missing")}, KindSchemaLoad, true},
		{fmt.Errorf("build: %w", &PlanningError{Scene: 2, Field: "video_asset", Reason: "absent"}), KindPlanning, true},
		{&AssemblyError{Reason: "bad track"}, KindAssembly, true},
		{&ValidationFailure{Violations: []string{"width"}}, KindValidation, false},
		{errors.New("boom"), KindInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.kind, ErrorKind(tt.err))
			assert.Equal(t, tt.retryable, Retryable(tt.err))
		})
	}
}

func TestBadInputIsNotRetryable(t *testing.T) {
	script := fmt.Errorf("build: %w", &PlanningError{Field: "script", Reason: "script is empty", Input: true})
	voice := &AssemblyError{Field: "provider", Reason: "invalid synthesis profile", Input: true}

	for _, err := range []error{script, voice} {
		assert.True(t, BadInput(err))
		assert.False(t, Retryable(err))
	}
	assert.Equal(t, KindPlanning, ErrorKind(script))
	assert.False(t, BadInput(&PlanningError{Reason: "generation call failed"}))
	assert.False(t, BadInput(errors.New("boom")))
}

func TestPlanningErrorMessage(t *testing.T) {
	err := &PlanningError{Scene: 3, Field: "video_asset.url", Reason: "not in asset pool"}
	assert.Equal(t, `planning: scene 3 field "video_asset.url": not in asset pool`, err.Error())
}
