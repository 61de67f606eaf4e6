package captions

import (
	"encoding/json"
	"testing"

	"shorts-doc-pipeline/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func composition(n int) types.Element {
	id := "voice-" + string(rune('a'+n))
	return types.Element{
		Type:  types.TypeComposition,
		Track: 1,
		Elements: []types.Element{
			{Type: types.TypeVideo, Track: types.TrackVideo, Source: "https://cdn.example.com/clip.mp4",
				Fit: types.VideoFit, Time: types.VideoTimeAuto, Duration: types.VideoDurationAuto, Volume: types.Zero()},
			{ID: id, Type: types.TypeAudio, Track: types.TrackAudio, Source: "line", Provider: "elevenlabs voice_id=v", Dynamic: true},
			{Type: types.TypeText, Track: types.TrackCaption, Width: types.CaptionWidth, XAlignment: types.CaptionXAlignment,
				YAlignment: types.AssemblyYAlignment, TranscriptSource: id, TranscriptEffect: DefaultEffect,
				TranscriptColor: DefaultColor, TranscriptMaximumLength: types.CaptionMaxLength,
				FontFamily: types.CaptionFontFamily, FontSize: types.CaptionFontSize},
		},
	}
}

func baseDocument() *types.Document {
	doc := types.NewDocument()
	doc.Elements = append(doc.Elements, composition(0), composition(1), composition(2))
	return doc
}

func captionsOf(t *testing.T, doc *types.Document) []types.Element {
	t.Helper()
	var out []types.Element
	for _, comp := range doc.Elements {
		for _, el := range comp.Elements {
			if el.Type == types.TypeText {
				out = append(out, el)
			}
		}
	}
	return out
}

func TestOverridesAreIndependent(t *testing.T) {
	tests := []struct {
		name       string
		cfg        types.CaptionConfiguration
		wantColor  string
		wantEffect string
	}{
		{"color only", types.CaptionConfiguration{PresetID: "karaoke", TranscriptColor: "#FF5722"}, "#FF5722", "karaoke"},
		{"effect only", types.CaptionConfiguration{PresetID: "karaoke", TranscriptEffect: "bounce"}, "#04f827", "bounce"},
		{"both", types.CaptionConfiguration{PresetID: "minimal", TranscriptColor: "#123", TranscriptEffect: "slide"}, "#123", "slide"},
		{"preset only", types.CaptionConfiguration{PresetID: "highlight"}, "#FFD700", "highlight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			out := Apply(baseDocument(), &cfg)
			caps := captionsOf(t, out)
			require.Len(t, caps, 3)
			for _, c := range caps {
				assert.Equal(t, tt.wantColor, c.TranscriptColor)
				assert.Equal(t, tt.wantEffect, c.TranscriptEffect)
			}
		})
	}
}

func TestPlacementMapping(t *testing.T) {
	tests := []struct {
		placement any
		want      string
	}{
		{"top", "10%"},
		{"center", "50%"},
		{"bottom", "90%"},
		{" TOP ", "10%"},
		{"diagonal", "90%"},
		{42, "90%"},
	}
	for _, tt := range tests {
		out := Apply(baseDocument(), &types.CaptionConfiguration{Placement: tt.placement})
		for _, c := range captionsOf(t, out) {
			assert.Equal(t, tt.want, c.YAlignment, "placement %v", tt.placement)
		}
	}

	// preset placement applies when the request has none
	out := Apply(baseDocument(), &types.CaptionConfiguration{PresetID: "bold"})
	assert.Equal(t, "10%", captionsOf(t, out)[0].YAlignment)

	// and the request placement beats the preset
	out = Apply(baseDocument(), &types.CaptionConfiguration{PresetID: "bold", Placement: "center"})
	assert.Equal(t, "50%", captionsOf(t, out)[0].YAlignment)
}

func TestFallbackSafety(t *testing.T) {
	var malformed types.CaptionConfiguration
	require.NoError(t, json.Unmarshal(
		[]byte(`{"enabled":"yes","presetId":123,"placement":"diagonal","transcriptColor":"banana"}`), &malformed))

	for name, cfg := range map[string]*types.CaptionConfiguration{
		"unknown preset": {PresetID: "not-a-real-preset"},
		"malformed":      &malformed,
		"nil":            nil,
		"empty":          {},
		"bad effect":     {TranscriptEffect: 7, TranscriptColor: "#GGGGGG"},
	} {
		t.Run(name, func(t *testing.T) {
			out := Apply(baseDocument(), cfg)
			caps := captionsOf(t, out)
			require.Len(t, caps, 3, "captions stay enabled")
			for _, c := range caps {
				assert.Equal(t, DefaultColor, c.TranscriptColor)
				assert.Equal(t, DefaultEffect, c.TranscriptEffect)
				assert.Equal(t, "90%", c.YAlignment)
			}
		})
	}
}

func TestPartialPresetFallsBackPerField(t *testing.T) {
	s := Resolve(&types.CaptionConfiguration{PresetID: "subtle"})
	assert.Equal(t, Style{
		Enabled:    true,
		PresetID:   "subtle",
		Color:      "#E0E0E0",
		Effect:     DefaultEffect,
		Placement:  DefaultPlacement,
		YAlignment: "90%",
	}, s)
}

func TestDisableRemovesOnlyCaptions(t *testing.T) {
	in := baseDocument()
	out := Apply(in, &types.CaptionConfiguration{Enabled: false})

	assert.Empty(t, captionsOf(t, out))
	require.Len(t, out.Elements, len(in.Elements))
	for i := range in.Elements {
		assert.Equal(t, in.Elements[i].Count(types.TypeVideo), out.Elements[i].Count(types.TypeVideo))
		assert.Equal(t, in.Elements[i].Count(types.TypeAudio), out.Elements[i].Count(types.TypeAudio))
		video, _ := out.Elements[i].Child(types.TypeVideo)
		wantVideo, _ := in.Elements[i].Child(types.TypeVideo)
		assert.Equal(t, wantVideo, video)
	}

	again := Apply(out, &types.CaptionConfiguration{Enabled: false})
	assert.Empty(t, cmp.Diff(out, again))
}

func TestEnabledOnlyByExplicitFalse(t *testing.T) {
	for _, v := range []any{nil, true, "false", 0, "no"} {
		out := Apply(baseDocument(), &types.CaptionConfiguration{Enabled: v})
		assert.Len(t, captionsOf(t, out), 3, "enabled=%v", v)
	}
}

func TestApplyIsPure(t *testing.T) {
	in := baseDocument()
	snapshot := in.Clone()
	cfg := &types.CaptionConfiguration{PresetID: "bold", TranscriptColor: "#abcdef"}

	first := Apply(in, cfg)
	second := Apply(in, cfg)

	assert.Empty(t, cmp.Diff(first, second))
	assert.Empty(t, cmp.Diff(snapshot, in), "input document must not change")

	Apply(in, &types.CaptionConfiguration{Enabled: false})
	assert.Len(t, captionsOf(t, in), 3)
}

func TestApplyNil(t *testing.T) {
	assert.Nil(t, Apply(nil, nil))
}
