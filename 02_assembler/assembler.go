package assembler

import (
	"context"
	"fmt"

	captions "shorts-doc-pipeline/03_captions"
	"shorts-doc-pipeline/llm"
	"shorts-doc-pipeline/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Assembly modes
const (
	ModeGenerate = "generate"
	ModeTemplate = "template"
)

// Options are the per-call assembly settings. Reference is the schema text
// handed to the model in generate mode.
type Options struct {
	Mode        string
	Model       string
	Temperature float64
	MaxTokens   int
	Reference   string
}

// Assembler expands a scene plan into a declarative document
type Assembler struct {
	llm llm.Completer
}

// New creates a new Assembler. c may be nil when only template mode is used.
func New(c llm.Completer) *Assembler {
	return &Assembler{llm: c}
}

// Assemble builds one composition per scene, in plan order. voice is the
// request's synthesis profile and is stamped on every audio element.
// Failures are *types.AssemblyError.
func (a *Assembler) Assemble(ctx context.Context, plan *types.ScenePlan, voice types.SynthesisProfile, style types.StyleProfile, opts Options) (*types.Document, error) {
	if plan == nil || len(plan.Scenes) == 0 {
		return nil, &types.AssemblyError{Field: "scenes", Reason: "scene plan is empty"}
	}
	if err := voice.Check(); err != nil {
		return nil, &types.AssemblyError{Field: "provider", Reason: "invalid synthesis profile", Input: true, Err: err}
	}

	switch opts.Mode {
	case ModeTemplate:
		doc := Expand(plan, voice)
		log.Info().Str("stage", "assembler").Str("mode", ModeTemplate).Int("compositions", len(doc.Elements)).Msg("✅ document assembled")
		return doc, nil
	case ModeGenerate, "":
		if a.llm == nil {
			return nil, &types.AssemblyError{Reason: "generate mode needs a completion client"}
		}
		doc, err := a.generate(ctx, plan, voice, style, opts)
		if err != nil {
			return nil, err
		}
		log.Info().Str("stage", "assembler").Str("mode", ModeGenerate).Int("compositions", len(doc.Elements)).Msg("✅ document assembled")
		return doc, nil
	default:
		return nil, &types.AssemblyError{Field: "mode", Reason: fmt.Sprintf("unknown assembly mode %q", opts.Mode)}
	}
}

// Expand builds the document straight from the plan without a generation call
func Expand(plan *types.ScenePlan, voice types.SynthesisProfile) *types.Document {
	doc := types.NewDocument()
	provider := voice.Descriptor()
	for _, scene := range plan.Scenes {
		audioID := fmt.Sprintf("scene-%d-voice-%s", scene.SceneNumber, uuid.NewString()[:8])
		doc.Elements = append(doc.Elements, composition(scene, audioID, provider))
	}
	return doc
}

// composition is the canonical three-element scene: muted clip, voice-over
// and a caption bound to the voice-over by id
func composition(scene types.SceneEntry, audioID, provider string) types.Element {
	caption := captions.Resolve(nil)
	return types.Element{
		Type:  types.TypeComposition,
		Track: 1,
		Elements: []types.Element{
			{
				Type:     types.TypeVideo,
				Source:   scene.VideoAsset.URL,
				Track:    types.TrackVideo,
				Fit:      types.VideoFit,
				Time:     types.VideoTimeAuto,
				Duration: types.VideoDurationAuto,
				Volume:   types.Zero(),
			},
			{
				ID:       audioID,
				Type:     types.TypeAudio,
				Track:    types.TrackAudio,
				Source:   scene.ScriptText,
				Provider: provider,
				Dynamic:  true,
			},
			{
				Type:                    types.TypeText,
				Track:                   types.TrackCaption,
				Width:                   types.CaptionWidth,
				XAlignment:              types.CaptionXAlignment,
				YAlignment:              types.AssemblyYAlignment,
				TranscriptSource:        audioID,
				TranscriptEffect:        caption.Effect,
				TranscriptColor:         caption.Color,
				TranscriptMaximumLength: types.CaptionMaxLength,
				FontFamily:              types.CaptionFontFamily,
				FontSize:                types.CaptionFontSize,
			},
		},
	}
}
