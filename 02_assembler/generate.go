package assembler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"shorts-doc-pipeline/llm"
	"shorts-doc-pipeline/types"

	"github.com/rs/zerolog/log"
)

const systemPromptTemplate = `You are a video document author. You turn a list of scenes into a declarative video document for a rendering service.

You MUST respond with ONLY valid JSON — no markdown, no explanation, no preamble.

DOCUMENT REFERENCE:
%s

Rules:
- Output one composition per scene, in the given scene order.
- Every composition has exactly three elements: one video (track 1), one text caption (track 2), one audio (track 3).
- The video "source" is the scene's video_url copied character for character.
- The audio "source" is the scene's script_text. The audio "provider" is the given voice_provider, identical for every scene.
- Every audio element gets an "id" unique within the document. The caption's "transcript_source" is that id.`

// rawDocument is the loosely typed JSON returned by the model. Tracks may
// come back as numbers or numeric strings.
type rawDocument struct {
	Elements []rawElement `json:"elements"`
}

type rawElement struct {
	ID               string       `json:"id"`
	Type             string       `json:"type"`
	Track            any          `json:"track"`
	Source           string       `json:"source"`
	TranscriptSource string       `json:"transcript_source"`
	Elements         []rawElement `json:"elements"`
}

type scenePayload struct {
	SceneNumber int    `json:"scene_number"`
	ScriptText  string `json:"script_text"`
	VideoURL    string `json:"video_url"`
}

func (a *Assembler) generate(ctx context.Context, plan *types.ScenePlan, voice types.SynthesisProfile, style types.StyleProfile, opts Options) (*types.Document, error) {
	if strings.TrimSpace(opts.Reference) == "" {
		return nil, &types.AssemblyError{Field: "reference", Reason: "schema reference text is empty"}
	}
	provider := voice.Descriptor()

	user, err := buildUserPrompt(plan, provider, style)
	if err != nil {
		return nil, &types.AssemblyError{Reason: "build prompt", Err: err}
	}

	log.Info().Str("stage", "assembler").Int("scenes", len(plan.Scenes)).Str("model", opts.Model).Msg("generating document")

	content, err := a.llm.Complete(ctx, llm.Request{
		Model:       opts.Model,
		System:      fmt.Sprintf(systemPromptTemplate, opts.Reference),
		User:        user,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		return nil, &types.AssemblyError{Reason: "generation call failed", Err: err}
	}

	content = llm.CleanJSON(content)
	var raw rawDocument
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		log.Warn().Str("stage", "assembler").Str("raw", llm.Snippet(content, 300)).Msg("unparsable document")
		return nil, &types.AssemblyError{Reason: "unparsable document", Err: err}
	}

	audioIDs, err := verify(raw, plan)
	if err != nil {
		return nil, err
	}

	doc := types.NewDocument()
	for i, scene := range plan.Scenes {
		doc.Elements = append(doc.Elements, composition(scene, audioIDs[i], provider))
	}
	return doc, nil
}

func buildUserPrompt(plan *types.ScenePlan, provider string, style types.StyleProfile) (string, error) {
	scenes := make([]scenePayload, len(plan.Scenes))
	for i, s := range plan.Scenes {
		scenes[i] = scenePayload{
			SceneNumber: s.SceneNumber,
			ScriptText:  s.ScriptText,
			VideoURL:    s.VideoAsset.URL,
		}
	}
	payload := map[string]any{
		"voice_provider": provider,
		"scenes":         scenes,
	}
	if len(style) > 0 {
		payload["style_profile"] = style
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Build the video document for these scenes.\n\n")
	sb.Write(data)
	sb.WriteString("\n\nRespond ONLY with valid JSON.")
	return sb.String(), nil
}

// verify checks the generated document's structure against the plan and
// returns the audio id chosen for each composition
func verify(raw rawDocument, plan *types.ScenePlan) ([]string, error) {
	if len(raw.Elements) != len(plan.Scenes) {
		return nil, &types.AssemblyError{Field: "elements",
			Reason: fmt.Sprintf("expected %d compositions, got %d", len(plan.Scenes), len(raw.Elements))}
	}

	ids := make([]string, len(raw.Elements))
	seen := make(map[string]int)
	for i, comp := range raw.Elements {
		n := i + 1
		if comp.Type != types.TypeComposition {
			return nil, &types.AssemblyError{Scene: n, Field: "type",
				Reason: fmt.Sprintf("expected composition, got %q", comp.Type)}
		}

		byType := make(map[string][]rawElement)
		for _, el := range comp.Elements {
			switch el.Type {
			case types.TypeVideo, types.TypeAudio, types.TypeText:
				byType[el.Type] = append(byType[el.Type], el)
			default:
				return nil, &types.AssemblyError{Scene: n, Field: "type",
					Reason: fmt.Sprintf("unexpected element type %q", el.Type)}
			}
		}
		for _, t := range []string{types.TypeVideo, types.TypeAudio, types.TypeText} {
			if got := len(byType[t]); got != 1 {
				return nil, &types.AssemblyError{Scene: n, Field: t,
					Reason: fmt.Sprintf("expected exactly one %s element, got %d", t, got)}
			}
		}
		video, audio, text := byType[types.TypeVideo][0], byType[types.TypeAudio][0], byType[types.TypeText][0]

		if err := checkTrack(n, video, types.TrackVideo); err != nil {
			return nil, err
		}
		if err := checkTrack(n, text, types.TrackCaption); err != nil {
			return nil, err
		}
		if err := checkTrack(n, audio, types.TrackAudio); err != nil {
			return nil, err
		}

		if want := plan.Scenes[i].VideoAsset.URL; video.Source != want {
			return nil, &types.AssemblyError{Scene: n, Field: "video.source",
				Reason: fmt.Sprintf("source %q is not the scene's asset %q", video.Source, want)}
		}

		id := strings.TrimSpace(audio.ID)
		if id == "" {
			return nil, &types.AssemblyError{Scene: n, Field: "audio.id", Reason: "audio element has no id"}
		}
		if prev, dup := seen[id]; dup {
			return nil, &types.AssemblyError{Scene: n, Field: "audio.id",
				Reason: fmt.Sprintf("audio id %q already used by scene %d", id, prev)}
		}
		seen[id] = n

		if text.TranscriptSource != audio.ID {
			return nil, &types.AssemblyError{Scene: n, Field: "text.transcript_source",
				Reason: fmt.Sprintf("transcript_source %q does not reference audio id %q", text.TranscriptSource, audio.ID)}
		}
		if audio.Source != plan.Scenes[i].ScriptText {
			log.Debug().Str("stage", "assembler").Int("scene", n).Msg("audio source differs from scene text, using scene text")
		}
		ids[i] = id
	}
	return ids, nil
}

func checkTrack(scene int, el rawElement, want int) error {
	got, ok := trackNumber(el.Track)
	if !ok || got != want {
		return &types.AssemblyError{Scene: scene, Field: el.Type + ".track",
			Reason: fmt.Sprintf("track must be %d, got %v", want, el.Track)}
	}
	return nil
}

func trackNumber(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}
