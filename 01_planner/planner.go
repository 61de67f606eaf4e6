package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"shorts-doc-pipeline/llm"
	"shorts-doc-pipeline/types"

	"github.com/rs/zerolog/log"
)

const systemPrompt = `You are a video editor planning a short vertical video. You split a narration script into scenes and pick one stock clip for every scene.

You MUST respond with ONLY valid JSON — no preamble, no markdown, no explanation.

The JSON must be an object with a "scenes" array. Each scene must have:
- "scene_number": 1-based position of the scene in the script
- "script_text": the exact script words narrated during this scene
- "video_asset": the chosen clip, an object with "id" and "url" copied from the AVAILABLE CLIPS list
- "reasoning": one sentence on why the clip fits the scene

Rules:
- Split the script into 3-7 scenes in script order. Together the scenes cover the whole script.
- EVERY scene gets a video_asset. Never null, never omitted.
- The url MUST be copied character for character from AVAILABLE CLIPS. Never invent, shorten or modify a url.
- Reusing a clip across scenes is allowed, and expected when there are fewer clips than scenes.`

// Options are the per-call generation settings
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Planner splits a script into scenes bound to clips from the caller's pool
type Planner struct {
	llm llm.Completer
}

// New creates a new Planner
func New(c llm.Completer) *Planner {
	return &Planner{llm: c}
}

// planJSON is the raw JSON structure returned by the model
type planJSON struct {
	Scenes []sceneJSON `json:"scenes"`
}

type sceneJSON struct {
	SceneNumber *int       `json:"scene_number"`
	ScriptText  string     `json:"script_text"`
	VideoAsset  *assetJSON `json:"video_asset"`
	Reasoning   string     `json:"reasoning"`
}

type assetJSON struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Plan generates and verifies a scene plan. Every returned scene is bound to
// an entry of assets; anything else is a *types.PlanningError.
func (p *Planner) Plan(ctx context.Context, script string, assets []types.VideoAsset, opts Options) (*types.ScenePlan, error) {
	if strings.TrimSpace(script) == "" {
		return nil, &types.PlanningError{Field: "script", Reason: "script is empty", Input: true}
	}
	catalog := NewCatalog(assets)
	if catalog.Len() == 0 {
		return nil, &types.PlanningError{Field: "video_assets", Reason: "asset pool is empty", Input: true}
	}

	log.Info().Str("stage", "planner").Int("assets", catalog.Len()).Str("model", opts.Model).Msg("planning scenes")

	content, err := p.llm.Complete(ctx, llm.Request{
		Model:       opts.Model,
		System:      systemPrompt,
		User:        buildUserPrompt(script, catalog),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		return nil, &types.PlanningError{Reason: "generation call failed", Err: err}
	}

	raw, err := parsePlan(content)
	if err != nil {
		log.Warn().Str("stage", "planner").Str("raw", llm.Snippet(content, 200)).Msg("unparsable plan")
		return nil, &types.PlanningError{Reason: "unparsable plan", Err: err}
	}

	plan, err := verifyPlan(raw, catalog)
	if err != nil {
		return nil, err
	}

	log.Info().Str("stage", "planner").Int("scenes", len(plan.Scenes)).Msg("✅ scene plan ready")
	return plan, nil
}

func buildUserPrompt(script string, catalog *Catalog) string {
	var sb strings.Builder
	sb.WriteString("SCRIPT:\n")
	sb.WriteString(strings.TrimSpace(script))
	sb.WriteString("\n\nAVAILABLE CLIPS (most relevant first):\n")
	for _, a := range catalog.Ranked(script) {
		sb.WriteString(fmt.Sprintf("- id: %s\n  url: %s\n", a.ID, a.URL))
		if a.Title != "" {
			sb.WriteString(fmt.Sprintf("  title: %s\n", a.Title))
		}
		if a.Description != "" {
			sb.WriteString(fmt.Sprintf("  description: %s\n", a.Description))
		}
		if len(a.Tags) > 0 {
			sb.WriteString(fmt.Sprintf("  tags: %s\n", strings.Join(a.Tags, ", ")))
		}
	}
	sb.WriteString("\nRespond ONLY with valid JSON. No markdown. No explanation.")
	return sb.String()
}

// parsePlan accepts {"scenes": [...]} or a bare scene array
func parsePlan(content string) (planJSON, error) {
	content = llm.CleanJSON(content)

	var raw planJSON
	if strings.HasPrefix(content, "[") {
		err := json.Unmarshal([]byte(content), &raw.Scenes)
		return raw, err
	}

	err := json.Unmarshal([]byte(content), &raw)
	return raw, err
}

// verifyPlan checks the model's output against the pool and converts it.
// Bound assets are replaced by the pool entry so only the url is ever taken
// from the model.
func verifyPlan(raw planJSON, catalog *Catalog) (*types.ScenePlan, error) {
	if len(raw.Scenes) == 0 {
		return nil, &types.PlanningError{Field: "scenes", Reason: "plan has no scenes"}
	}

	plan := &types.ScenePlan{Scenes: make([]types.SceneEntry, 0, len(raw.Scenes))}
	lastNumber := 0
	for i, s := range raw.Scenes {
		n := i + 1

		if s.SceneNumber != nil {
			if *s.SceneNumber <= lastNumber {
				return nil, &types.PlanningError{Scene: n, Field: "scene_number",
					Reason: fmt.Sprintf("scene number %d out of order", *s.SceneNumber)}
			}
			lastNumber = *s.SceneNumber
		}
		if strings.TrimSpace(s.ScriptText) == "" {
			return nil, &types.PlanningError{Scene: n, Field: "script_text", Reason: "scene has no script text"}
		}
		if s.VideoAsset == nil || s.VideoAsset.URL == "" {
			return nil, &types.PlanningError{Scene: n, Field: "video_asset", Reason: "scene has no video asset"}
		}
		asset, ok := catalog.Lookup(s.VideoAsset.URL)
		if !ok {
			return nil, &types.PlanningError{Scene: n, Field: "video_asset.url",
				Reason: fmt.Sprintf("url %q is not in the asset pool", s.VideoAsset.URL)}
		}

		plan.Scenes = append(plan.Scenes, types.SceneEntry{
			SceneNumber: n,
			ScriptText:  strings.TrimSpace(s.ScriptText),
			VideoAsset:  asset,
			Reasoning:   s.Reasoning,
		})
	}
	return plan, nil
}
