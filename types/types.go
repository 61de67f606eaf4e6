package types

// VideoAsset is one clip from the caller's asset pool
type VideoAsset struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// SceneEntry binds one narrative beat of the script to one video asset
type SceneEntry struct {
	SceneNumber int        `json:"scene_number"`
	ScriptText  string     `json:"script_text"`
	VideoAsset  VideoAsset `json:"video_asset"`
	Reasoning   string     `json:"reasoning"`
}

// ScenePlan is the ordered scene list, in script order
type ScenePlan struct {
	Scenes []SceneEntry `json:"scenes"`
}

// StyleProfile is the caller's free-form style hints handed to the assembler
type StyleProfile map[string]any

// CaptionConfiguration is the user's caption directive.
// Fields are loosely typed on purpose: request JSON may carry any value in any of them.
type CaptionConfiguration struct {
	Enabled          any `json:"enabled,omitempty"`
	PresetID         any `json:"presetId,omitempty"`
	Placement        any `json:"placement,omitempty"`
	TranscriptColor  any `json:"transcriptColor,omitempty"`
	TranscriptEffect any `json:"transcriptEffect,omitempty"`
}

// BuildRequest is everything one build needs. Nothing here outlives the build.
type BuildRequest struct {
	Script               string                `json:"script"`
	VideoAssets          []VideoAsset          `json:"video_assets"`
	VoiceID              string                `json:"voice_id"`
	StyleProfile         StyleProfile          `json:"style_profile,omitempty"`
	CaptionConfiguration *CaptionConfiguration `json:"caption_configuration,omitempty"`
	Synthesis            *SynthesisProfile     `json:"synthesis,omitempty"`
	PlannerModel         string                `json:"planner_model,omitempty"`
	AssemblerModel       string                `json:"assembler_model,omitempty"`
}

// BuildState tracks one build run end to end
type BuildState struct {
	RunID       string     `json:"run_id"`
	StartedAt   string     `json:"started_at"`
	CompletedAt string     `json:"completed_at"`
	Plan        *ScenePlan `json:"plan,omitempty"`
	Document    *Document  `json:"document,omitempty"`
	Violations  []string   `json:"violations,omitempty"`
	ErrorKind   string     `json:"error_kind,omitempty"`
	Error       string     `json:"error,omitempty"`
}
