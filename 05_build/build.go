package build

import (
	"context"
	"time"

	planner "shorts-doc-pipeline/01_planner"
	assembler "shorts-doc-pipeline/02_assembler"
	captions "shorts-doc-pipeline/03_captions"
	validate "shorts-doc-pipeline/04_validate"
	"shorts-doc-pipeline/config"
	"shorts-doc-pipeline/llm"
	"shorts-doc-pipeline/reference"
	"shorts-doc-pipeline/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Options are the caller's settings for one build. Request fields such as
// planner_model override them for that request only.
type Options struct {
	Planner      planner.Options
	Assembler    assembler.Options
	Synthesis    types.SynthesisProfile
	MaxAttempts  int
	RetryBackoff time.Duration
}

// OptionsFromConfig maps config.yaml onto build options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Planner: planner.Options{
			Model:       cfg.Planner.Model,
			Temperature: cfg.Planner.Temperature,
			MaxTokens:   cfg.Planner.MaxTokens,
		},
		Assembler: assembler.Options{
			Mode:        cfg.Assembler.Mode,
			Model:       cfg.Assembler.Model,
			Temperature: cfg.Assembler.Temperature,
			MaxTokens:   cfg.Assembler.MaxTokens,
		},
		Synthesis:    cfg.Synthesis,
		MaxAttempts:  cfg.Build.MaxAttempts,
		RetryBackoff: 2 * time.Second,
	}
}

// Result is a validated build
type Result struct {
	BuildID  string           `json:"build_id"`
	Plan     *types.ScenePlan `json:"plan"`
	Document *types.Document  `json:"document"`
	Captions captions.Style   `json:"captions"`
}

// Builder runs the build stages in order. It holds only stateless
// collaborators and the shared reference cache; everything request specific
// is passed to Build.
type Builder struct {
	planner   *planner.Planner
	assembler *assembler.Assembler
	reference *reference.Cache
}

// New creates a Builder over one completion client and the process-wide reference cache
func New(c llm.Completer, ref *reference.Cache) *Builder {
	return &Builder{
		planner:   planner.New(c),
		assembler: assembler.New(c),
		reference: ref,
	}
}

// Build runs plan → assemble → captions → validate for one request. It
// returns a document only if it passed validation.
func (b *Builder) Build(ctx context.Context, req types.BuildRequest, opts Options) (*Result, error) {
	buildID := uuid.NewString()[:8]
	start := time.Now()
	logger := log.With().Str("build_id", buildID).Logger()

	voice := requestVoice(req, opts.Synthesis)
	if err := voice.Check(); err != nil {
		return nil, &types.AssemblyError{Field: "provider", Reason: "invalid synthesis profile", Input: true, Err: err}
	}

	plannerOpts := opts.Planner
	if req.PlannerModel != "" {
		plannerOpts.Model = req.PlannerModel
	}
	assemblerOpts := opts.Assembler
	if req.AssemblerModel != "" {
		assemblerOpts.Model = req.AssemblerModel
	}

	if assemblerOpts.Mode != assembler.ModeTemplate {
		if b.reference == nil {
			return nil, &types.AssemblyError{Field: "reference", Reason: "no schema reference configured"}
		}
		ref, err := b.reference.Text(ctx)
		if err != nil {
			return nil, err
		}
		assemblerOpts.Reference = ref
	}

	logger.Info().Str("stage", "build").Int("assets", len(req.VideoAssets)).Msg("━━━ STAGE 1: Scene planning ━━━")
	plan, err := b.planner.Plan(ctx, req.Script, req.VideoAssets, plannerOpts)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("stage", "build").Msg("━━━ STAGE 2: Document assembly ━━━")
	doc, err := b.assembler.Assemble(ctx, plan, voice, req.StyleProfile, assemblerOpts)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("stage", "build").Msg("━━━ STAGE 3: Captions ━━━")
	style := captions.Resolve(req.CaptionConfiguration)
	doc = captions.Apply(doc, req.CaptionConfiguration)
	logger.Info().Str("stage", "captions").Bool("enabled", style.Enabled).Str("preset", style.PresetID).
		Str("color", style.Color).Str("effect", style.Effect).Str("placement", style.Placement).Msg("captions resolved")

	logger.Info().Str("stage", "build").Msg("━━━ STAGE 4: Validation ━━━")
	if err := validate.Validate(doc).Err(); err != nil {
		logger.Error().Err(err).Str("stage", "validate").Msg("document rejected")
		return nil, err
	}

	logger.Info().Str("stage", "build").Int("compositions", len(doc.Elements)).Dur("took", time.Since(start)).Msg("✅ build complete")
	return &Result{BuildID: buildID, Plan: plan, Document: doc, Captions: style}, nil
}

// requestVoice merges the request's voice onto the caller's synthesis defaults
func requestVoice(req types.BuildRequest, defaults types.SynthesisProfile) types.SynthesisProfile {
	var voice types.SynthesisProfile
	if req.Synthesis != nil {
		voice = *req.Synthesis
	}
	if req.VoiceID != "" {
		voice.VoiceID = req.VoiceID
	}
	return voice.Merge(defaults)
}
