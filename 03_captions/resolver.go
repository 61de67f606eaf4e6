package captions

import (
	"regexp"
	"strings"

	"shorts-doc-pipeline/types"
)

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Style is a fully resolved caption directive
type Style struct {
	Enabled    bool   `json:"enabled"`
	PresetID   string `json:"presetId"`
	Color      string `json:"transcriptColor"`
	Effect     string `json:"transcriptEffect"`
	Placement  string `json:"placement"`
	YAlignment string `json:"yAlignment"`
}

// Resolve turns a user caption configuration into a concrete style.
// Each field falls back on its own: request override, then preset, then
// built-in default. Values of the wrong type or shape count as absent.
func Resolve(cfg *types.CaptionConfiguration) Style {
	if cfg == nil {
		cfg = &types.CaptionConfiguration{}
	}

	preset := Default()
	if id, ok := cfg.PresetID.(string); ok {
		if p, found := Lookup(strings.TrimSpace(id)); found {
			preset = p
		}
	}

	s := Style{
		Enabled:  enabled(cfg.Enabled),
		PresetID: preset.ID,
	}
	s.Color = first(color(cfg.TranscriptColor), color(preset.TranscriptColor), DefaultColor)
	s.Effect = first(effect(cfg.TranscriptEffect), effect(preset.TranscriptEffect), DefaultEffect)
	s.Placement = first(placement(cfg.Placement), placement(preset.Placement), DefaultPlacement)
	s.YAlignment = types.Placements[s.Placement]
	return s
}

// Apply returns a copy of doc with caption elements styled per cfg, or
// removed when cfg disables captions. doc is never modified.
func Apply(doc *types.Document, cfg *types.CaptionConfiguration) *types.Document {
	out := doc.Clone()
	if out == nil {
		return nil
	}
	style := Resolve(cfg)

	for i := range out.Elements {
		comp := &out.Elements[i]
		if comp.Type != types.TypeComposition {
			continue
		}
		if !style.Enabled {
			comp.Elements = withoutCaptions(comp.Elements)
			continue
		}
		for j := range comp.Elements {
			el := &comp.Elements[j]
			if el.Type != types.TypeText {
				continue
			}
			el.TranscriptColor = style.Color
			el.TranscriptEffect = style.Effect
			el.YAlignment = style.YAlignment
		}
	}
	return out
}

func withoutCaptions(elements []types.Element) []types.Element {
	kept := make([]types.Element, 0, len(elements))
	for _, el := range elements {
		if el.Type == types.TypeText {
			continue
		}
		kept = append(kept, el)
	}
	return kept
}

// enabled is false only for an explicit boolean false
func enabled(v any) bool {
	b, ok := v.(bool)
	return !ok || b
}

func color(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if !hexColor.MatchString(s) {
		return ""
	}
	return s
}

func effect(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func placement(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if _, known := types.Placements[s]; !known {
		return ""
	}
	return s
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
