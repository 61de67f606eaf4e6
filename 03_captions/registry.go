package captions

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Built-in fallbacks for a field neither the request nor the preset sets
const (
	DefaultPresetID  = "karaoke"
	DefaultColor     = "#04f827"
	DefaultEffect    = "karaoke"
	DefaultPlacement = "bottom"
)

//go:embed presets.yaml
var presetsYAML []byte

// Preset is a named bundle of caption style fields
type Preset struct {
	ID               string `yaml:"id" json:"id"`
	TranscriptColor  string `yaml:"transcript_color" json:"transcriptColor,omitempty"`
	TranscriptEffect string `yaml:"transcript_effect" json:"transcriptEffect,omitempty"`
	Placement        string `yaml:"placement" json:"placement,omitempty"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

var (
	registryOnce sync.Once
	registry     map[string]Preset
	ordered      []Preset
)

// loadRegistry parses the embedded presets once per process. The result is
// never written again, so readers need no locking.
func loadRegistry() {
	registryOnce.Do(func() {
		presets, err := parsePresets(presetsYAML)
		if err != nil {
			log.Error().Err(err).Str("stage", "captions").Msg("preset file unusable, using built-in default only")
			presets = []Preset{{
				ID:               DefaultPresetID,
				TranscriptColor:  DefaultColor,
				TranscriptEffect: DefaultEffect,
				Placement:        DefaultPlacement,
			}}
		}
		registry = make(map[string]Preset, len(presets))
		for _, p := range presets {
			registry[p.ID] = p
		}
		ordered = presets
	})
}

func parsePresets(data []byte) ([]Preset, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	seen := make(map[string]bool)
	var out []Preset
	for i, p := range f.Presets {
		if p.ID == "" {
			return nil, fmt.Errorf("preset %d has no id", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate preset %q", p.ID)
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	if !seen[DefaultPresetID] {
		return nil, fmt.Errorf("default preset %q missing", DefaultPresetID)
	}
	return out, nil
}

// Lookup returns the preset registered under id
func Lookup(id string) (Preset, bool) {
	loadRegistry()
	p, ok := registry[id]
	return p, ok
}

// Default returns the default preset
func Default() Preset {
	p, _ := Lookup(DefaultPresetID)
	return p
}

// Presets lists every registered preset in file order
func Presets() []Preset {
	loadRegistry()
	out := make([]Preset, len(ordered))
	copy(out, ordered)
	return out
}
