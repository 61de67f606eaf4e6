package types

import (
	"fmt"
	"strings"
)

// SynthesisProfile holds the voice and TTS parameters for one build.
// Every audio element of a document carries the same descriptor.
type SynthesisProfile struct {
	Engine          string  `json:"engine" yaml:"engine"`
	ModelID         string  `json:"model_id" yaml:"model_id"`
	VoiceID         string  `json:"voice_id" yaml:"voice_id"`
	Stability       float64 `json:"stability" yaml:"stability"`
	SimilarityBoost float64 `json:"similarity_boost" yaml:"similarity_boost"`
}

// Merge returns p with every zero field taken from defaults
func (p SynthesisProfile) Merge(defaults SynthesisProfile) SynthesisProfile {
	if p.Engine == "" {
		p.Engine = defaults.Engine
	}
	if p.ModelID == "" {
		p.ModelID = defaults.ModelID
	}
	if p.VoiceID == "" {
		p.VoiceID = defaults.VoiceID
	}
	if p.Stability == 0 {
		p.Stability = defaults.Stability
	}
	if p.SimilarityBoost == 0 {
		p.SimilarityBoost = defaults.SimilarityBoost
	}
	return p
}

// Descriptor renders the provider string read by the renderer, e.g.
// "elevenlabs model_id=eleven_multilingual_v2 voice_id=abc stability=0.50 similarity_boost=0.75"
func (p SynthesisProfile) Descriptor() string {
	parts := []string{p.Engine}
	if p.ModelID != "" {
		parts = append(parts, "model_id="+p.ModelID)
	}
	parts = append(parts, "voice_id="+p.VoiceID)
	if p.Stability > 0 {
		parts = append(parts, fmt.Sprintf("stability=%.2f", p.Stability))
	}
	if p.SimilarityBoost > 0 {
		parts = append(parts, fmt.Sprintf("similarity_boost=%.2f", p.SimilarityBoost))
	}
	return strings.Join(parts, " ")
}

// Check reports the first missing required field
func (p SynthesisProfile) Check() error {
	if strings.TrimSpace(p.Engine) == "" {
		return fmt.Errorf("synthesis engine not set")
	}
	if strings.TrimSpace(p.VoiceID) == "" {
		return fmt.Errorf("voice id not set")
	}
	return nil
}
