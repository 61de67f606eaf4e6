package validate

import (
	"fmt"
	"strings"

	"shorts-doc-pipeline/types"
)

// Violation is one structural problem. Composition is the 0-based index in
// the document's elements, -1 for document level problems.
type Violation struct {
	Composition int    `json:"composition"`
	Element     string `json:"element,omitempty"`
	Message     string `json:"message"`
}

func (v Violation) String() string {
	switch {
	case v.Composition < 0:
		return "document: " + v.Message
	case v.Element == "":
		return fmt.Sprintf("elements[%d]: %s", v.Composition, v.Message)
	default:
		return fmt.Sprintf("elements[%d].%s: %s", v.Composition, v.Element, v.Message)
	}
}

// Result holds every violation found; an empty result is a pass
type Result struct {
	Violations []Violation `json:"violations"`
}

// OK reports whether the document passed
func (r Result) OK() bool { return len(r.Violations) == 0 }

// Strings renders the violations for logs and error payloads
func (r Result) Strings() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.String()
	}
	return out
}

// Err returns nil on a pass, otherwise a *types.ValidationFailure
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &types.ValidationFailure{Violations: r.Strings()}
}

type checker struct {
	violations []Violation
}

func (c *checker) add(comp int, element, format string, args ...any) {
	c.violations = append(c.violations, Violation{
		Composition: comp,
		Element:     element,
		Message:     fmt.Sprintf(format, args...),
	})
}

// Validate checks doc against the renderer's structural contract. Every
// check runs; nothing short-circuits, so the result lists all problems.
//
// A document with captions turned off carries no text elements at all and
// passes; captions on only some compositions do not.
func Validate(doc *types.Document) Result {
	c := &checker{}
	if doc == nil {
		c.add(-1, "", "document is nil")
		return Result{Violations: c.violations}
	}

	validateDocument(c, doc)

	captioned := 0
	for _, comp := range doc.Elements {
		if comp.Type == types.TypeComposition && comp.Count(types.TypeText) > 0 {
			captioned++
		}
	}
	captionsRequired := captioned > 0

	for i, comp := range doc.Elements {
		if comp.Type != types.TypeComposition {
			c.add(i, "", "type must be %q, got %q", types.TypeComposition, comp.Type)
			continue
		}
		validateComposition(c, i, comp, captionsRequired)
	}
	return Result{Violations: c.violations}
}

func validateDocument(c *checker, doc *types.Document) {
	if doc.Width != types.Width || doc.Height != types.Height {
		c.add(-1, "", "dimensions must be %dx%d, got %dx%d", types.Width, types.Height, doc.Width, doc.Height)
	}
	if doc.OutputFormat != types.OutputFormat {
		c.add(-1, "", "output_format must be %q, got %q", types.OutputFormat, doc.OutputFormat)
	}
	if len(doc.Elements) == 0 {
		c.add(-1, "", "document has no compositions")
	}
}

func validateComposition(c *checker, i int, comp types.Element, captionsRequired bool) {
	counts := map[string]int{}
	for _, el := range comp.Elements {
		switch el.Type {
		case types.TypeVideo, types.TypeAudio, types.TypeText:
			counts[el.Type]++
		default:
			c.add(i, el.Type, "unexpected element type %q", el.Type)
		}
	}

	if n := counts[types.TypeVideo]; n != 1 {
		c.add(i, "video", "expected exactly 1 video element, got %d", n)
	}
	if n := counts[types.TypeAudio]; n != 1 {
		c.add(i, "audio", "expected exactly 1 audio element, got %d", n)
	}
	switch n := counts[types.TypeText]; {
	case n == 0 && captionsRequired:
		c.add(i, "text", "caption missing while other compositions have one")
	case n > 1:
		c.add(i, "text", "expected at most 1 caption element, got %d", n)
	}

	if video, ok := comp.Child(types.TypeVideo); ok {
		validateVideo(c, i, video)
	}
	audio, hasAudio := comp.Child(types.TypeAudio)
	if hasAudio {
		validateAudio(c, i, audio)
	}
	if text, ok := comp.Child(types.TypeText); ok {
		validateCaption(c, i, text)
		if hasAudio && text.TranscriptSource != "" && text.TranscriptSource != audio.ID {
			c.add(i, "text", "transcript_source %q does not match audio id %q", text.TranscriptSource, audio.ID)
		}
	}
}

func validateVideo(c *checker, i int, v types.Element) {
	if v.Track != types.TrackVideo {
		c.add(i, "video", "track must be %d, got %d", types.TrackVideo, v.Track)
	}
	if strings.TrimSpace(v.Source) == "" {
		c.add(i, "video", "source is empty")
	}
}

func validateAudio(c *checker, i int, a types.Element) {
	if a.Track != types.TrackAudio {
		c.add(i, "audio", "track must be %d, got %d", types.TrackAudio, a.Track)
	}
	if strings.TrimSpace(a.Provider) == "" {
		c.add(i, "audio", "provider is empty")
	}
	if !a.Dynamic {
		c.add(i, "audio", "dynamic must be true")
	}
	if strings.TrimSpace(a.ID) == "" {
		c.add(i, "audio", "id is empty")
	}
}

func validateCaption(c *checker, i int, t types.Element) {
	if t.Track != types.TrackCaption {
		c.add(i, "text", "track must be %d, got %d", types.TrackCaption, t.Track)
	}
	if t.Width != types.CaptionWidth {
		c.add(i, "text", "width must be %q, got %q", types.CaptionWidth, t.Width)
	}
	if t.XAlignment != types.CaptionXAlignment {
		c.add(i, "text", "x_alignment must be %q, got %q", types.CaptionXAlignment, t.XAlignment)
	}
	if !types.IsPlacementAlignment(t.YAlignment) {
		c.add(i, "text", "y_alignment %q is not one of 10%%, 50%%, 90%%", t.YAlignment)
	}
	if strings.TrimSpace(t.TranscriptSource) == "" {
		c.add(i, "text", "transcript_source is empty")
	}
}
