package types

// Render target and element constants shared by the assembler, the caption
// resolver and the validator. Field names below are read by the renderer as-is.
const (
	OutputFormat = "mp4"
	Width        = 1080
	Height       = 1920

	TypeComposition = "composition"
	TypeVideo       = "video"
	TypeAudio       = "audio"
	TypeText        = "text"

	TrackVideo   = 1
	TrackCaption = 2
	TrackAudio   = 3

	CaptionWidth       = "50%"
	CaptionXAlignment  = "50%"
	CaptionMaxLength   = 35
	CaptionFontFamily  = "Montserrat"
	CaptionFontSize    = "8 vmin"
	AssemblyYAlignment = "85%"
	VideoFit           = "cover"
	VideoTimeAuto      = "auto"
	VideoDurationAuto  = "auto"
)

// Document is the declarative video document handed to the renderer
type Document struct {
	OutputFormat string    `json:"output_format"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Elements     []Element `json:"elements"`
}

// Element is any node of the document tree: a composition or one of its
// video, audio and text children. Unused fields are omitted on the wire.
type Element struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Track    int    `json:"track"`
	Source   string `json:"source,omitempty"`
	Fit      string `json:"fit,omitempty"`
	Time     string `json:"time,omitempty"`
	Duration string `json:"duration,omitempty"`
	Volume   *int   `json:"volume,omitempty"`
	Provider string `json:"provider,omitempty"`
	Dynamic  bool   `json:"dynamic,omitempty"`

	Width                   string `json:"width,omitempty"`
	XAlignment              string `json:"x_alignment,omitempty"`
	YAlignment              string `json:"y_alignment,omitempty"`
	TranscriptSource        string `json:"transcript_source,omitempty"`
	TranscriptEffect        string `json:"transcript_effect,omitempty"`
	TranscriptColor         string `json:"transcript_color,omitempty"`
	TranscriptMaximumLength int    `json:"transcript_maximum_length,omitempty"`
	FontFamily              string `json:"font_family,omitempty"`
	FontSize                string `json:"font_size,omitempty"`

	Elements []Element `json:"elements,omitempty"`
}

// NewDocument returns an empty portrait mp4 document
func NewDocument() *Document {
	return &Document{
		OutputFormat: OutputFormat,
		Width:        Width,
		Height:       Height,
		Elements:     []Element{},
	}
}

// Clone returns a deep copy; nothing in the copy aliases d
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Elements = cloneElements(d.Elements)
	return &out
}

func cloneElements(in []Element) []Element {
	if in == nil {
		return nil
	}
	out := make([]Element, len(in))
	for i, el := range in {
		out[i] = el
		if el.Volume != nil {
			v := *el.Volume
			out[i].Volume = &v
		}
		out[i].Elements = cloneElements(el.Elements)
	}
	return out
}

// Count returns how many direct children of el have the given type
func (el Element) Count(elementType string) int {
	n := 0
	for _, child := range el.Elements {
		if child.Type == elementType {
			n++
		}
	}
	return n
}

// Child returns the first direct child of the given type
func (el Element) Child(elementType string) (Element, bool) {
	for _, child := range el.Elements {
		if child.Type == elementType {
			return child, true
		}
	}
	return Element{}, false
}

// Zero returns a pointer to 0, used for the muted video volume
func Zero() *int {
	v := 0
	return &v
}

// Placements maps a named caption position to its vertical alignment
var Placements = map[string]string{
	"top":    "10%",
	"center": "50%",
	"bottom": "90%",
}

// IsPlacementAlignment reports whether y is one of the Placements values
func IsPlacementAlignment(y string) bool {
	for _, v := range Placements {
		if v == y {
			return true
		}
	}
	return false
}
