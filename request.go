package genstudio

import "strings"

// Parameter ranges accepted by ValidateRequest.
const (
	MinMaxLength = 50
	MaxMaxLength = 2000

	MinTemperature = 0.1
	MaxTemperature = 2.0

	MinDimension = 256
	MaxDimension = 1024

	MinSteps = 10
	MaxSteps = 100

	MinGuidanceScale = 0.5
	MaxGuidanceScale = 10.0
)

// Default parameter values applied by the Studio when a field is zero.
const (
	DefaultMaxLength     = 500
	DefaultTemperature   = 0.7
	DefaultDimension     = 512
	DefaultSteps         = 50
	DefaultGuidanceScale = 7.5
)

// Style sentinels that disable style-prefixing.
const (
	StyleNeutral      = "Neutral"
	StyleUnrestricted = "Unrestricted"
)

// TextStyles lists the style tags offered for text generation.
var TextStyles = []string{
	StyleNeutral,
	"Creative",
	"Technical",
	"Artistic",
	"Scientific",
	"Business",
	"Conversational",
	"Poetic",
	StyleUnrestricted,
}

// ImageStyles lists the style tags offered for image generation.
var ImageStyles = []string{
	"Realistic",
	"Artistic",
	"Anime",
	"Digital Art",
	"Photorealism",
	"Concept Art",
	"Portrait",
	"Landscape",
	"Abstract",
	StyleUnrestricted,
}

// DefaultNegativePrompt is the standard negative-prompt preset for image
// generation.
const DefaultNegativePrompt = "blurry, low quality, distorted, ugly, " +
	"extra limbs, deformed hands, bad anatomy, text, watermark"

// Request describes one generation attempt. A request is never mutated
// after submission; the worker executing it owns a private copy.
type Request struct {
	Kind Kind

	// Prompt is the user-supplied prompt. Must be non-empty.
	Prompt string

	// NegativePrompt describes what the model should avoid. Image only.
	NegativePrompt string

	// Style is a style tag prefixed onto the prompt. The sentinels
	// StyleNeutral (text) and StyleUnrestricted leave the prompt untouched.
	Style string

	// Text parameters.
	MaxLength   int
	Temperature float64

	// Image parameters.
	Width         int
	Height        int
	Steps         int
	GuidanceScale float64
}

// NewTextRequest returns a text request with default parameters.
func NewTextRequest(prompt string) *Request {
	return &Request{
		Kind:        KindText,
		Prompt:      prompt,
		Style:       StyleNeutral,
		MaxLength:   DefaultMaxLength,
		Temperature: DefaultTemperature,
	}
}

// NewImageRequest returns an image request with default parameters.
func NewImageRequest(prompt string) *Request {
	return &Request{
		Kind:          KindImage,
		Prompt:        prompt,
		Style:         StyleUnrestricted,
		Width:         DefaultDimension,
		Height:        DefaultDimension,
		Steps:         DefaultSteps,
		GuidanceScale: DefaultGuidanceScale,
	}
}

// EffectivePrompt returns the prompt with the style tag applied. Text
// prompts are prefixed "Style: prompt", image prompts "Style, prompt".
func (r *Request) EffectivePrompt() string {
	style := strings.TrimSpace(r.Style)
	if style == "" || strings.EqualFold(style, StyleUnrestricted) {
		return r.Prompt
	}
	if r.Kind == KindText {
		if strings.EqualFold(style, StyleNeutral) {
			return r.Prompt
		}
		return style + ": " + r.Prompt
	}
	return style + ", " + r.Prompt
}

// withDefaults returns a copy with zero-valued parameters replaced by the
// defaults for the request's kind.
func (r *Request) withDefaults() Request {
	req := *r
	switch req.Kind {
	case KindText:
		if req.MaxLength == 0 {
			req.MaxLength = DefaultMaxLength
		}
		if req.Temperature == 0 {
			req.Temperature = DefaultTemperature
		}
	case KindImage:
		if req.Width == 0 {
			req.Width = DefaultDimension
		}
		if req.Height == 0 {
			req.Height = DefaultDimension
		}
		if req.Steps == 0 {
			req.Steps = DefaultSteps
		}
		if req.GuidanceScale == 0 {
			req.GuidanceScale = DefaultGuidanceScale
		}
	}
	return req
}
