package genstudio

// GeneratedImage is a single raster image produced by an image engine.
type GeneratedImage struct {
	// Data contains the encoded image bytes.
	Data []byte

	// MIMEType of the encoded image (e.g. "image/png").
	MIMEType string

	// Width and Height in pixels, when known.
	Width  int
	Height int
}

// Usage contains token accounting reported by the engine, when available.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result holds the output of one completed generation.
// Exactly one of Text and Image is populated, matching the request kind.
type Result struct {
	// Text is the generated string for text requests.
	Text string

	// Image is the generated image for image requests.
	Image *GeneratedImage

	// Usage contains token/billing information, when the engine reports it.
	Usage *Usage
}
