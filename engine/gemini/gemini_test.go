package gemini

import (
	"testing"

	"google.golang.org/genai"
)

func TestAspectRatioFor(t *testing.T) {
	tests := []struct {
		width, height int
		want          string
	}{
		{1024, 576, "16:9"},
		{1024, 768, "4:3"},
		{512, 512, "1:1"},
		{768, 1024, "3:4"},
		{576, 1024, "9:16"},
		{0, 512, "1:1"},
		{512, 0, "1:1"},
	}

	for _, tt := range tests {
		if got := aspectRatioFor(tt.width, tt.height); got != tt.want {
			t.Errorf("aspectRatioFor(%d, %d) = %q, want %q", tt.width, tt.height, got, tt.want)
		}
	}
}

func TestParseResult(t *testing.T) {
	imageBytes := []byte{0x89, 'P', 'N', 'G'}
	response := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{Text: "Here is your image."},
						{InlineData: &genai.Blob{Data: imageBytes, MIMEType: "image/png"}},
					},
				},
			},
		},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 34,
			TotalTokenCount:      46,
		},
	}

	result, err := parseResult(response, 512, 768)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if result.Image == nil {
		t.Fatal("expected an image")
	}
	if string(result.Image.Data) != string(imageBytes) {
		t.Error("image bytes not carried through")
	}
	if result.Image.MIMEType != "image/png" {
		t.Errorf("expected image/png, got %q", result.Image.MIMEType)
	}
	if result.Image.Width != 512 || result.Image.Height != 768 {
		t.Errorf("expected 512x768, got %dx%d", result.Image.Width, result.Image.Height)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 46 {
		t.Errorf("usage not extracted: %+v", result.Usage)
	}
}

func TestParseResult_NoImage(t *testing.T) {
	response := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "refused"}}}},
		},
	}
	if _, err := parseResult(response, 512, 512); err == nil {
		t.Fatal("expected error for a response without image data")
	}
}

func TestParseResult_EmptyResponse(t *testing.T) {
	if _, err := parseResult(nil, 512, 512); err == nil {
		t.Fatal("expected error for a nil response")
	}
	if _, err := parseResult(&genai.GenerateContentResponse{}, 512, 512); err == nil {
		t.Fatal("expected error for a response without candidates")
	}
}
