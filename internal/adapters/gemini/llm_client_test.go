package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`{"classification": "PHISHING",`),
				genai.Text(` "confidence": 7}`),
			}},
		}},
	}
	want := `{"classification": "PHISHING", "confidence": 7}`
	if got := responseText(resp); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if got := responseText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Errorf("expected empty text for nil, got %q", got)
	}
}
