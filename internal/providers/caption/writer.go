package caption

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/seetuai/seetu/internal/providers/genai"
)

// Request carries what a writer needs to produce one product caption.
type Request struct {
	ProductName string
	BrandVoice  string
	Locale      string
	RequestID   string
}

// Writer produces a short marketing caption for a generated product image.
// Caption failures are cosmetic; callers treat errors as non-fatal.
type Writer interface {
	Write(ctx context.Context, req Request) (string, error)
}

// GeminiWriter generates captions through the Gemini text endpoint.
type GeminiWriter struct {
	client *genai.Client
}

// NewGeminiWriter wraps an existing Gemini client.
func NewGeminiWriter(client *genai.Client) *GeminiWriter {
	return &GeminiWriter{client: client}
}

// Write asks the model for a single-sentence caption.
func (w *GeminiWriter) Write(ctx context.Context, req Request) (string, error) {
	var b strings.Builder
	b.WriteString("Write one short marketing caption for a product photo of ")
	b.WriteString(strings.TrimSpace(req.ProductName))
	b.WriteString(".")
	if voice := strings.TrimSpace(req.BrandVoice); voice != "" {
		b.WriteString(" Brand voice: ")
		b.WriteString(voice)
		b.WriteString(".")
	}
	if strings.HasPrefix(strings.ToLower(req.Locale), "fr") {
		b.WriteString(" Respond in French.")
	}
	b.WriteString(" No hashtags, no emojis, under 20 words.")

	text, err := w.client.GenerateText(ctx, genai.TextRequest{Prompt: b.String(), RequestID: req.RequestID})
	if err != nil {
		return "", fmt.Errorf("caption: %w", err)
	}
	return strings.TrimSpace(text), nil
}

var _ Writer = (*GeminiWriter)(nil)

// StaticWriter composes captions from a template with no model call. Used
// when Gemini is unavailable and in tests.
type StaticWriter struct{}

// Write renders a deterministic caption.
func (StaticWriter) Write(_ context.Context, req Request) (string, error) {
	name := strings.TrimSpace(req.ProductName)
	if name == "" {
		return "", fmt.Errorf("caption: product name required")
	}

	titled := cases.Title(localeTag(req.Locale)).String(name)
	if strings.HasPrefix(strings.ToLower(req.Locale), "fr") {
		return fmt.Sprintf("Découvrez %s, disponible dès maintenant.", titled), nil
	}
	return fmt.Sprintf("Discover %s, available now.", titled), nil
}

var _ Writer = StaticWriter{}

func localeTag(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	return tag
}
