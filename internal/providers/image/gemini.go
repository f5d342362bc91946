package image

import (
	"context"
	"fmt"

	"github.com/seetuai/seetu/internal/providers/genai"
)

// GeminiGenerator adapts the Gemini client to the Generator interface.
type GeminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator wraps an existing Gemini client.
func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

// Generate produces one image conditioned on the reference photos.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	refs := make([]genai.ReferenceImage, 0, len(req.References))
	for _, r := range req.References {
		refs = append(refs, genai.ReferenceImage{MIME: r.MIME, Data: r.Data, URL: r.URL})
	}

	asset, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:     req.Prompt,
		References: refs,
		RequestID:  req.RequestID,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	return &Asset{
		Data:   asset.Data,
		Format: asset.Format,
		Width:  asset.Width,
		Height: asset.Height,
	}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
