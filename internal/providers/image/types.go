package image

import "context"

// Reference is a source photo the generator conditions on.
type Reference struct {
	MIME string
	Data []byte
	URL  string
}

// GenerateRequest describes one product-image generation.
type GenerateRequest struct {
	Prompt     string
	References []Reference
	RequestID  string
}

// Asset is a generated image returned as raw bytes; the caller decides where
// it is stored.
type Asset struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Generator produces a single styled product image per request.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}
