package image

import (
	"bytes"
	"context"
	"crypto/sha256"
	stdimage "image"
	"image/color"
	"image/draw"
	"image/png"
	"time"
)

// NanoBanana is a stand-in generator used in demos and load tests. It renders
// a deterministic placeholder image after simulating provider latency.
type NanoBanana struct {
	Latency time.Duration
}

// NewNanoBanana builds the stub generator with its default latency.
func NewNanoBanana() *NanoBanana {
	return &NanoBanana{Latency: 1500 * time.Millisecond}
}

// Generate renders a placeholder image derived from the request id.
func (n *NanoBanana) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	if n.Latency > 0 {
		select {
		case <-time.After(n.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	sum := sha256.Sum256([]byte(req.RequestID + req.Prompt))
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 1024, 1024))
	fill := color.RGBA{R: sum[0], G: sum[1], B: sum[2], A: 255}
	draw.Draw(img, img.Bounds(), &stdimage.Uniform{fill}, stdimage.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &Asset{Data: buf.Bytes(), Format: "image/png", Width: 1024, Height: 1024}, nil
}

var _ Generator = (*NanoBanana)(nil)
