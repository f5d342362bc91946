package promptbuild

import (
	"strings"

	"github.com/seetuai/seetu/internal/domain"
)

// Build composes the generation prompt for one product under a resolved
// style. The prompt is assembled the same way for every item in a batch so
// outputs stay visually consistent.
func Build(product domain.Product, style domain.StyleConfiguration) string {
	var b strings.Builder

	b.WriteString("Professional product photography of ")
	b.WriteString(strings.TrimSpace(product.Name))
	b.WriteString(". ")

	switch style.Presentation {
	case domain.PresentationOnModel:
		b.WriteString("Worn by a model in a natural pose. ")
	case domain.PresentationGhost:
		b.WriteString("Ghost mannequin effect, garment shaped as if worn with no visible model. ")
	default:
		b.WriteString("Product only, no model. ")
	}

	switch style.SceneType {
	case domain.SceneSolidColor:
		b.WriteString("Seamless solid background, color ")
		b.WriteString(style.SolidColor)
		b.WriteString(". ")
	case domain.SceneRealPlace:
		b.WriteString("Shot on location against the supplied background scene. ")
	case domain.SceneAIGenerated:
		b.WriteString("Set in a tasteful AI-composed lifestyle scene that complements the product. ")
	default:
		b.WriteString("Clean studio setting with soft, even lighting. ")
	}

	if note := strings.TrimSpace(style.MoodboardNote); note != "" {
		b.WriteString("Art direction: ")
		b.WriteString(note)
		if !strings.HasSuffix(note, ".") {
			b.WriteString(".")
		}
		b.WriteString(" ")
	}

	b.WriteString("Sharp focus on the product, accurate colors, high resolution, no text or watermarks.")
	return b.String()
}
