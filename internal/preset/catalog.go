package preset

import (
	"sync"

	"github.com/seetuai/seetu/internal/domain"
)

// Catalog holds the built-in style presets. Presets are read-only reference
// data; the only mutable state is the usage tally kept for analytics.
type Catalog struct {
	presets []domain.Preset
	byID    map[string]domain.Preset

	mu    sync.Mutex
	usage map[string]int64
}

// NewCatalog builds the catalog with the built-in presets.
func NewCatalog() *Catalog {
	c := &Catalog{
		presets: builtinPresets(),
		byID:    make(map[string]domain.Preset),
		usage:   make(map[string]int64),
	}
	for _, p := range c.presets {
		c.byID[p.ID] = p
	}
	return c
}

// ByID looks up a preset by identifier.
func (c *Catalog) ByID(id string) (domain.Preset, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// All returns every preset in catalog order.
func (c *Catalog) All() []domain.Preset {
	out := make([]domain.Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

// Categories returns the display order of preset groups.
func (c *Catalog) Categories() []domain.PresetCategory {
	return []domain.PresetCategory{
		domain.PresetCategoryMarketplace,
		domain.PresetCategoryCatalog,
		domain.PresetCategoryCampaign,
		domain.PresetCategorySocial,
	}
}

// Grouped returns presets keyed by category.
func (c *Catalog) Grouped() map[domain.PresetCategory][]domain.Preset {
	groups := make(map[domain.PresetCategory][]domain.Preset)
	for _, p := range c.presets {
		groups[p.Category] = append(groups[p.Category], p)
	}
	return groups
}

// RecordUse tallies one use of the preset. Analytics only; never affects job
// correctness.
func (c *Catalog) RecordUse(id string) {
	c.mu.Lock()
	c.usage[id]++
	c.mu.Unlock()
}

// UseCount reports how many times a preset has been used since startup.
func (c *Catalog) UseCount(id string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage[id]
}

func builtinPresets() []domain.Preset {
	return []domain.Preset{
		{
			ID:            "marketplace-ready",
			Name:          "Marketplace Ready",
			NameFr:        "Marketplace",
			Description:   "Clean white background, perfect for online stores",
			DescriptionFr: "Fond blanc, parfait pour les boutiques en ligne",
			Category:      domain.PresetCategoryMarketplace,
			Icon:          "store",
			Settings: domain.StyleConfiguration{
				Presentation: domain.PresentationProductOnly,
				SceneType:    domain.SceneSolidColor,
				SolidColor:   "#FFFFFF",
			},
		},
		{
			ID:            "ecommerce-gray",
			Name:          "E-commerce Gray",
			NameFr:        "E-commerce Gris",
			Description:   "Neutral gray background, professional look",
			DescriptionFr: "Fond gris neutre, look professionnel",
			Category:      domain.PresetCategoryMarketplace,
			Icon:          "shopping-bag",
			Settings: domain.StyleConfiguration{
				Presentation: domain.PresentationProductOnly,
				SceneType:    domain.SceneSolidColor,
				SolidColor:   "#F5F5F5",
			},
		},
		{
			ID:            "catalog-consistent",
			Name:          "Catalog Consistency",
			NameFr:        "Catalogue Uniforme",
			Description:   "Studio lighting with brand style applied",
			DescriptionFr: "Eclairage studio avec style de marque",
			Category:      domain.PresetCategoryCatalog,
			Icon:          "book-open",
			Settings: domain.StyleConfiguration{
				Presentation: domain.PresentationProductOnly,
				SceneType:    domain.SceneStudio,
			},
		},
		{
			ID:            "lifestyle-studio",
			Name:          "Lifestyle Studio",
			NameFr:        "Studio Lifestyle",
			Description:   "Modern studio with contextual elements",
			DescriptionFr: "Studio moderne avec elements contextuels",
			Category:      domain.PresetCategoryCatalog,
			Icon:          "sparkles",
			Settings: domain.StyleConfiguration{
				Presentation: domain.PresentationProductOnly,
				SceneType:    domain.SceneAIGenerated,
			},
		},
		{
			ID:            "tabaski-campaign",
			Name:          "Tabaski Campaign",
			NameFr:        "Campagne Tabaski",
			Description:   "Festive golden tones, celebration vibes",
			DescriptionFr: "Tons dores festifs, ambiance celebration",
			Category:      domain.PresetCategoryCampaign,
			Icon:          "moon",
			Settings: domain.StyleConfiguration{
				Presentation: domain.PresentationProductOnly,
				SceneType:    domain.SceneAIGenerated,
			},
			MoodboardNote: "Tabaski celebration atmosphere, festive golden accents, warm family gathering feeling, traditional elegance with modern touch",
		},
		{
			ID:            "ramadan-campaign",
			Name:          "Ramadan Campaign",
			NameFr:        "Campagne Ramadan",
			Description:   "Elegant night tones, spiritual ambiance",
			DescriptionFr: "Tons nuit elegants, ambiance spirituelle",
			Category:      domain.PresetCategoryCampaign,
			Icon:          "star",
			Settings: domain.StyleConfiguration{
				Presentation: domain.PresentationProductOnly,
				SceneType:    domain.SceneAIGenerated,
			},
			MoodboardNote: "Ramadan spiritual elegance, night sky tones, crescent moon motifs, peaceful and serene atmosphere, subtle golden lantern lighting",
		},
		{
			ID:            "magal-campaign",
			Name:          "Magal Campaign",
			NameFr:        "Campagne Magal",
			Description:   "Traditional Mouride colors and motifs",
			DescriptionFr: "Couleurs et motifs Mourides traditionnels",
			Category:      domain.PresetCategoryCampaign,
			Icon:          "heart",
			Settings: domain.StyleConfiguration{
				Presentation: domain.PresentationProductOnly,
				SceneType:    domain.SceneAIGenerated,
			},
			MoodboardNote: "Grand Magal de Touba celebration, traditional Mouride green and white colors, religious devotion, cultural pride, community gathering",
		},
		{
			ID:            "independence-day",
			Name:          "Independence Day",
			NameFr:        "Fete Independance",
			Description:   "Senegalese green, yellow, red patriotic theme",
			DescriptionFr: "Theme patriotique vert, jaune, rouge",
			Category:      domain.PresetCategoryCampaign,
			Icon:          "flag",
			Settings: domain.StyleConfiguration{
				Presentation: domain.PresentationProductOnly,
				SceneType:    domain.SceneAIGenerated,
			},
			MoodboardNote: "Senegalese Independence Day celebration, patriotic green yellow red, national pride, African unity, modern Senegal",
		},
		{
			ID:            "christmas-campaign",
			Name:          "Christmas/New Year",
			NameFr:        "Noel/Nouvel An",
			Description:   "Festive red and gold, holiday spirit",
			DescriptionFr: "Rouge et or festif, esprit de fete",
			Category:      domain.PresetCategorySocial,
			Icon:          "gift",
			Settings: domain.StyleConfiguration{
				Presentation: domain.PresentationProductOnly,
				SceneType:    domain.SceneAIGenerated,
			},
			MoodboardNote: "Christmas and New Year festive spirit, red and gold decorations, holiday warmth, gift giving joy, celebration atmosphere",
		},
		{
			ID:            "summer-vibes",
			Name:          "Summer Vibes",
			NameFr:        "Ambiance Ete",
			Description:   "Bright, sunny outdoor feel",
			DescriptionFr: "Ambiance exterieure lumineuse et ensoleillee",
			Category:      domain.PresetCategorySocial,
			Icon:          "sun",
			Settings: domain.StyleConfiguration{
				Presentation: domain.PresentationProductOnly,
				SceneType:    domain.SceneAIGenerated,
			},
			MoodboardNote: "Bright sunny Senegalese summer, beach vibes, colorful and energetic, outdoor lifestyle, tropical freshness",
		},
	}
}
