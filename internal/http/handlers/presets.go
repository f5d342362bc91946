package handlers

import (
	"net/http"

	"github.com/seetuai/seetu/internal/domain"
	"github.com/seetuai/seetu/internal/middleware"
)

type presetResponse struct {
	ID            string                    `json:"id"`
	Name          string                    `json:"name"`
	Description   string                    `json:"description"`
	Category      string                    `json:"category"`
	Icon          string                    `json:"icon,omitempty"`
	Settings      domain.StyleConfiguration `json:"settings"`
	MoodboardNote string                    `json:"moodboard_note,omitempty"`
}

// Presets lists the style presets grouped by category, localized to the
// request locale.
func (a *App) Presets(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	grouped := a.Catalog.Grouped()

	out := make(map[string][]presetResponse)
	for _, category := range a.Catalog.Categories() {
		presets := grouped[category]
		if len(presets) == 0 {
			continue
		}
		group := make([]presetResponse, 0, len(presets))
		for _, p := range presets {
			group = append(group, presetResponse{
				ID:            p.ID,
				Name:          p.LocalizedName(locale),
				Description:   p.LocalizedDescription(locale),
				Category:      string(p.Category),
				Icon:          p.Icon,
				Settings:      p.Settings,
				MoodboardNote: p.MoodboardNote,
			})
		}
		out[string(category)] = group
	}

	a.json(w, http.StatusOK, map[string]any{"presets": out})
}
