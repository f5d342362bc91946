package style

import (
	"fmt"

	"github.com/seetuai/seetu/internal/domain"
	"github.com/seetuai/seetu/internal/metrics"
	"github.com/seetuai/seetu/internal/preset"
)

// Resolver turns a preset id or raw style parameters into the concrete,
// immutable configuration applied to every item in a batch.
type Resolver struct {
	catalog *preset.Catalog
}

// NewResolver constructs a Resolver over the preset catalog.
func NewResolver(catalog *preset.Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve finalizes the style for a batch. When presetID is set the preset's
// fixed settings win outright over any explicit settings passed alongside it;
// otherwise the explicit settings are validated against the recognized
// enumerations.
func (r *Resolver) Resolve(explicit *domain.StyleConfiguration, presetID string) (domain.StyleConfiguration, error) {
	if presetID != "" {
		p, ok := r.catalog.ByID(presetID)
		if !ok {
			return domain.StyleConfiguration{}, fmt.Errorf("%w: %s", domain.ErrPresetNotFound, presetID)
		}
		r.catalog.RecordUse(p.ID)
		metrics.PresetUsage.WithLabelValues(p.ID).Inc()

		resolved := p.Settings
		resolved.MoodboardNote = p.MoodboardNote
		return resolved, nil
	}

	if explicit == nil {
		return domain.StyleConfiguration{}, fmt.Errorf("%w: style settings or preset required", domain.ErrInvalidStyle)
	}
	if err := explicit.Validate(); err != nil {
		return domain.StyleConfiguration{}, err
	}
	return *explicit, nil
}
