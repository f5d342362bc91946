package domain

// PresetCategory groups presets for catalog display.
type PresetCategory string

const (
	PresetCategoryMarketplace PresetCategory = "marketplace"
	PresetCategoryCatalog     PresetCategory = "catalog"
	PresetCategoryCampaign    PresetCategory = "campaign"
	PresetCategorySocial      PresetCategory = "social"
)

// Preset is a named, read-only bundle of style settings. Jobs store the
// resolved configuration, never a reference to the preset, so later edits to
// the catalog cannot retroactively affect in-flight or historical jobs.
type Preset struct {
	ID            string
	Name          string
	NameFr        string
	Description   string
	DescriptionFr string
	Category      PresetCategory
	Icon          string
	Settings      StyleConfiguration
	// MoodboardNote is extra art direction appended to prompts for
	// campaign presets.
	MoodboardNote string
}

// LocalizedName returns the preset display name for the locale.
func (p Preset) LocalizedName(locale string) string {
	if locale == "fr" && p.NameFr != "" {
		return p.NameFr
	}
	return p.Name
}

// LocalizedDescription returns the preset description for the locale.
func (p Preset) LocalizedDescription(locale string) string {
	if locale == "fr" && p.DescriptionFr != "" {
		return p.DescriptionFr
	}
	return p.Description
}
