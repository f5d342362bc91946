package style

import (
	"errors"
	"testing"

	"github.com/seetuai/seetu/internal/domain"
	"github.com/seetuai/seetu/internal/preset"
)

func TestResolveExplicitSettings(t *testing.T) {
	r := NewResolver(preset.NewCatalog())

	explicit := &domain.StyleConfiguration{
		Presentation: domain.PresentationProductOnly,
		SceneType:    domain.SceneSolidColor,
		SolidColor:   "#FFFFFF",
	}
	got, err := r.Resolve(explicit, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != *explicit {
		t.Fatalf("resolved = %+v, want %+v", got, *explicit)
	}
}

func TestResolveRejectsInvalidSettings(t *testing.T) {
	r := NewResolver(preset.NewCatalog())

	_, err := r.Resolve(&domain.StyleConfiguration{Presentation: "hologram", SceneType: domain.SceneStudio}, "")
	if !errors.Is(err, domain.ErrInvalidStyle) {
		t.Fatalf("error = %v, want ErrInvalidStyle", err)
	}

	_, err = r.Resolve(nil, "")
	if !errors.Is(err, domain.ErrInvalidStyle) {
		t.Fatalf("nil settings error = %v, want ErrInvalidStyle", err)
	}
}

func TestResolveUnknownPreset(t *testing.T) {
	r := NewResolver(preset.NewCatalog())
	_, err := r.Resolve(nil, "no-such-preset")
	if !errors.Is(err, domain.ErrPresetNotFound) {
		t.Fatalf("error = %v, want ErrPresetNotFound", err)
	}
}

func TestResolvePresetWinsOverExplicit(t *testing.T) {
	catalog := preset.NewCatalog()
	r := NewResolver(catalog)

	// Explicit settings are ignored entirely when a preset id is present.
	explicit := &domain.StyleConfiguration{
		Presentation: domain.PresentationOnModel,
		SceneType:    domain.SceneRealPlace,
		BackgroundID: "bg-9",
	}
	got, err := r.Resolve(explicit, "marketplace-ready")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Presentation != domain.PresentationProductOnly || got.SceneType != domain.SceneSolidColor || got.SolidColor != "#FFFFFF" {
		t.Fatalf("preset settings did not win: %+v", got)
	}
	if got.BackgroundID != "" {
		t.Fatalf("explicit settings leaked into preset resolution: %+v", got)
	}
	if catalog.UseCount("marketplace-ready") != 1 {
		t.Fatal("preset usage was not recorded")
	}
}

func TestResolveCampaignPresetCarriesMoodboard(t *testing.T) {
	r := NewResolver(preset.NewCatalog())
	got, err := r.Resolve(nil, "tabaski-campaign")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MoodboardNote == "" {
		t.Fatal("campaign preset should carry its moodboard note")
	}
}
