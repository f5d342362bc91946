package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// PresentationType enumerates how the product is presented in the shot.
type PresentationType string

const (
	PresentationProductOnly PresentationType = "product_only"
	PresentationOnModel     PresentationType = "on_model"
	PresentationGhost       PresentationType = "ghost"
)

// SceneType enumerates the closed set of supported scene styles.
type SceneType string

const (
	SceneStudio      SceneType = "studio"
	SceneSolidColor  SceneType = "solid_color"
	SceneRealPlace   SceneType = "real_place"
	SceneAIGenerated SceneType = "ai_generated"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// StyleConfiguration is the resolved, immutable presentation configuration
// applied uniformly to every item in a batch. Scene-specific parameters are
// validated against the scene type rather than passed through as loose JSON.
type StyleConfiguration struct {
	Presentation PresentationType `json:"presentation"`
	SceneType    SceneType        `json:"scene_type"`
	// SolidColor is required for scene_type=solid_color, forbidden otherwise.
	SolidColor string `json:"solid_color,omitempty"`
	// BackgroundID optionally references an uploaded background for
	// real_place scenes.
	BackgroundID string `json:"background_id,omitempty"`
	// BrandID carries the user's default brand when one exists, as a hint
	// for prompt construction and caption voice.
	BrandID string `json:"brand_id,omitempty"`
	// MoodboardNote is appended to prompts for campaign presets.
	MoodboardNote string `json:"moodboard_note,omitempty"`
}

// Validate checks the configuration against the recognized enumerations and
// the per-scene parameter rules.
func (s StyleConfiguration) Validate() error {
	switch s.Presentation {
	case PresentationProductOnly, PresentationOnModel, PresentationGhost:
	case "":
		return fmt.Errorf("%w: presentation is required", ErrInvalidStyle)
	default:
		return fmt.Errorf("%w: unknown presentation %q", ErrInvalidStyle, s.Presentation)
	}

	switch s.SceneType {
	case SceneSolidColor:
		if !hexColorPattern.MatchString(strings.TrimSpace(s.SolidColor)) {
			return fmt.Errorf("%w: solid_color scenes require a #RRGGBB solid_color", ErrInvalidStyle)
		}
	case SceneStudio, SceneRealPlace, SceneAIGenerated:
		if strings.TrimSpace(s.SolidColor) != "" {
			return fmt.Errorf("%w: solid_color is only valid for solid_color scenes", ErrInvalidStyle)
		}
	case "":
		return fmt.Errorf("%w: scene_type is required", ErrInvalidStyle)
	default:
		return fmt.Errorf("%w: unknown scene_type %q", ErrInvalidStyle, s.SceneType)
	}

	return nil
}
