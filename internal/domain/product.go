package domain

import "time"

// Product is an uploaded product photo set that generations are based on.
// Products belong to a brand, which belongs to a user.
type Product struct {
	ID           string
	BrandID      string
	Name         string
	ThumbnailURL string
	SourceURL    string
	CreatedAt    time.Time
}

// Brand groups a user's products and carries the brand voice used for
// captions.
type Brand struct {
	ID        string
	UserID    string
	Name      string
	Voice     string
	IsDefault bool
	CreatedAt time.Time
}
