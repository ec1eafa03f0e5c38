package model

import "time"

// Favorite is a reusable entry template.
type Favorite struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"UserId"`
	Label     string    `json:"label"`
	Type      int       `json:"type"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
