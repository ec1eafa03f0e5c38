package model

import "time"

// Category labels entries of a single user.
type Category struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"UserId"`
	Label     string    `json:"label"`
	Color     string    `json:"color"` // #rrggbb
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
