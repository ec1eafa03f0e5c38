package model

import "time"

// Entry types.
const (
	EntryExpense = 0
	EntryIncome  = 1
)

// Entry is a ledger line.  Categories is only filled by lookups that join
// entry_categories.
type Entry struct {
	ID           uint64     `json:"id"`
	UserID       uint64     `json:"UserId"`
	Label        string     `json:"label"`
	Type         int        `json:"type"`
	Value        float64    `json:"value"`
	RegisteredAt time.Time  `json:"registeredAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Categories   []Category `json:"Categories,omitempty"`
}

// UniqueIDs returns ids with duplicates removed, keeping first occurrence order.
func UniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
