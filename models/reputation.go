package models

import "time"

// ReputationEvent is append-only. A user's reputation score is the sum of
// deltas over their events; the counter on User is a cache of that sum.
type ReputationEvent struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"type:uuid;not null;index" json:"user_id"`
	Delta    int    `gorm:"not null" json:"delta"`
	Category string `gorm:"not null" json:"category"` // e.g. "bounty_completion"
	Reason   string `gorm:"type:text" json:"reason"`
	Metadata string `gorm:"type:jsonb" json:"metadata,omitempty"` // e.g. {"bounty_id": "...", "reward": 500}

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
