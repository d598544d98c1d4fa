package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a wallet-identified contributor or bounty creator.
// ReputationScore and TotalEarned are denormalized counters maintained by the
// settlement service; the ReputationEvent table is the source of truth.
type User struct {
	ID              string  `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress   string  `gorm:"uniqueIndex;not null" json:"wallet_address"`
	Username        *string `json:"username,omitempty"`
	AvatarURL       *string `json:"avatar_url,omitempty"`
	Bio             *string `json:"bio,omitempty"`
	ReputationScore int     `gorm:"not null;default:0" json:"reputation_score"`
	TotalEarned     float64 `gorm:"not null;default:0" json:"total_earned"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
