package models

import (
	"time"

	"gorm.io/gorm"
)

// BountyStatus is the lifecycle state of a bounty
type BountyStatus string

const (
	BountyStatusOpen      BountyStatus = "OPEN"
	BountyStatusCompleted BountyStatus = "COMPLETED"
	BountyStatusCancelled BountyStatus = "CANCELLED"
)

// PaymentProtocol selects the rail used to pay out the reward
type PaymentProtocol string

const (
	ProtocolX402   PaymentProtocol = "X402"   // autonomous agent rail
	ProtocolCash   PaymentProtocol = "CASH"   // low-fee consumer rail
	ProtocolSolana PaymentProtocol = "SOLANA" // traditional settle-and-confirm rail
)

// DefaultAutoPayThreshold is applied when a bounty does not configure one.
const DefaultAutoPayThreshold = 70

// Bounty is a unit of requested work with an attached reward.
// Exactly one submission per bounty may ever be paid.
type Bounty struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Title        string `gorm:"not null" json:"title"`
	Slug         string `gorm:"uniqueIndex;not null" json:"slug"`
	Description  string `gorm:"type:text" json:"description"`
	Requirements string `gorm:"type:text" json:"requirements"`
	Category     string `json:"category"`

	Reward      float64 `gorm:"not null" json:"reward"`
	RewardToken string  `gorm:"not null;default:'USDC'" json:"reward_token"`

	PaymentProtocol  PaymentProtocol `gorm:"type:varchar(16);default:'SOLANA'" json:"payment_protocol"`
	AutoPayThreshold int             `gorm:"not null;default:70" json:"auto_pay_threshold"`

	Status        BountyStatus `gorm:"type:varchar(16);not null;default:'OPEN';index" json:"status"`
	GithubRepoURL *string      `json:"github_repo_url,omitempty"`

	CreatorID string `gorm:"type:uuid;not null;index" json:"creator_id"`
	Creator   User   `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// EffectiveThreshold returns the auto-pay threshold, defaulting when unset.
func (b *Bounty) EffectiveThreshold() int {
	if b.AutoPayThreshold <= 0 || b.AutoPayThreshold > 100 {
		return DefaultAutoPayThreshold
	}
	return b.AutoPayThreshold
}
