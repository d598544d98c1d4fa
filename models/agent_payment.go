package models

import "time"

// AgentPaymentType distinguishes what the platform paid a provider for
type AgentPaymentType string

const (
	AgentPaymentAPI  AgentPaymentType = "API"
	AgentPaymentLLM  AgentPaymentType = "LLM"
	AgentPaymentData AgentPaymentType = "DATA"
)

// AgentPayment records platform-side infrastructure spend (e.g. LLM tokens
// burned by the evaluator). This is a separate ledger dimension from bounty
// payouts: infrastructure spend vs. contributor earnings.
type AgentPayment struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	AgentID     string           `gorm:"not null;index" json:"agent_id"`
	PaymentType AgentPaymentType `gorm:"type:varchar(8);not null" json:"payment_type"`
	Provider    string           `gorm:"not null" json:"provider"`
	Endpoint    *string          `json:"endpoint,omitempty"`

	Amount     float64 `gorm:"not null" json:"amount"`
	TokensUsed *int    `json:"tokens_used,omitempty"`

	TransactionHash string        `json:"transaction_hash"`
	Status          PaymentStatus `gorm:"type:varchar(16);not null" json:"status"`
	Metadata        string        `gorm:"type:jsonb" json:"metadata,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}
