package models

import "time"

// PaymentStatus reflects the outcome of one settlement attempt
type PaymentStatus string

const (
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusSuccess    PaymentStatus = "SUCCESS"
	PaymentStatusFailed     PaymentStatus = "FAILED"
)

// PaymentRecord is written once per settlement attempt. At most one record
// with status SUCCESS may exist per bounty — the settlement service checks
// this before every transfer.
type PaymentRecord struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	BountyID string `gorm:"type:uuid;not null;index" json:"bounty_id"`
	Bounty   Bounty `gorm:"foreignKey:BountyID" json:"bounty,omitempty"`

	PayerWallet string `gorm:"not null" json:"payer_wallet"`
	PayeeWallet string `gorm:"not null;index" json:"payee_wallet"`

	Amount   float64         `gorm:"not null" json:"amount"`
	Fee      float64         `json:"fee"`
	Token    string          `gorm:"not null;default:'USDC'" json:"token"`
	Protocol PaymentProtocol `gorm:"type:varchar(16);not null" json:"protocol"`

	TransactionHash string        `json:"transaction_hash"`
	Status          PaymentStatus `gorm:"type:varchar(16);not null;index" json:"status"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}
