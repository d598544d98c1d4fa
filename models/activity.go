package models

import "time"

// ActorType categorizes who produced an activity log entry
type ActorType string

const (
	ActorEvaluation       ActorType = "EVALUATION"
	ActorPaymentProcessor ActorType = "PAYMENT_PROCESSOR"
	ActorBountyLifecycle  ActorType = "BOUNTY_LIFECYCLE"
	ActorCommunication    ActorType = "COMMUNICATION"
)

// ActivityLogEntry is the append-only audit trail. The settlement service
// only ever writes here; nothing in the pipeline reads it back.
type ActivityLogEntry struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	ActorType   ActorType `gorm:"type:varchar(32);not null;index" json:"actor_type"`
	Action      string    `gorm:"not null" json:"action"` // e.g. "EVALUATION_COMPLETED"
	Description string    `gorm:"type:text" json:"description"`
	Metadata    string    `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success     bool      `gorm:"not null;default:true" json:"success"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
