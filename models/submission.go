package models

import "time"

// SubmissionStatus follows the lifecycle:
// PENDING → SUBMITTED → {APPROVED | REJECTED} → PAID (terminal).
// APPROVED/REJECTED are terminal when payment is not configured or the
// bounty threshold is not met.
type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "PENDING"
	SubmissionStatusSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionStatusApproved  SubmissionStatus = "APPROVED"
	SubmissionStatusRejected  SubmissionStatus = "REJECTED"
	SubmissionStatusPaid      SubmissionStatus = "PAID"
)

// Submission is a claim of completed work against a bounty.
// Score and EvaluatedAt are written by the settlement service only.
type Submission struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	BountyID string `gorm:"type:uuid;not null;index" json:"bounty_id"`
	Bounty   Bounty `gorm:"foreignKey:BountyID" json:"bounty,omitempty"`
	UserID   string `gorm:"type:uuid;not null;index" json:"user_id"`
	User     User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Message   string  `gorm:"type:text;not null" json:"message"`
	ReviewURL *string `json:"review_url,omitempty"` // e.g. pull request link

	Status      SubmissionStatus `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`
	Score       *int             `json:"score,omitempty"` // 0-100, set by evaluation
	Feedback    *string          `gorm:"type:text" json:"feedback,omitempty"`
	EvaluatedAt *time.Time       `json:"evaluated_at,omitempty"`

	Timestamps
}
