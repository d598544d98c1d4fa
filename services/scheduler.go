// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/Tarif-dev/Forge/models"

	"github.com/go-co-op/gocron/v2"
)

// StartRetryScheduler periodically re-drives settlements stuck in the
// approved-but-unpaid position.
func (s *SettlementService) StartRetryScheduler(interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			s.SweepUnsettled(context.Background())
		}),
	)
}

// SweepUnsettled finds submissions whose payout never landed (bounty
// COMPLETED, winning submission APPROVED, no SUCCESS payment record) and
// re-drives them. Only the autonomous rails are swept; the traditional rail
// waits for a human-supplied signature.
func (s *SettlementService) SweepUnsettled(ctx context.Context) {
	var stuck []models.Submission
	err := s.DB.
		Joins("JOIN bounties ON bounties.id = submissions.bounty_id").
		Where("submissions.status = ?", models.SubmissionStatusApproved).
		Where("bounties.status = ?", models.BountyStatusCompleted).
		Where("bounties.payment_protocol IN ?", []models.PaymentProtocol{models.ProtocolX402, models.ProtocolCash}).
		Where("NOT EXISTS (SELECT 1 FROM payment_records p WHERE p.bounty_id = submissions.bounty_id AND p.status = ?)", models.PaymentStatusSuccess).
		Find(&stuck).Error
	if err != nil {
		log.Printf("[RetrySweep] DB error: %v", err)
		return
	}

	for _, sub := range stuck {
		outcome, err := s.Settle(ctx, sub.ID, "approve", "")
		if err != nil {
			log.Printf("[RetrySweep] Failed to re-settle submission %s: %v", sub.ID, err)
			continue
		}
		if outcome.PaymentSucceeded {
			log.Printf("✅ Retry settled submission %s (bounty %s)", sub.ID, sub.BountyID)
		} else {
			log.Printf("[RetrySweep] Submission %s still unpaid: %s", sub.ID, outcome.PaymentError)
		}
	}
}
