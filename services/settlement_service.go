// services/settlement_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/Tarif-dev/Forge/models"
	"github.com/Tarif-dev/Forge/protocols"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultFallbackMin = 40
	defaultFallbackMax = 65

	defaultEvalTimeout     = 30 * time.Second
	defaultTransferTimeout = 2 * time.Minute
)

// SettlementOutcome summarizes one settle() run for the caller. It always
// reports the submission's final status plus explicit booleans for payment
// attempted vs succeeded, so an operator can tell "needs re-payment" from
// "correctly rejected".
type SettlementOutcome struct {
	Submission       *models.Submission     `json:"submission"`
	Evaluation       *EvaluationResult      `json:"evaluation,omitempty"`
	EvaluationSource string                 `json:"evaluation_source,omitempty"` // evaluator | fallback | recorded
	Threshold        int                    `json:"threshold"`
	Protocol         models.PaymentProtocol `json:"protocol,omitempty"`
	PaymentAttempted bool                   `json:"payment_attempted"`
	PaymentSucceeded bool                   `json:"payment_succeeded"`
	AlreadyPaid      bool                   `json:"already_paid,omitempty"`
	Receipt          *protocols.Receipt     `json:"receipt,omitempty"`
	PaymentError     string                 `json:"payment_error,omitempty"`
}

// SettlementService drives a completed submission through scoring, the
// pass/fail policy, payout over the bounty's rail, and the dependent ledger
// writes. The sequential writes have no cross-table transaction; the
// SUCCESS-PaymentRecord existence check inside the per-bounty critical
// section is what makes re-invocation safe.
type SettlementService struct {
	DB        *gorm.DB
	Evaluator Evaluator
	Rails     *protocols.Registry

	FallbackMin     int
	FallbackMax     int
	EvalTimeout     time.Duration
	TransferTimeout time.Duration

	locks sync.Map // bounty id → *sync.Mutex
}

func NewSettlementService(db *gorm.DB, evaluator Evaluator, rails *protocols.Registry) *SettlementService {
	s := &SettlementService{
		DB:              db,
		Evaluator:       evaluator,
		Rails:           rails,
		FallbackMin:     defaultFallbackMin,
		FallbackMax:     defaultFallbackMax,
		EvalTimeout:     defaultEvalTimeout,
		TransferTimeout: defaultTransferTimeout,
	}
	if v := os.Getenv("FALLBACK_SCORE_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.FallbackMin = ClampScore(n)
		}
	}
	if v := os.Getenv("FALLBACK_SCORE_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.FallbackMax = ClampScore(n)
		}
	}
	return s
}

// Settle evaluates and settles a submission. action is "approve" or
// "reject"; reference optionally carries an externally confirmed transaction
// signature for the traditional rail.
func (s *SettlementService) Settle(ctx context.Context, submissionID, action, reference string) (*SettlementOutcome, error) {
	var submission models.Submission
	err := s.DB.
		Preload("Bounty").
		Preload("Bounty.Creator").
		Preload("User").
		First(&submission, "id = ?", submissionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("submission %s: %w", submissionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	if submission.Bounty.ID == "" {
		return nil, fmt.Errorf("bounty for submission %s: %w", submissionID, ErrNotFound)
	}
	if submission.Bounty.Creator.ID == "" || submission.User.ID == "" {
		return nil, fmt.Errorf("user for submission %s: %w", submissionID, ErrNotFound)
	}

	switch action {
	case "reject":
		return s.reject(&submission)
	case "approve":
		return s.approve(ctx, &submission, reference)
	default:
		return nil, fmt.Errorf("unknown action %q: %w", action, ErrInvalidState)
	}
}

// reject short-circuits: no scoring, no payment, one audit entry
func (s *SettlementService) reject(submission *models.Submission) (*SettlementOutcome, error) {
	switch submission.Status {
	case models.SubmissionStatusPending, models.SubmissionStatusSubmitted:
	default:
		return nil, fmt.Errorf("cannot reject submission in state %s: %w", submission.Status, ErrInvalidState)
	}

	submission.Status = models.SubmissionStatusRejected
	if err := s.DB.Model(submission).Update("status", models.SubmissionStatusRejected).Error; err != nil {
		return nil, fmt.Errorf("failed to reject submission: %w", err)
	}

	s.logActivity(models.ActorEvaluation, "SUBMISSION_REJECTED",
		fmt.Sprintf("Submission for %q rejected by reviewer", submission.Bounty.Title),
		map[string]interface{}{"submission_id": submission.ID, "bounty_id": submission.BountyID},
		true)

	return &SettlementOutcome{
		Submission: submission,
		Threshold:  submission.Bounty.EffectiveThreshold(),
	}, nil
}

func (s *SettlementService) approve(ctx context.Context, submission *models.Submission, reference string) (*SettlementOutcome, error) {
	bounty := &submission.Bounty
	outcome := &SettlementOutcome{
		Submission: submission,
		Threshold:  bounty.EffectiveThreshold(),
		Protocol:   bounty.PaymentProtocol,
	}

	switch submission.Status {
	case models.SubmissionStatusPending, models.SubmissionStatusSubmitted:
		evaluation, source := s.evaluate(ctx, submission)
		outcome.Evaluation = evaluation
		outcome.EvaluationSource = source
		if err := s.recordEvaluation(submission, evaluation, source); err != nil {
			return nil, err
		}
	case models.SubmissionStatusApproved:
		// retry path: the verdict is already on record, do not re-score
		if submission.Score == nil {
			return nil, fmt.Errorf("approved submission %s has no score: %w", submission.ID, ErrInvalidState)
		}
		outcome.Evaluation = &EvaluationResult{Approved: true, Score: *submission.Score}
		outcome.EvaluationSource = "recorded"
	case models.SubmissionStatusPaid:
		outcome.AlreadyPaid = true
		outcome.PaymentSucceeded = true
		return outcome, nil
	default:
		return nil, fmt.Errorf("cannot approve submission in state %s: %w", submission.Status, ErrInvalidState)
	}

	evaluation := outcome.Evaluation
	if !evaluation.Approved || evaluation.Score < bounty.EffectiveThreshold() {
		// valid terminal outcome, not an error: approved/rejected without payout
		return outcome, nil
	}

	s.execute(ctx, outcome, reference)
	return outcome, nil
}

// evaluate invokes the scoring capability, degrading to the deterministic
// heuristic when it fails. The pipeline never aborts because the scorer is
// unavailable.
func (s *SettlementService) evaluate(ctx context.Context, submission *models.Submission) (*EvaluationResult, string) {
	evalCtx, cancel := context.WithTimeout(ctx, s.EvalTimeout)
	defer cancel()

	req := EvaluationRequest{
		Title:        submission.Bounty.Title,
		Requirements: submission.Bounty.Requirements,
		Note:         submission.Message,
	}
	if submission.ReviewURL != nil {
		req.ReviewURL = *submission.ReviewURL
	}

	result, err := s.Evaluator.Evaluate(evalCtx, req)
	if err == nil {
		result.Score = ClampScore(result.Score)
		return result, "evaluator"
	}

	log.Printf("evaluator unavailable for submission %s, using fallback: %v", submission.ID, err)
	return s.fallbackEvaluation(submission), "fallback"
}

// fallbackEvaluation derives a deterministic score from submission content
// length, clamped to the configured band. It never approves on its own; the
// real verdict has to come from the scorer or a human.
func (s *SettlementService) fallbackEvaluation(submission *models.Submission) *EvaluationResult {
	score := s.FallbackMin + len(submission.Message)/25
	if score > s.FallbackMax {
		score = s.FallbackMax
	}
	return &EvaluationResult{
		Approved:        false,
		Score:           ClampScore(score),
		Feedback:        "Automatic evaluation was unavailable. Manual review required.",
		Weaknesses:      []string{"Automatic evaluation failed"},
		Recommendations: []string{"Request manual review from the bounty creator"},
	}
}

// recordEvaluation writes score/evaluatedAt unconditionally, classifies the
// submission, and audits the evaluation step — even when later steps fail.
func (s *SettlementService) recordEvaluation(submission *models.Submission, evaluation *EvaluationResult, source string) error {
	now := time.Now()
	// the verdict classifies; the score only gates whether auto-pay runs
	status := models.SubmissionStatusRejected
	if evaluation.Approved {
		status = models.SubmissionStatusApproved
	}

	updates := map[string]interface{}{
		"score":        evaluation.Score,
		"evaluated_at": now,
		"status":       status,
	}
	if evaluation.Feedback != "" {
		updates["feedback"] = evaluation.Feedback
	}
	if err := s.DB.Model(submission).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to record evaluation: %w", err)
	}
	score := evaluation.Score
	submission.Score = &score
	submission.EvaluatedAt = &now
	submission.Status = status
	if evaluation.Feedback != "" {
		feedback := evaluation.Feedback
		submission.Feedback = &feedback
	}

	s.logActivity(models.ActorEvaluation, "EVALUATION_COMPLETED",
		fmt.Sprintf("Evaluated submission for %q", submission.Bounty.Title),
		map[string]interface{}{
			"submission_id": submission.ID,
			"bounty_id":     submission.BountyID,
			"score":         evaluation.Score,
			"approved":      evaluation.Approved,
			"source":        source,
		},
		true)
	return nil
}

// execute runs the payout and the dependent ledger writes. Runs to a
// terminal state even if the original caller has gone away; partial state is
// recoverable by re-reading the store, so nothing here is interruptible
// mid-write.
func (s *SettlementService) execute(ctx context.Context, outcome *SettlementOutcome, reference string) {
	submission := outcome.Submission
	bounty := &submission.Bounty

	lock := s.bountyLock(bounty.ID)
	lock.Lock()
	defer lock.Unlock()

	detached := context.WithoutCancel(ctx)

	// idempotency guard: one SUCCESS record per bounty, ever
	alreadyPaid, err := s.claimBounty(bounty)
	if err != nil {
		outcome.PaymentError = err.Error()
		return
	}
	if alreadyPaid {
		outcome.AlreadyPaid = true
		outcome.PaymentSucceeded = true
		s.convergePaid(submission)
		return
	}

	processor := s.Rails.For(bounty.PaymentProtocol)
	outcome.Protocol = processor.Protocol()
	outcome.PaymentAttempted = true

	transferCtx, cancel := context.WithTimeout(detached, s.TransferTimeout)
	defer cancel()

	receipt, err := processor.Transfer(transferCtx, protocols.TransferRequest{
		FromWallet: bounty.Creator.WalletAddress,
		ToWallet:   submission.User.WalletAddress,
		Amount:     bounty.Reward,
		Memo:       fmt.Sprintf("bounty:%s", bounty.ID),
		Reference:  reference,
	})
	if err != nil {
		// no rollback of APPROVED/COMPLETED: the bounty stays in the
		// recoverable approved-but-unpaid position for a later retry
		s.recordFailedPayment(submission, err)
		outcome.PaymentError = err.Error()
		return
	}

	if err := s.commitSettlement(submission, receipt); err != nil {
		log.Printf("settlement ledger writes failed for bounty %s (receipt %s): %v",
			bounty.ID, receipt.TransactionHash, err)
		outcome.PaymentError = err.Error()
		return
	}

	outcome.PaymentSucceeded = true
	outcome.Receipt = receipt
}

// claimBounty marks the bounty COMPLETED and reports whether a SUCCESS
// payment already exists, both under a row lock so concurrent approvals
// cannot pass the check together.
func (s *SettlementService) claimBounty(bounty *models.Bounty) (alreadyPaid bool, err error) {
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Bounty
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, "id = ?", bounty.ID).Error; err != nil {
			return fmt.Errorf("failed to lock bounty: %w", err)
		}

		var paid int64
		if err := tx.Model(&models.PaymentRecord{}).
			Where("bounty_id = ? AND status = ?", bounty.ID, models.PaymentStatusSuccess).
			Count(&paid).Error; err != nil {
			return fmt.Errorf("failed to check existing payments: %w", err)
		}
		if paid > 0 {
			alreadyPaid = true
			return nil
		}

		if locked.Status != models.BountyStatusCompleted {
			now := time.Now()
			if err := tx.Model(&locked).Updates(map[string]interface{}{
				"status":       models.BountyStatusCompleted,
				"completed_at": now,
			}).Error; err != nil {
				return fmt.Errorf("failed to complete bounty: %w", err)
			}
			bounty.Status = models.BountyStatusCompleted
			bounty.CompletedAt = &now
		}
		return nil
	})
	return alreadyPaid, err
}

// convergePaid resolves the partial state where a SUCCESS record exists but
// the submission never reached PAID.
func (s *SettlementService) convergePaid(submission *models.Submission) {
	if submission.Status == models.SubmissionStatusPaid {
		return
	}
	if err := s.DB.Model(submission).Update("status", models.SubmissionStatusPaid).Error; err != nil {
		log.Printf("failed to converge submission %s to PAID: %v", submission.ID, err)
		return
	}
	submission.Status = models.SubmissionStatusPaid
}

// commitSettlement applies the post-transfer ledger writes as one unit:
// payment record, reputation event, user counters, submission PAID.
func (s *SettlementService) commitSettlement(submission *models.Submission, receipt *protocols.Receipt) error {
	bounty := &submission.Bounty
	delta := 0
	if submission.Score != nil {
		delta = *submission.Score
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		payment := models.PaymentRecord{
			ID:              uuid.NewString(),
			BountyID:        bounty.ID,
			PayerWallet:     bounty.Creator.WalletAddress,
			PayeeWallet:     submission.User.WalletAddress,
			Amount:          bounty.Reward,
			Fee:             receipt.Fee,
			Token:           bounty.RewardToken,
			Protocol:        bounty.PaymentProtocol,
			TransactionHash: receipt.TransactionHash,
			Status:          models.PaymentStatusSuccess,
			CompletedAt:     &now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to create payment record: %w", err)
		}

		event := models.ReputationEvent{
			ID:       uuid.NewString(),
			UserID:   submission.UserID,
			Delta:    delta,
			Category: "bounty_completion",
			Reason:   fmt.Sprintf("Completed bounty: %s", bounty.Title),
			Metadata: marshalMetadata(map[string]interface{}{
				"bounty_id": bounty.ID,
				"reward":    bounty.Reward,
			}),
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to create reputation event: %w", err)
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", submission.UserID).
			Updates(map[string]interface{}{
				"total_earned":     gorm.Expr("total_earned + ?", bounty.Reward),
				"reputation_score": gorm.Expr("reputation_score + ?", delta),
			}).Error; err != nil {
			return fmt.Errorf("failed to update user counters: %w", err)
		}

		if err := tx.Model(&models.Submission{}).
			Where("id = ?", submission.ID).
			Update("status", models.SubmissionStatusPaid).Error; err != nil {
			return fmt.Errorf("failed to mark submission paid: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	submission.Status = models.SubmissionStatusPaid
	s.logActivity(models.ActorPaymentProcessor, "PAYMENT_COMPLETED",
		fmt.Sprintf("%s payment of %.2f %s processed for %q",
			bounty.PaymentProtocol, bounty.Reward, bounty.RewardToken, bounty.Title),
		map[string]interface{}{
			"bounty_id":        bounty.ID,
			"submission_id":    submission.ID,
			"amount":           bounty.Reward,
			"protocol":         bounty.PaymentProtocol,
			"transaction_hash": receipt.TransactionHash,
		},
		true)
	return nil
}

func (s *SettlementService) recordFailedPayment(submission *models.Submission, transferErr error) {
	bounty := &submission.Bounty
	record := models.PaymentRecord{
		ID:          uuid.NewString(),
		BountyID:    bounty.ID,
		PayerWallet: bounty.Creator.WalletAddress,
		PayeeWallet: submission.User.WalletAddress,
		Amount:      bounty.Reward,
		Token:       bounty.RewardToken,
		Protocol:    bounty.PaymentProtocol,
		Status:      models.PaymentStatusFailed,
	}
	if err := s.DB.Create(&record).Error; err != nil {
		log.Printf("failed to record failed payment for bounty %s: %v", bounty.ID, err)
	}

	s.logActivity(models.ActorPaymentProcessor, "PAYMENT_FAILED",
		fmt.Sprintf("%s payment for %q failed: %v", bounty.PaymentProtocol, bounty.Title, transferErr),
		map[string]interface{}{
			"bounty_id":     bounty.ID,
			"submission_id": submission.ID,
			"amount":        bounty.Reward,
			"protocol":      bounty.PaymentProtocol,
		},
		false)
}

func (s *SettlementService) bountyLock(bountyID string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(bountyID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (s *SettlementService) logActivity(actor models.ActorType, action, description string, metadata map[string]interface{}, success bool) {
	entry := models.ActivityLogEntry{
		ID:          uuid.NewString(),
		ActorType:   actor,
		Action:      action,
		Description: description,
		Metadata:    marshalMetadata(metadata),
		Success:     success,
	}
	if err := s.DB.Create(&entry).Error; err != nil {
		// the audit trail must never take the pipeline down
		log.Printf("failed to write activity log entry %s: %v", action, err)
	}
}

func marshalMetadata(metadata map[string]interface{}) string {
	if len(metadata) == 0 {
		return ""
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(raw)
}
