// services/budget.go
package services

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Tarif-dev/Forge/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultAgentBudget caps pay-per-call evaluator spend per agent (USD)
const DefaultAgentBudget = 10.0

// BudgetTracker meters the platform's own spend on external capabilities
// (LLM tokens, paid APIs). It is a separate ledger dimension from bounty
// payouts: every successful evaluator call books an AgentPayment here.
type BudgetTracker struct {
	DB     *gorm.DB
	Budget float64
}

func NewBudgetTracker(db *gorm.DB) *BudgetTracker {
	budget := DefaultAgentBudget
	if v := os.Getenv("AGENT_BUDGET_USD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			budget = parsed
		}
	}
	return &BudgetTracker{DB: db, Budget: budget}
}

// Spent sums successful payments booked by the agent
func (t *BudgetTracker) Spent(agentID string) (float64, error) {
	var spent float64
	err := t.DB.Model(&models.AgentPayment{}).
		Where("agent_id = ? AND status = ?", agentID, models.PaymentStatusSuccess).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&spent).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum agent spend: %w", err)
	}
	return spent, nil
}

// HasBudget reports whether the agent can afford an estimated cost
func (t *BudgetTracker) HasBudget(agentID string, cost float64) (bool, error) {
	spent, err := t.Spent(agentID)
	if err != nil {
		return false, err
	}
	return t.Budget-spent >= cost, nil
}

// EstimateCost predicts the spend of an LLM call before making it.
// Rough token accounting is fine here; the recorded cost after the call
// uses the provider's actual usage numbers.
func (t *BudgetTracker) EstimateCost(promptChars int) float64 {
	estimatedTokens := promptChars/4 + 500 // prompt plus response headroom
	return 0.001 + float64(estimatedTokens)*0.00001
}

// RecordUsage books the actual cost of a completed call as a micro-payment
// to the provider.
func (t *BudgetTracker) RecordUsage(agentID, provider string, tokensUsed int, cost float64) error {
	now := time.Now()
	payment := models.AgentPayment{
		ID:              uuid.NewString(),
		AgentID:         agentID,
		PaymentType:     models.AgentPaymentLLM,
		Provider:        provider,
		Amount:          cost,
		TokensUsed:      &tokensUsed,
		TransactionHash: fmt.Sprintf("agentpay_%d_%.8s", now.UnixMilli(), agentID),
		Status:          models.PaymentStatusSuccess,
		CompletedAt:     &now,
	}
	if err := t.DB.Create(&payment).Error; err != nil {
		return fmt.Errorf("failed to record agent usage: %w", err)
	}
	return nil
}

// UsageStats aggregates an agent's spend for the reporting endpoints
type UsageStats struct {
	TotalCalls  int64   `json:"total_calls"`
	TotalCost   float64 `json:"total_cost"`
	AverageCost float64 `json:"average_cost"`
	Remaining   float64 `json:"remaining"`
}

func (t *BudgetTracker) Stats(agentID string) (*UsageStats, error) {
	var calls int64
	if err := t.DB.Model(&models.AgentPayment{}).
		Where("agent_id = ? AND status = ?", agentID, models.PaymentStatusSuccess).
		Count(&calls).Error; err != nil {
		return nil, err
	}

	spent, err := t.Spent(agentID)
	if err != nil {
		return nil, err
	}

	stats := &UsageStats{
		TotalCalls: calls,
		TotalCost:  spent,
		Remaining:  t.Budget - spent,
	}
	if calls > 0 {
		stats.AverageCost = spent / float64(calls)
	}
	return stats, nil
}
