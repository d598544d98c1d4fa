// services/ledger_service.go
package services

import (
	"errors"
	"log"
	"strconv"

	"github.com/Tarif-dev/Forge/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LedgerService serves read access to the payment, reputation and audit
// tables. The settlement pipeline only writes these; humans read them here.
type LedgerService struct {
	DB      *gorm.DB
	Tracker *BudgetTracker
}

func NewLedgerService(db *gorm.DB, tracker *BudgetTracker) *LedgerService {
	return &LedgerService{DB: db, Tracker: tracker}
}

// ListPayments returns payment records filtered by bounty or wallet
func (s *LedgerService) ListPayments(c *fiber.Ctx) error {
	query := s.DB.Preload("Bounty").Order("created_at DESC")

	if bountyID := c.Query("bounty_id"); bountyID != "" {
		query = query.Where("bounty_id = ?", bountyID)
	}
	if wallet := c.Query("wallet"); wallet != "" {
		query = query.Where("payer_wallet = ? OR payee_wallet = ?", wallet, wallet)
	}

	var payments []models.PaymentRecord
	if err := query.Limit(100).Find(&payments).Error; err != nil {
		log.Printf("DB Error listing payments: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch payments"})
	}
	return c.JSON(payments)
}

// ListAgentPayments returns the platform's infrastructure spend
func (s *LedgerService) ListAgentPayments(c *fiber.Ctx) error {
	query := s.DB.Order("created_at DESC")
	if agentID := c.Query("agent_id"); agentID != "" {
		query = query.Where("agent_id = ?", agentID)
	}

	var payments []models.AgentPayment
	if err := query.Limit(100).Find(&payments).Error; err != nil {
		log.Printf("DB Error listing agent payments: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch agent payments"})
	}
	return c.JSON(payments)
}

// AgentUsageStats reports spend aggregates for one agent
func (s *LedgerService) AgentUsageStats(c *fiber.Ctx) error {
	agentID := c.Params("agentId")
	stats, err := s.Tracker.Stats(agentID)
	if err != nil {
		log.Printf("DB Error computing agent stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute usage stats"})
	}
	return c.JSON(stats)
}

// ListActivities returns the newest audit trail entries
func (s *LedgerService) ListActivities(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.DB.Order("created_at DESC").Limit(limit)
	if actor := c.Query("actor_type"); actor != "" {
		query = query.Where("actor_type = ?", actor)
	}

	var entries []models.ActivityLogEntry
	if err := query.Find(&entries).Error; err != nil {
		log.Printf("DB Error listing activities: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch activities"})
	}
	return c.JSON(entries)
}

// ReputationLeaderboard ranks users by cached reputation score
func (s *LedgerService) ReputationLeaderboard(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	var users []models.User
	if err := s.DB.Order("reputation_score DESC").Limit(limit).Find(&users).Error; err != nil {
		log.Printf("DB Error building leaderboard: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch leaderboard"})
	}
	return c.JSON(users)
}

// GetUserByWallet returns a user's profile with their reputation events
func (s *LedgerService) GetUserByWallet(c *fiber.Ctx) error {
	wallet := c.Params("wallet")

	var user models.User
	if err := s.DB.Where("wallet_address = ?", wallet).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var events []models.ReputationEvent
	if err := s.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").Limit(50).Find(&events).Error; err != nil {
		log.Printf("DB Error fetching reputation events: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	return c.JSON(fiber.Map{"user": user, "reputation_events": events})
}
