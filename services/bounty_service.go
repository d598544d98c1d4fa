// services/bounty_service.go
package services

import (
	"errors"
	"log"

	"github.com/Tarif-dev/Forge/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type BountyService struct {
	DB *gorm.DB
}

func NewBountyService(db *gorm.DB) *BountyService {
	return &BountyService{DB: db}
}

// CreateBounty creates a bounty owned by the calling wallet
func (s *BountyService) CreateBounty(c *fiber.Ctx) error {
	wallet := c.Locals("wallet_address").(string)

	var req struct {
		Title            string                 `json:"title"`
		Description      string                 `json:"description"`
		Requirements     string                 `json:"requirements"`
		Category         string                 `json:"category"`
		Reward           float64                `json:"reward"`
		RewardToken      string                 `json:"reward_token"`
		PaymentProtocol  models.PaymentProtocol `json:"payment_protocol"`
		AutoPayThreshold int                    `json:"auto_pay_threshold"`
		GithubRepoURL    *string                `json:"github_repo_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Title == "" || req.Reward <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title and a positive reward are required"})
	}
	if req.RewardToken == "" {
		req.RewardToken = "USDC"
	}
	if req.AutoPayThreshold < 0 || req.AutoPayThreshold > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "auto_pay_threshold must be in [0,100]"})
	}
	if req.AutoPayThreshold == 0 {
		req.AutoPayThreshold = models.DefaultAutoPayThreshold
	}
	switch req.PaymentProtocol {
	case models.ProtocolX402, models.ProtocolCash, models.ProtocolSolana:
	case "":
		req.PaymentProtocol = models.ProtocolSolana
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown payment_protocol"})
	}

	creator, err := FindOrCreateUser(s.DB, wallet)
	if err != nil {
		log.Printf("DB Error resolving creator %s: %v", wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve creator"})
	}

	bounty := &models.Bounty{
		ID:               uuid.NewString(),
		Title:            req.Title,
		Slug:             slug.Make(req.Title) + "-" + uuid.NewString()[:8],
		Description:      req.Description,
		Requirements:     req.Requirements,
		Category:         req.Category,
		Reward:           req.Reward,
		RewardToken:      req.RewardToken,
		PaymentProtocol:  req.PaymentProtocol,
		AutoPayThreshold: req.AutoPayThreshold,
		Status:           models.BountyStatusOpen,
		GithubRepoURL:    req.GithubRepoURL,
		CreatorID:        creator.ID,
	}

	if err := s.DB.Create(bounty).Error; err != nil {
		log.Printf("DB Error creating bounty: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create bounty"})
	}

	return c.Status(fiber.StatusCreated).JSON(bounty)
}

// ListBounties returns bounties, optionally filtered by status or creator
func (s *BountyService) ListBounties(c *fiber.Ctx) error {
	query := s.DB.Preload("Creator").Order("created_at DESC")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if creator := c.Query("creator"); creator != "" {
		query = query.Joins("JOIN users ON users.id = bounties.creator_id").
			Where("users.wallet_address = ?", creator)
	}

	var bounties []models.Bounty
	if err := query.Limit(100).Find(&bounties).Error; err != nil {
		log.Printf("DB Error listing bounties: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch bounties"})
	}
	return c.JSON(bounties)
}

// GetBounty fetches one bounty by id, including its submissions
func (s *BountyService) GetBounty(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid bounty ID"})
	}

	var bounty models.Bounty
	if err := s.DB.Preload("Creator").First(&bounty, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Bounty not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var submissions []models.Submission
	if err := s.DB.Preload("User").Where("bounty_id = ?", id).
		Order("created_at DESC").Find(&submissions).Error; err != nil {
		log.Printf("DB Error fetching submissions for bounty %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	return c.JSON(fiber.Map{"bounty": bounty, "submissions": submissions})
}

// CancelBounty moves an OPEN bounty to CANCELLED (creator only)
func (s *BountyService) CancelBounty(c *fiber.Ctx) error {
	wallet := c.Locals("wallet_address").(string)
	id := c.Params("id")

	var bounty models.Bounty
	if err := s.DB.Preload("Creator").First(&bounty, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Bounty not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if bounty.Creator.WalletAddress != wallet {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the creator can cancel a bounty"})
	}
	if bounty.Status != models.BountyStatusOpen {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Only open bounties can be cancelled"})
	}

	if err := s.DB.Model(&bounty).Update("status", models.BountyStatusCancelled).Error; err != nil {
		log.Printf("DB Error cancelling bounty %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to cancel bounty"})
	}

	return c.JSON(fiber.Map{"message": "Bounty cancelled", "bounty": bounty})
}

// FindOrCreateUser resolves a wallet address to a User row, creating one on
// first sight. Wallet identity is the only authentication the platform has.
func FindOrCreateUser(db *gorm.DB, walletAddress string) (*models.User, error) {
	var user models.User
	err := db.Where("wallet_address = ?", walletAddress).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	user = models.User{
		ID:            uuid.NewString(),
		WalletAddress: walletAddress,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
