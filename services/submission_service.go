// services/submission_service.go
package services

import (
	"errors"
	"log"

	"github.com/Tarif-dev/Forge/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubmissionService struct {
	DB *gorm.DB
}

func NewSubmissionService(db *gorm.DB) *SubmissionService {
	return &SubmissionService{DB: db}
}

// CreateSubmission claims completed work against an open bounty
func (s *SubmissionService) CreateSubmission(c *fiber.Ctx) error {
	wallet := c.Locals("wallet_address").(string)

	var req struct {
		BountyID  string  `json:"bounty_id"`
		Message   string  `json:"message"`
		ReviewURL *string `json:"review_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.BountyID == "" || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bounty_id and message are required"})
	}

	var bounty models.Bounty
	if err := s.DB.First(&bounty, "id = ?", req.BountyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Bounty not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if bounty.Status != models.BountyStatusOpen {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Bounty is not open for submissions"})
	}

	user, err := FindOrCreateUser(s.DB, wallet)
	if err != nil {
		log.Printf("DB Error resolving submitter %s: %v", wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve user"})
	}

	var existing int64
	if err := s.DB.Model(&models.Submission{}).
		Where("bounty_id = ? AND user_id = ?", req.BountyID, user.ID).
		Count(&existing).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if existing > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You have already applied to this bounty"})
	}

	submission := &models.Submission{
		ID:        uuid.NewString(),
		BountyID:  req.BountyID,
		UserID:    user.ID,
		Message:   req.Message,
		ReviewURL: req.ReviewURL,
		Status:    models.SubmissionStatusSubmitted,
	}
	if err := s.DB.Create(submission).Error; err != nil {
		log.Printf("DB Error creating submission: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create submission"})
	}

	activity := models.ActivityLogEntry{
		ID:          uuid.NewString(),
		ActorType:   models.ActorCommunication,
		Action:      "SUBMISSION_CREATED",
		Description: "New submission for bounty " + bounty.Title,
		Metadata: marshalMetadata(map[string]interface{}{
			"submission_id": submission.ID,
			"bounty_id":     bounty.ID,
			"user_id":       user.ID,
		}),
		Success: true,
	}
	if err := s.DB.Create(&activity).Error; err != nil {
		log.Printf("failed to log submission activity: %v", err)
	}

	return c.Status(fiber.StatusCreated).JSON(submission)
}

// ListSubmissions filters by bounty or wallet
func (s *SubmissionService) ListSubmissions(c *fiber.Ctx) error {
	query := s.DB.Preload("User").Preload("Bounty").Order("created_at DESC")

	if bountyID := c.Query("bounty_id"); bountyID != "" {
		query = query.Where("bounty_id = ?", bountyID)
	}
	if wallet := c.Query("wallet"); wallet != "" {
		query = query.Joins("JOIN users ON users.id = submissions.user_id").
			Where("users.wallet_address = ?", wallet)
	}

	var submissions []models.Submission
	if err := query.Limit(100).Find(&submissions).Error; err != nil {
		log.Printf("DB Error listing submissions: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch submissions"})
	}
	return c.JSON(submissions)
}
