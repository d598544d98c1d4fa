// handlers/settlement.go
package handlers

import (
	"errors"
	"log"

	"github.com/Tarif-dev/Forge/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SetupSettlementRoutes wires the evaluation-to-settlement pipeline
func SetupSettlementRoutes(app *fiber.App, settlement *services.SettlementService) {
	app.Post("/submissions/:id/evaluate", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid submission ID"})
		}

		var req struct {
			Action string `json:"action"`
			// confirmed signature for the traditional rail
			TransactionSignature string `json:"transaction_signature"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.Action != "approve" && req.Action != "reject" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "action must be 'approve' or 'reject'"})
		}

		outcome, err := settlement.Settle(c.Context(), id, req.Action, req.TransactionSignature)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrInvalidState):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			default:
				log.Printf("settlement failed for submission %s: %v", id, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Settlement failed"})
			}
		}

		// payment failures surface as a non-2xx so operators notice, but the
		// evaluation state they carry is already committed
		if outcome.PaymentAttempted && !outcome.PaymentSucceeded {
			return c.Status(fiber.StatusBadGateway).JSON(outcome)
		}
		return c.JSON(outcome)
	})
}
