// handlers/bounty.go
package handlers

import (
	"github.com/Tarif-dev/Forge/middleware"
	"github.com/Tarif-dev/Forge/services"

	"github.com/gofiber/fiber/v2"
)

// SetupBountyRoutes wires bounty CRUD and submission intake
func SetupBountyRoutes(app *fiber.App, bounties *services.BountyService, submissions *services.SubmissionService) {
	app.Get("/bounties", bounties.ListBounties)
	app.Get("/bounties/:id", bounties.GetBounty)
	app.Get("/submissions", submissions.ListSubmissions)

	// writes require a wallet identity
	walletGroup := app.Group("/", middleware.WalletContextMiddleware())
	walletGroup.Post("/bounties", bounties.CreateBounty)
	walletGroup.Post("/bounties/:id/cancel", bounties.CancelBounty)
	walletGroup.Post("/submissions", submissions.CreateSubmission)
}
