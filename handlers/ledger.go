// handlers/ledger.go
package handlers

import (
	"github.com/Tarif-dev/Forge/services"

	"github.com/gofiber/fiber/v2"
)

// SetupLedgerRoutes wires the read-only views over payments, spend,
// reputation and the audit trail
func SetupLedgerRoutes(app *fiber.App, ledger *services.LedgerService) {
	app.Get("/payments", ledger.ListPayments)
	app.Get("/agentpay/payments", ledger.ListAgentPayments)
	app.Get("/agentpay/:agentId/stats", ledger.AgentUsageStats)
	app.Get("/activities", ledger.ListActivities)
	app.Get("/reputation/leaderboard", ledger.ReputationLeaderboard)
	app.Get("/users/:wallet", ledger.GetUserByWallet)
}
