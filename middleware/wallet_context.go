// middleware/wallet_context.go
package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// WalletContextMiddleware extracts the caller's wallet address. The platform
// has no accounts or sessions; an opaque wallet address is the only identity
// a request carries.
func WalletContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		wallet := c.Get("X-Wallet-Address")
		if wallet == "" {
			log.Printf("[WALLET_CTX] missing X-Wallet-Address on %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Wallet-Address header",
			})
		}

		c.Locals("wallet_address", wallet)
		return c.Next()
	}
}
