package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// QueryToken token in query name, used when a client cannot set headers
	QueryToken = "auth"

	// LocalToken raw bearer token, set c.locals name
	LocalToken = "BearerToken"
)

// BearerMiddleware extracts the bearer token from the Authorization header or
// the auth query field and stashes it in locals. Verification happens at the
// connection boundary so an invalid token closes the socket rather than
// failing the upgrade.
func BearerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := ""

		authHeader := c.Get(fiber.HeaderAuthorization)
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenStr == "" {
			tokenStr = c.Query(QueryToken)
		}

		c.Locals(LocalToken, tokenStr)
		return c.Next()
	}
}
