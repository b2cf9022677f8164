package cors

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const maxAgeSeconds = "3600"

// Middleware returns a handler applying per-client CORS to the OAuth
// endpoints. Exactly one origin is ever reflected back: the requesting one,
// and only when the client registered it.
func Middleware(resolver *Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Path(), "/v1/oauth") {
			return c.Next()
		}

		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}

		c.Vary(fiber.HeaderOrigin)

		if resolver.OriginAllowed(ExtractClientID(c), origin) {
			c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
			c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")
			c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
			c.Set(fiber.HeaderAccessControlMaxAge, maxAgeSeconds)

			requested := c.Get(fiber.HeaderAccessControlRequestHeaders)
			if requested != "" {
				c.Set(fiber.HeaderAccessControlAllowHeaders, requested)
			} else {
				c.Set(fiber.HeaderAccessControlAllowHeaders, "*")
			}
		}

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
