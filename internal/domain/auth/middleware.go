package auth

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Voralis/grantly/internal/utils"
)

// IdentityKey is the locals key under which the authenticated identity is
// stored for downstream handlers.
const IdentityKey = "identity"

// Middleware returns a handler that requires a valid bearer access token and
// stores the resulting Identity in the request locals.
func Middleware(verifier *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return utils.ErrorResponse(c, utils.ErrUnauthorized)
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return utils.ErrorResponse(c, utils.ErrUnauthorized)
		}

		claims, err := verifier.Verify(raw)
		if err != nil {
			slog.Debug("Rejected access token", "error", err)
			return utils.ErrorResponse(c, utils.ErrUnauthorized)
		}

		userID, err := uuid.Parse(claims.Subject())
		if err != nil {
			slog.Debug("Access token subject is not a user id", "subject", claims.Subject())
			return utils.ErrorResponse(c, utils.ErrUnauthorized)
		}

		c.Locals(IdentityKey, &Identity{UserID: userID})
		return c.Next()
	}
}

// GetIdentity returns the identity stored by Middleware, or nil when the
// request was not authenticated.
func GetIdentity(c *fiber.Ctx) *Identity {
	identity, ok := c.Locals(IdentityKey).(*Identity)
	if !ok {
		return nil
	}
	return identity
}
