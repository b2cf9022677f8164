package cors

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ExtractClientID pulls the OAuth client identifier out of a token endpoint
// request without authenticating it. Basic credentials win over a client_id
// parameter, matching how the token endpoint itself resolves the client.
func ExtractClientID(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if basic, ok := strings.CutPrefix(header, "Basic "); ok {
		decoded, err := base64.StdEncoding.DecodeString(basic)
		if err == nil {
			if id, _, found := strings.Cut(string(decoded), ":"); found && id != "" {
				return id
			}
		}
	}

	if id := c.FormValue("client_id"); id != "" {
		return id
	}

	return c.Query("client_id")
}
