// middleware/sse_auth.go
package middleware

import (
	"context"
	"strings"

	"tournament-wallet/services"

	"github.com/decred/slog"
	"github.com/gofiber/fiber/v2"
)

// TokenValidator checks an access token with the identity provider.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken, deviceID string) (*services.ValidateResponse, error)
}

// SSEAuthMiddleware validates `token` and `device_id` from query params.
// Browsers cannot set headers on EventSource, so streams authenticate here
// instead of through the gateway headers.
func SSEAuthMiddleware(validator TokenValidator, log slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		deviceID := strings.TrimSpace(c.Query("device_id"))

		if accessToken == "" || deviceID == "" {
			log.Warnf("[SSEAuth] ❌ Missing query params on %s", c.Path())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or device_id in query",
			})
		}

		resp, err := validator.ValidateToken(c.UserContext(), accessToken, deviceID)
		if err != nil {
			log.Warnf("[SSEAuth] ❌ Validation failed for device %s: %v", deviceID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals(UserIDKey, resp.UserID)
		c.Locals(DeviceIDKey, resp.DeviceID)
		c.Locals(UserRolesKey, resp.Roles)

		log.Debugf("[SSEAuth] ✅ Authenticated user %s (device %s)", resp.UserID, resp.DeviceID)
		return c.Next()
	}
}
