// middleware/auth.go
package middleware

import (
	"strings"

	"github.com/decred/slog"
	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the auth middlewares.
const (
	UserIDKey    = "user_id"
	UserRolesKey = "user_roles"
	DeviceIDKey  = "device_id"
)

const AdminRole = "admin"

// UserContextMiddleware extracts user identity and roles set by the gateway.
// Routes under /s/ require X-User-ID.
func UserContextMiddleware(log slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))

		path := c.Path()
		if strings.HasPrefix(path, "/s/") && userID == "" {
			log.Warnf("❌ [USER_CTX] X-User-ID required but missing on secured route: %s", path)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID: request must come through gateway with auth context",
			})
		}

		roles := ParseRoles(c.Get("X-User-Roles"))
		c.Locals(UserIDKey, userID)
		c.Locals(UserRolesKey, roles)

		log.Debugf("👤 [USER_CTX] UserID=%s, Roles=%v | Path: %s", userID, roles, path)
		return c.Next()
	}
}

// ParseRoles splits a comma-separated role header.
func ParseRoles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// UserID returns the caller set by UserContextMiddleware or SSEAuthMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}

// IsAdmin reports whether the caller carries the admin role.
func IsAdmin(c *fiber.Ctx) bool {
	roles, _ := c.Locals(UserRolesKey).([]string)
	for _, r := range roles {
		if strings.EqualFold(r, AdminRole) {
			return true
		}
	}
	return false
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin(log slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsAdmin(c) {
			log.Warnf("🚫 [ADMIN] %q denied on %s", UserID(c), c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin role required",
			})
		}
		return c.Next()
	}
}
