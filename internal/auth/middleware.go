package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/maxdaylight/HomelabWiki/internal/db/models"
	"github.com/maxdaylight/HomelabWiki/internal/web/session"
)

const localsUserKey = "user"

// CurrentUser returns the authenticated user for the request, or nil.
// The user is the snapshot cached in the session at login time.
func CurrentUser(c *fiber.Ctx) *models.User {
	if u, ok := c.Locals(localsUserKey).(*models.User); ok {
		return u
	}

	sessionID := c.Cookies(session.CookieName)
	if sessionID == "" {
		return nil
	}

	sessionData := new(session.Data)
	if err := sessionData.Read(sessionID); err != nil {
		return nil
	}

	if sessionData.User.ID == 0 {
		return nil
	}

	c.Locals(localsUserKey, &sessionData.User)

	return &sessionData.User
}

// RequireAuth creates Fiber middleware that rejects unauthenticated requests.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		return c.Next()
	}
}

// RequirePermission creates Fiber middleware that requires a specific
// permission flag on the authenticated user.
func RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		if !user.HasPermission(permission) {
			log.Warn().Str("username", user.Username).Str("permission", permission).
				Msg("user lacks required permission")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Permission denied"})
		}

		return c.Next()
	}
}
