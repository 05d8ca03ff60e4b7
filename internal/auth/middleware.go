package auth

import (
	"strings"

	"backend-yatube/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

const localsUserID = "user_id"

// JWTMiddleware validates bearer tokens and stores the user id in locals.
// Requests without a valid token are rejected.
func JWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := parseBearer(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := parseClaims(token, secretBytes)
		if err != nil {
			return apperr.Fiber(err)
		}

		c.Locals(localsUserID, claims.UserID)
		return c.Next()
	}
}

// OptionalJWTMiddleware identifies the viewer when a valid bearer token is
// present and lets anonymous requests through otherwise.
func OptionalJWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		if token := parseBearer(c.Get("Authorization")); token != "" {
			if claims, err := parseClaims(token, secretBytes); err == nil {
				c.Locals(localsUserID, claims.UserID)
			}
		}
		return c.Next()
	}
}

// UserID returns the authenticated viewer, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsUserID).(string)
	return id
}

func parseBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
