package subscription

import (
	"context"

	"backend-yatube/internal/auth"
	"backend-yatube/internal/author"
	"backend-yatube/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

// AuthorLookup resolves a username to an author.
type AuthorLookup interface {
	ByUsername(ctx context.Context, username string) (author.Author, error)
}

// RegisterRoutes mounts the follow and unfollow actions under the profile
// routes. Both redirect back to the profile.
func RegisterRoutes(r fiber.Router, svc *Service, authors AuthorLookup, authMiddleware fiber.Handler) {
	r.Post("/profile/:username/follow", authMiddleware, func(c *fiber.Ctx) error {
		a, err := authors.ByUsername(c.Context(), c.Params("username"))
		if err != nil {
			return apperr.Fiber(err)
		}
		if err := svc.Follow(c.Context(), auth.UserID(c), a.ID); err != nil {
			return apperr.Fiber(err)
		}
		return c.Redirect("/profile/"+a.Username, fiber.StatusFound)
	})

	r.Post("/profile/:username/unfollow", authMiddleware, func(c *fiber.Ctx) error {
		a, err := authors.ByUsername(c.Context(), c.Params("username"))
		if err != nil {
			return apperr.Fiber(err)
		}
		if err := svc.Unfollow(c.Context(), auth.UserID(c), a.ID); err != nil {
			return apperr.Fiber(err)
		}
		return c.Redirect("/profile/"+a.Username, fiber.StatusFound)
	})
}
