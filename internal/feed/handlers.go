package feed

import (
	"context"
	"encoding/json"

	"backend-yatube/internal/auth"
	"backend-yatube/internal/cache"
	"backend-yatube/internal/pagination"
	"backend-yatube/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// IndexKey holds the first page of the global feed.
const IndexKey = "feed:index"

type handler struct {
	composer *Composer
	cache    cache.Cache
	log      *zap.Logger
}

func RegisterRoutes(r fiber.Router, composer *Composer, c cache.Cache, log *zap.Logger, optionalAuth, requireAuth fiber.Handler) {
	h := &handler{composer: composer, cache: c, log: log}

	r.Get("/", h.index)

	r.Get("/group/:slug", func(c *fiber.Ctx) error {
		f, err := composer.Group(c.Context(), c.Params("slug"), c.Query("page"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(f)
	})

	r.Get("/profile/:username", optionalAuth, func(c *fiber.Ctx) error {
		f, err := composer.Author(c.Context(), c.Params("username"), auth.UserID(c), c.Query("page"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(f)
	})

	r.Get("/follow", requireAuth, func(c *fiber.Ctx) error {
		f, err := composer.Following(c.Context(), auth.UserID(c), c.Query("page"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(f)
	})
}

// index serves the global feed. The first page is served from the cache and
// may lag behind writes by up to one TTL; later pages are always fresh.
func (h *handler) index(c *fiber.Ctx) error {
	requested := c.Query("page")
	if pagination.ParseRequested(requested) != 1 {
		f, err := h.composer.Global(c.Context(), requested)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(f)
	}

	payload, hit, err := cache.Remember(c.Context(), h.cache, IndexKey, func(ctx context.Context) ([]byte, error) {
		f, err := h.composer.Global(ctx, "1")
		if err != nil {
			return nil, err
		}
		return json.Marshal(f)
	})
	if payload == nil {
		return apperr.Fiber(err)
	}
	if err != nil {
		h.log.Warn("feed cache unavailable", zap.String("key", IndexKey), zap.Error(err))
	}

	if hit {
		c.Set("X-Cache", "HIT")
	} else {
		c.Set("X-Cache", "MISS")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}
