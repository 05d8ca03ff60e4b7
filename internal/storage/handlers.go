package storage

import (
	"backend-yatube/internal/auth"
	"backend-yatube/internal/shared/apperr"
	"backend-yatube/internal/shared/request"

	"github.com/gofiber/fiber/v2"
)

type uploadRequest struct {
	FileName string `json:"file_name" validate:"max=255"`
	Kind     string `json:"kind" validate:"omitempty,oneof=image avatar"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		var body uploadRequest
		if err := request.Bind(c, &body); err != nil {
			return apperr.Fiber(err)
		}
		if body.Kind == "" {
			body.Kind = KindImage
		}
		m, err := svc.SaveObject(c.Context(), auth.UserID(c), body.FileName, body.Kind)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})
}
