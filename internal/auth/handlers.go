package auth

import (
	"backend-yatube/internal/shared/apperr"
	"backend-yatube/internal/shared/request"

	"github.com/gofiber/fiber/v2"
)

type handlers struct {
	svc *Service
}

// RegisterRoutes mounts account and token endpoints. None of them need a
// token except verify, which checks the one it is given.
func RegisterRoutes(r fiber.Router, svc *Service) {
	h := handlers{svc: svc}
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Get("/jwt/verify", h.verify)
}

func (h handlers) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := request.Bind(c, &req); err != nil {
		return apperr.Fiber(err)
	}
	u, tokens, err := h.svc.Register(c.Context(), req)
	if err != nil {
		return apperr.Fiber(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": u, "tokens": tokens})
}

func (h handlers) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := request.Bind(c, &req); err != nil {
		return apperr.Fiber(err)
	}
	_, tokens, err := h.svc.Login(c.Context(), req)
	if err != nil {
		return apperr.Fiber(err)
	}
	return c.JSON(tokens)
}

// refresh trades a stored refresh token for a new pair.
func (h handlers) refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := request.Bind(c, &req); err != nil {
		return apperr.Fiber(err)
	}
	userID, err := h.svc.ValidateRefreshToken(c.Context(), req.RefreshToken)
	if err != nil {
		return apperr.Fiber(err)
	}
	tokens, err := h.svc.GenerateTokens(c.Context(), userID)
	if err != nil {
		return apperr.Fiber(err)
	}
	return c.JSON(tokens)
}

func (h handlers) verify(c *fiber.Ctx) error {
	token := parseBearer(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
	}
	userID, err := h.svc.ValidateAccessToken(token)
	if err != nil {
		return apperr.Fiber(err)
	}
	return c.JSON(fiber.Map{"user_id": userID})
}
