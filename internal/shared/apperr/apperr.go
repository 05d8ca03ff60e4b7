// Package apperr defines the request-scoped failure classes shared by the
// services and their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Status returns the HTTP status code for err.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// Fiber converts err into a *fiber.Error carrying the mapped status.
// Internal errors keep their message so the recover/logger middleware
// can report them.
func Fiber(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	return fiber.NewError(Status(err), strings.TrimSpace(err.Error()))
}
