// Package request decodes and validates inbound payloads.
package request

import (
	"errors"
	"fmt"
	"strings"

	"backend-yatube/internal/shared/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Bind parses the request body into dst and validates its struct tags.
// Failures are reported as apperr.ErrValidation.
func Bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fmt.Errorf("%w: invalid payload", apperr.ErrValidation)
	}
	return Validate(dst)
}

func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %s", apperr.ErrValidation, err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", apperr.ErrValidation, strings.Join(fields, ", "))
}
