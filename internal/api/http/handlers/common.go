package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/job-tracker/internal/auth"
	"github.com/spec-kit/job-tracker/internal/domain"
	apperrors "github.com/spec-kit/job-tracker/pkg/util/errorutil"
)

func caller(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("authentication required")
	}
	return identity, nil
}

// parseBody decodes the JSON body with the app's configured decoder.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.App().Config().JSONDecoder(c.Body(), out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}
