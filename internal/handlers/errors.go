package handlers

import (
	"errors"

	"claudygod/internal/repositories"
	"claudygod/internal/services"

	"github.com/gofiber/fiber/v2"
)

var errorStatusMap = []struct {
	err    error
	status int
}{
	{services.ErrValidation, fiber.StatusBadRequest},
	{repositories.ErrNotFound, fiber.StatusNotFound},
	{repositories.ErrInvalidTransition, fiber.StatusConflict},
	{repositories.ErrDuplicateTransaction, fiber.StatusConflict},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized},
}

// statusFor maps a domain error to an HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	for _, e := range errorStatusMap {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error, message string) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}
