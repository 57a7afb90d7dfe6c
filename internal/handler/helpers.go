package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/service"
)

// statusForError maps service-level errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrAccountLocked):
		return fiber.StatusLocked
	case errors.Is(err, service.ErrUserInactive):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRoleNotFound),
		errors.Is(err, service.ErrPermissionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrDuplicateUsername),
		errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrRoleAlreadyExists),
		errors.Is(err, service.ErrRoleInUse):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrInvalidCondition):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}
