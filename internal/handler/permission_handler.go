package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/service"
	"github.com/juancuadra2/erp-lite-backend-sub002/pkg/validator"
)

type PermissionHandler struct {
	permissionService *service.PermissionService
	validator         *validator.Validator
}

func NewPermissionHandler(permissionService *service.PermissionService, validator *validator.Validator) *PermissionHandler {
	return &PermissionHandler{
		permissionService: permissionService,
		validator:         validator,
	}
}

// CreatePermission creates a permission; the condition must compile
// POST /api/v1/admin/permissions
func (h *PermissionHandler) CreatePermission(c *fiber.Ctx) error {
	var req service.CreatePermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	permission, err := h.permissionService.CreatePermission(c.Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(permission)
}

// ListPermissions lists all permissions
// GET /api/v1/admin/permissions
func (h *PermissionHandler) ListPermissions(c *fiber.Ctx) error {
	permissions, err := h.permissionService.ListPermissions(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(permissions)
}

// AssignPermissions attaches permissions to a role
// POST /api/v1/admin/roles/:id/permissions
func (h *PermissionHandler) AssignPermissions(c *fiber.Ctx) error {
	roleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid role id",
		})
	}

	var req struct {
		PermissionIDs []uuid.UUID `json:"permission_ids" validate:"required,min=1"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.permissionService.AssignPermissions(c.Context(), roleID, req.PermissionIDs); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Permissions assigned",
	})
}

// AssignRoles attaches roles to a user
// POST /api/v1/admin/users/:userId/roles
func (h *PermissionHandler) AssignRoles(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user id",
		})
	}

	var req struct {
		RoleIDs []uuid.UUID `json:"role_ids" validate:"required,min=1"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.permissionService.AssignRoles(c.Context(), userID, req.RoleIDs); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Roles assigned",
	})
}
