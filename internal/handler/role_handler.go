package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/service"
	"github.com/juancuadra2/erp-lite-backend-sub002/pkg/validator"
)

type RoleHandler struct {
	roleService *service.RoleService
	validator   *validator.Validator
}

func NewRoleHandler(roleService *service.RoleService, validator *validator.Validator) *RoleHandler {
	return &RoleHandler{
		roleService: roleService,
		validator:   validator,
	}
}

type roleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// CreateRole creates a role
// POST /api/v1/admin/roles
func (h *RoleHandler) CreateRole(c *fiber.Ctx) error {
	var req roleRequest
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

	role, err := h.roleService.CreateRole(c.Context(), req.Name, req.Description)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(role)
}

// ListRoles lists all roles
// GET /api/v1/admin/roles
func (h *RoleHandler) ListRoles(c *fiber.Ctx) error {
	roles, err := h.roleService.ListRoles(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(roles)
}

// GetRole returns one role
// GET /api/v1/admin/roles/:id
func (h *RoleHandler) GetRole(c *fiber.Ctx) error {
	roleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid role id",
		})
	}

	role, err := h.roleService.GetRole(c.Context(), roleID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(role)
}

// UpdateRole updates a role
// PUT /api/v1/admin/roles/:id
func (h *RoleHandler) UpdateRole(c *fiber.Ctx) error {
	roleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid role id",
		})
	}

	var req roleRequest
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

	if err := h.roleService.UpdateRole(c.Context(), roleID, req.Name, req.Description); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Role updated",
	})
}

// DeleteRole deletes a role; blocked while users still hold it
// DELETE /api/v1/admin/roles/:id
func (h *RoleHandler) DeleteRole(c *fiber.Ctx) error {
	roleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid role id",
		})
	}

	if err := h.roleService.DeleteRole(c.Context(), roleID); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Role deleted",
	})
}

// GetRolePermissions lists a role's permissions
// GET /api/v1/admin/roles/:id/permissions
func (h *RoleHandler) GetRolePermissions(c *fiber.Ctx) error {
	roleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid role id",
		})
	}

	permissions, err := h.roleService.GetRolePermissions(c.Context(), roleID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(permissions)
}

// AssignRoleToUser grants a role to a user
// POST /api/v1/admin/users/:userId/roles/:roleId
func (h *RoleHandler) AssignRoleToUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user id",
		})
	}
	roleID, err := uuid.Parse(c.Params("roleId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid role id",
		})
	}

	if err := h.roleService.AssignRoleToUser(c.Context(), userID, roleID); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Role assigned",
	})
}

// RemoveRoleFromUser revokes a role from a user
// DELETE /api/v1/admin/users/:userId/roles/:roleId
func (h *RoleHandler) RemoveRoleFromUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user id",
		})
	}
	roleID, err := uuid.Parse(c.Params("roleId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid role id",
		})
	}

	if err := h.roleService.RemoveRoleFromUser(c.Context(), userID, roleID); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Role removed",
	})
}

// GetUserRoles lists a user's roles
// GET /api/v1/admin/users/:userId/roles
func (h *RoleHandler) GetUserRoles(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user id",
		})
	}

	roles, err := h.roleService.GetUserRoles(c.Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(roles)
}
