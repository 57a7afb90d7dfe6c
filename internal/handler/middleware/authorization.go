package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// PermissionChecker is the authorization decision point backed by the
// permission resolution engine.
type PermissionChecker interface {
	CheckPermissionByUsername(ctx context.Context, username, resource, action string, attrs map[string]any) bool
}

// RequirePermission guards a route with a (resource, action) check. The
// request principal and route parameters become the attribute map the
// permission conditions evaluate against. Fail-closed: a missing
// principal or a failed check both deny.
func RequirePermission(checker PermissionChecker, resource, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, ok := c.Locals("username").(string)
		if !ok || username == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		attrs := requestAttributes(c, username)
		if !checker.CheckPermissionByUsername(c.Context(), username, resource, action, attrs) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: missing required permission",
				"required_permission": fiber.Map{
					"resource": resource,
					"action":   action,
				},
			})
		}

		return c.Next()
	}
}

// requestAttributes assembles the condition context: the principal plus
// any route parameters.
func requestAttributes(c *fiber.Ctx, username string) map[string]any {
	attrs := map[string]any{
		"username": username,
	}
	if roles, ok := c.Locals("roles").([]string); ok {
		attrs["roles"] = roles
	}
	for _, param := range c.Route().Params {
		attrs[param] = c.Params(param)
	}
	return attrs
}
