package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/domain"
)

// TokenValidator verifies an access token and returns its claims.
type TokenValidator interface {
	Validate(tokenString string) (*domain.Claims, error)
}

// BlacklistChecker answers whether a token or its owner has been revoked
// since issuance.
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	IsUserBlacklisted(ctx context.Context, username string, tokenIssuedAt time.Time) (bool, error)
}

// AuthMiddleware decodes and validates the bearer token, then attaches
// the principal (subject, roles, permissions) to the request context for
// downstream handlers.
func AuthMiddleware(validator TokenValidator, checker BlacklistChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization header",
			})
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid authorization header format",
			})
		}
		token := parts[1]

		claims, err := validator.Validate(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		blacklisted, err := checker.IsBlacklisted(c.Context(), token)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to verify token status",
			})
		}
		if blacklisted {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "token has been revoked",
			})
		}

		if claims.IssuedAt != nil {
			stale, err := checker.IsUserBlacklisted(c.Context(), claims.Subject, claims.IssuedAt.Time)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to verify token status",
				})
			}
			if stale {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "token invalidated by a security event",
				})
			}
		}

		c.Locals("username", claims.Subject)
		c.Locals("roles", claims.Roles)
		c.Locals("permissions", claims.Permissions)
		c.Locals("claims", claims)
		c.Locals("token", token)

		return c.Next()
	}
}
