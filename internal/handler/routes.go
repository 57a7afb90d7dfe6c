package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/handler/middleware"
)

func SetupRoutes(
	app *fiber.App,
	authHandler *AuthHandler,
	userHandler *UserHandler,
	roleHandler *RoleHandler,
	permissionHandler *PermissionHandler,
	healthHandler *HealthHandler,
	authMiddleware fiber.Handler,
	checker middleware.PermissionChecker,
) {
	// Health checks (public)
	app.Get("/health", healthHandler.Health)
	app.Get("/ready", healthHandler.Ready)

	// API v1
	api := app.Group("/api/v1")

	// Auth routes (public, logout needs the access token)
	auth := api.Group("/auth")
	auth.Post("/register", userHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authMiddleware, authHandler.Logout)

	// User routes (protected)
	users := api.Group("/users", authMiddleware)
	users.Get("/me", userHandler.GetMe)
	users.Post("/me/password", userHandler.ChangePassword)

	// Admin routes, each guarded by the permission resolution engine
	admin := api.Group("/admin", authMiddleware)

	roles := admin.Group("/roles")
	roles.Post("/", middleware.RequirePermission(checker, "Role", "CREATE"), roleHandler.CreateRole)
	roles.Get("/", middleware.RequirePermission(checker, "Role", "READ"), roleHandler.ListRoles)
	roles.Get("/:id", middleware.RequirePermission(checker, "Role", "READ"), roleHandler.GetRole)
	roles.Put("/:id", middleware.RequirePermission(checker, "Role", "UPDATE"), roleHandler.UpdateRole)
	roles.Delete("/:id", middleware.RequirePermission(checker, "Role", "DELETE"), roleHandler.DeleteRole)
	roles.Get("/:id/permissions", middleware.RequirePermission(checker, "Role", "READ"), roleHandler.GetRolePermissions)
	roles.Post("/:id/permissions", middleware.RequirePermission(checker, "Role", "UPDATE"), permissionHandler.AssignPermissions)

	permissions := admin.Group("/permissions")
	permissions.Post("/", middleware.RequirePermission(checker, "Permission", "CREATE"), permissionHandler.CreatePermission)
	permissions.Get("/", middleware.RequirePermission(checker, "Permission", "READ"), permissionHandler.ListPermissions)

	adminUsers := admin.Group("/users")
	adminUsers.Post("/:userId/roles", middleware.RequirePermission(checker, "User", "UPDATE"), permissionHandler.AssignRoles)
	adminUsers.Post("/:userId/roles/:roleId", middleware.RequirePermission(checker, "User", "UPDATE"), roleHandler.AssignRoleToUser)
	adminUsers.Delete("/:userId/roles/:roleId", middleware.RequirePermission(checker, "User", "UPDATE"), roleHandler.RemoveRoleFromUser)
	adminUsers.Get("/:userId/roles", middleware.RequirePermission(checker, "User", "READ"), roleHandler.GetUserRoles)
	adminUsers.Post("/:userId/unlock", middleware.RequirePermission(checker, "User", "UPDATE"), userHandler.Unlock)
}
