package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/juancuadra2/erp-lite-backend-sub002/internal/config"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/handler"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/handler/middleware"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/repository/postgres"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/service"
	"github.com/juancuadra2/erp-lite-backend-sub002/pkg/blacklist"
	"github.com/juancuadra2/erp-lite-backend-sub002/pkg/condition"
	"github.com/juancuadra2/erp-lite-backend-sub002/pkg/email"
	"github.com/juancuadra2/erp-lite-backend-sub002/pkg/jwt"
	"github.com/juancuadra2/erp-lite-backend-sub002/pkg/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
		}
	}()
	log.Println("✓ Database connection established")

	redisClient, err := initRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}()
	log.Println("✓ Redis connection established")

	privateKey, publicKey, err := loadRSAKeys(cfg)
	if err != nil {
		log.Fatalf("Failed to load RSA keys: %v", err)
	}
	log.Println("✓ RSA keys loaded successfully")

	validate := validator.NewValidator()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	roleRepo := postgres.NewRoleRepository(db)
	permRepo := postgres.NewPermissionRepository(db)
	refreshRepo := postgres.NewRefreshTokenRepository(db)

	tokenService, err := jwt.NewTokenService(
		privateKey,
		publicKey,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.Issuer,
	)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	tokenBlacklist := blacklist.NewTokenBlacklist(redisClient)
	evaluator := condition.NewEvaluator(cfg.Auth.ConditionTimeout)

	// Services
	authService := service.NewAuthService(userRepo, roleRepo, refreshRepo, tokenService, tokenBlacklist, cfg)
	userService := service.NewUserService(userRepo, cfg)
	roleService := service.NewRoleService(roleRepo, userRepo)
	permissionService := service.NewPermissionService(permRepo, roleRepo, userRepo, evaluator)

	// Assignment changes invalidate sessions through the auth service
	roleService.SetSessionRevoker(authService)
	permissionService.SetSessionRevoker(authService)

	if cfg.Email.Enabled {
		authService.SetNotifier(email.NewNotifier(cfg.Email.APIKey, cfg.Email.From))
		log.Println("✓ Security notification emails enabled")
	} else {
		log.Println("ℹ Security notification emails disabled (set EMAIL_ENABLED=true to enable)")
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authService, validate)
	userHandler := handler.NewUserHandler(userService, authService, validate)
	roleHandler := handler.NewRoleHandler(roleService, validate)
	permissionHandler := handler.NewPermissionHandler(permissionService, validate)
	healthHandler := handler.NewHealthHandler()

	app := fiber.New(fiber.Config{
		AppName:      "ERP Auth Service v1.0",
		ErrorHandler: customErrorHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.CORSMiddleware())

	authMiddleware := middleware.AuthMiddleware(tokenService, tokenBlacklist)

	handler.SetupRoutes(
		app,
		authHandler,
		userHandler,
		roleHandler,
		permissionHandler,
		healthHandler,
		authMiddleware,
		permissionService,
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("🚀 Server starting on http://localhost%s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		if err := app.Listen(addr); err != nil {
			log.Printf("❌ Server failed to start: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("⏳ Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✓ Server stopped")
}

// initDB initializes PostgreSQL database connection with retry logic
func initDB(cfg *config.Config) (*sqlx.DB, error) {
	dsn := cfg.Database.DSN()

	var db *sqlx.DB
	var err error

	maxRetries := 5
	retryInterval := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			break
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Error closing database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// initRedis initializes Redis client and verifies connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			log.Printf("Error closing Redis after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// loadRSAKeys loads RSA private and public keys from files
func loadRSAKeys(cfg *config.Config) ([]byte, []byte, error) {
	privateKey, err := os.ReadFile(cfg.JWT.PrivateKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	publicKey, err := os.ReadFile(cfg.JWT.PublicKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read public key file: %w", err)
	}

	if len(privateKey) == 0 || len(publicKey) == 0 {
		return nil, nil, fmt.Errorf("RSA key file is empty")
	}

	return privateKey, publicKey, nil
}

// customErrorHandler handles Fiber errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	log.Printf("Error handling request [%s %s]: %v", c.Method(), c.Path(), err)

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
