package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskify/backend/internal/config"
	"taskify/backend/internal/database"
	"taskify/backend/internal/handlers"
	"taskify/backend/internal/logging"
	"taskify/backend/internal/middleware"
	"taskify/backend/internal/monitoring"
	"taskify/backend/internal/repositories"
	"taskify/backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Application holds all application dependencies and state
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *database.DatabasePool
	Redis  *redis.Client
	Health *monitoring.HealthChecker
	Router *gin.Engine
	Server *http.Server

	Users    repositories.UserRepository
	Sessions repositories.SessionRepository
	Tasks    repositories.TaskRepository

	AuthService services.AuthService
	TaskService services.TaskService
	Guard       *services.SessionGuard
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize application: %v", err)
	}

	app.setupRoutes()
	app.startServer()
}

func initializeApplication(cfg *config.Config) (*Application, error) {
	logger, err := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("logger setup failed: %w", err)
	}
	slog.SetDefault(logger)

	app := &Application{
		Config: cfg,
		Logger: logger,
		Health: monitoring.NewHealthChecker(),
	}

	log.Println("🚀 Initializing Taskify Backend...")
	log.Printf("📋 Environment: %s", cfg.Server.Environment)

	if err := app.initStorage(); err != nil {
		app.cleanup()
		return nil, err
	}
	if err := app.initSessions(); err != nil {
		app.cleanup()
		return nil, err
	}

	hasher, err := services.NewPasswordHasher(cfg.Auth.PasswordHasher, cfg.Auth.BCryptCost)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("password hasher setup failed: %w", err)
	}

	app.Guard = services.NewSessionGuard(app.Users, app.Sessions, logger)
	app.AuthService = services.NewAuthService(app.Users, app.Sessions, hasher, app.Guard, logger)
	app.TaskService = services.NewTaskService(app.Tasks)

	log.Println("✅ All services initialized")

	return app, nil
}

func (app *Application) initStorage() error {
	cfg := app.Config

	if !cfg.UsesDatabase() {
		app.Users = repositories.NewMemoryUserRepository()
		app.Tasks = repositories.NewMemoryTaskRepository()
		log.Println("✅ In-memory storage initialized")
		return nil
	}

	pool, err := database.NewDatabasePool(database.PoolConfigFrom(cfg))
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	app.DB = pool
	app.Health.Register("database", pool.Health)
	log.Printf("✅ Database connected (%s)", cfg.Storage.Driver)

	if cfg.Storage.AutoMigrate {
		if err := repositories.Migrate(pool.DB); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
		log.Println("✅ Database schema migrated")
	}

	app.Users = repositories.NewGormUserRepository(pool.DB)
	app.Tasks = repositories.NewGormTaskRepository(pool.DB)
	return nil
}

func (app *Application) initSessions() error {
	cfg := app.Config

	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("redis connection failed: %w", err)
		}
		app.Redis = client
		app.Health.Register("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		app.Sessions = repositories.NewRedisSessionRepository(client, cfg.Session.KeyPrefix)
		log.Println("✅ Redis session store connected")
	case config.SessionStoreDatabase:
		app.Sessions = repositories.NewGormSessionRepository(app.DB.DB)
		log.Println("✅ Database session store initialized")
	default:
		app.Sessions = repositories.NewMemorySessionRepository()
		log.Println("✅ In-memory session store initialized")
	}
	return nil
}

func (app *Application) setupRoutes() {
	r := gin.New()

	// metrics and request logs sit outside recovery so a panic is counted as a 500
	r.Use(monitoring.MetricsMiddleware())
	r.Use(middleware.RequestLogger(app.Logger))
	r.Use(middleware.RecoveryWithLog(app.Logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     app.Config.Server.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health and monitoring endpoints (no auth required)
	r.GET("/health", app.Health.HealthHandler())
	r.GET("/ready", app.Health.ReadinessHandler())
	r.GET("/metrics", monitoring.MetricsHandler())
	if app.DB != nil {
		r.GET("/metrics/database", func(c *gin.Context) {
			c.JSON(http.StatusOK, app.DB.Stats())
		})
	}

	sessionAuth := middleware.SessionAuth(app.Guard)

	authHandler := handlers.NewAuthHandler(app.AuthService, app.Logger)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/logout", authHandler.Logout)
		authRoutes.GET("/me", authHandler.Me)
		authRoutes.GET("/sessions", sessionAuth, authHandler.Sessions)
	}

	taskHandler := handlers.NewTaskHandler(app.TaskService)
	taskRoutes := r.Group("/tasks", sessionAuth)
	{
		taskRoutes.GET("", taskHandler.GetTasks)
		taskRoutes.POST("", taskHandler.CreateTask)
		taskRoutes.GET("/:id", taskHandler.GetTaskByID)
		taskRoutes.PUT("/:id", taskHandler.UpdateTask)
		taskRoutes.DELETE("/:id", taskHandler.DeleteTask)
		taskRoutes.PATCH("/:id/complete", taskHandler.ToggleComplete)
	}

	app.Router = r
}

func (app *Application) startServer() {
	addr := app.Config.GetServerAddr()

	app.Server = &http.Server{
		Addr:         addr,
		Handler:      app.Router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("🛑 Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := app.Server.Shutdown(ctx); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}

		app.cleanup()
		log.Println("✅ Server stopped gracefully")
	}()

	log.Printf("🚀 Server starting on %s", addr)
	log.Printf("📊 Metrics available at http://%s/metrics", addr)
	log.Printf("💚 Health check at http://%s/health", addr)

	if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("❌ Server failed to start: %v", err)
	}
	<-done
}

func (app *Application) cleanup() {
	log.Println("🧹 Cleaning up resources...")

	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			log.Printf("⚠️  Error closing Redis: %v", err)
		}
	}

	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			log.Printf("⚠️  Error closing database: %v", err)
		}
	}

	log.Println("✅ Cleanup complete")
}
