package app

import (
	"context"
	"database/sql"
	"go-auth-api/config"
	"go-auth-api/db"
	"go-auth-api/handler"
	"go-auth-api/logger"
	"go-auth-api/repository"
	"go-auth-api/router"
	"go-auth-api/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	var cache service.ICacheClient
	redisClient, err := db.ConnectRedis()
	if err != nil {
		logger.Log.WithError(err).Warn("Redis unavailable; user list caching disabled")
	} else {
		cache = redisClient
		defer redisClient.Close()
	}

	r := buildRouter(database, cache)

	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}

// buildRouter wires repositories, services and handlers together. The
// *sql.DB handle is passed explicitly down every layer; there is no
// process-wide pool singleton.
func buildRouter(database *sql.DB, cache service.ICacheClient) http.Handler {
	argonCfg := config.AppConfig.Auth.Argon2
	passwordSvc := service.NewPasswordService(argonCfg.MemoryKB, argonCfg.Time, argonCfg.Parallelism)

	userRepo := repository.NewUserRepository(database)
	tokenRepo := repository.NewTokenRepository(database)

	userService := service.NewUserService(userRepo, passwordSvc, cache)
	tokenService := service.NewTokenService(database, tokenRepo, config.TokenTTL())

	userHandler := handler.NewUserHandler(userService)
	tokenHandler := handler.NewTokenHandler(tokenService, userService)

	return router.NewRouter(userHandler, tokenHandler, tokenService)
}

// TestApp exposes the wired router and its database handle to integration
// tests.
type TestApp struct {
	DB     *sql.DB
	Router http.Handler
}

func NewTestApp(database *sql.DB, redisClient *redis.Client) *TestApp {
	var cache service.ICacheClient
	if redisClient != nil {
		cache = redisClient
	}
	return &TestApp{
		DB:     database,
		Router: buildRouter(database, cache),
	}
}
