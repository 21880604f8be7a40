package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/marense/feedline/internal/config"
	"github.com/marense/feedline/internal/database"
	"github.com/marense/feedline/internal/handler"
	"github.com/marense/feedline/internal/logger"
	"github.com/marense/feedline/internal/middleware"
	"github.com/marense/feedline/internal/queue"
	"github.com/marense/feedline/internal/repository"
	"github.com/marense/feedline/internal/router"
	"github.com/marense/feedline/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer func() { _ = db.Close() }()

	// Redis backs the rate limiter and the response cache. Both degrade to
	// no-ops when it is unreachable at startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable, rate limiting and response cache disabled")
	}

	userRepo := repository.NewUserRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	postRepo := repository.NewPostRepo(db)
	chatRepo := repository.NewChatRepo(db)

	authSvc := service.NewAuthService(cfg, userRepo, sessionRepo, queue.PublishUserSignedUp, log)

	rlCfg := config.LoadRateLimitConfig()
	lim := middleware.NewLimiter(rdb, rlCfg, cfg.JWTSecret, cfg.ClockSkewSec, cfg.TrustProxy, log)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(lim.Global())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc), lim, cfg.JWTSecret, cfg.ClockSkewSec)
	router.RegisterUsers(e, handler.NewUserHandler(userRepo, cfg.AvatarDir, log), lim,
		cfg.JWTSecret, cfg.ClockSkewSec, cfg.AvatarDir)
	router.RegisterPosts(e, handler.NewPostHandler(postRepo, log), cache, cfg.JWTSecret, cfg.ClockSkewSec)
	router.RegisterChat(e, handler.NewChatHandler(chatRepo, log), cfg.JWTSecret, cfg.ClockSkewSec)

	// Signup events land on a durable queue; the consumer reconnects on its
	// own when the broker drops.
	go queue.StartSignupConsumer()

	// Expired session rows are deleted off the request path.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			authSvc.SweepExpiredSessions(ctx)
			cancel()
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
