package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"group-chat/internal/config"
	"group-chat/internal/db"
	apihttp "group-chat/internal/http"
	"group-chat/internal/repository"
	"group-chat/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	feedSvc := service.NewFeedService(messageRepo)
	presenceSvc := service.NewPresenceService(logger, userRepo, messageRepo, cfg.StaleWindow)
	uploadSvc := service.NewUploadService(logger, cfg.UploadDir)
	userSvc := service.NewUserService(logger, userRepo)
	jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)

	var rateLimiter service.SendRateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			rateLimiter = service.NewRedisSendRateLimiter(redisClient, time.Minute, 30)
		}
		cancelPing()
	}

	// Sweep de presencia programado, desacoplado de los requests.
	go presenceSvc.RunSweeper(ctx, cfg.SweepInterval)

	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc)
	feedHandler := apihttp.NewFeedHandler(logger, feedSvc, presenceSvc, rateLimiter)
	uploadHandler := apihttp.NewUploadHandler(logger, uploadSvc)
	healthHandler := apihttp.NewHealthHandler(pool)
	router := apihttp.NewRouter(logger, userHandler, feedHandler, uploadHandler, healthHandler, apihttp.JWTAuthMiddleware(jwtSvc))

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
