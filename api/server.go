// Package api exposes the sweep engine as an asynchronous REST service:
// tasks are persisted in Redis, background workers execute them, clients
// poll for results.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kdltmhl/mc-ip-scanner/checker"
	"github.com/kdltmhl/mc-ip-scanner/config"
	"github.com/kdltmhl/mc-ip-scanner/logging"
	"github.com/kdltmhl/mc-ip-scanner/scanner"

	_ "github.com/kdltmhl/mc-ip-scanner/docs"
)

const (
	rateLimitRequests = 30
	rateLimitWindow   = time.Minute
)

// @title        mc-ip-scanner API
// @version      1.0
// @description  REST API for asynchronous Minecraft server address sweeps.
// @BasePath     /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

// Run wires dependencies and serves the API until the listener fails.
func Run(cfg config.Config) error {
	logger := logging.Logger()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	store := NewRedisStore(redisClient)

	if cfg.SynPrefilter {
		if err := scanner.InitSynFilter(); err != nil {
			return err
		}
	}

	deps := WorkerDeps{
		Checker: checker.NewJavaChecker(),
		ScanConfig: scanner.Config{
			Workers:          cfg.Workers,
			Jitter:           cfg.ScanDelayDuration(),
			ProbeTimeout:     cfg.ProbeTimeoutDuration(),
			ProgressInterval: cfg.ProgressInterval,
			ICMPGate:         cfg.ICMPGate,
			SynPrefilter:     cfg.SynPrefilter,
		},
	}
	StartWorkers(store, deps, cfg.APIWorkers)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogging(logger))
	router.Use(SecurityHeaders())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	v1.Use(RateLimit(redisClient, rateLimitRequests, rateLimitWindow, logger))
	if cfg.APIKey != "" {
		v1.Use(APIKeyAuth(cfg.APIKey, logger))
	} else {
		logger.Warn("API_KEY not set, serving without authentication")
	}

	server := NewServer(store)
	server.RegisterRoutes(v1)

	logger.Info("starting sweep API server", "addr", cfg.ListenAddr)
	return router.Run(cfg.ListenAddr)
}
