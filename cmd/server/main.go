package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/classmate-app/classmate/internal/config"
	"github.com/classmate-app/classmate/internal/database"
	"github.com/classmate-app/classmate/internal/handler"
	"github.com/classmate-app/classmate/internal/lifecycle"
	"github.com/classmate-app/classmate/internal/middleware"
	"github.com/classmate-app/classmate/internal/queue"
	"github.com/classmate-app/classmate/internal/repository"
	"github.com/classmate-app/classmate/internal/router"
	"github.com/classmate-app/classmate/internal/service"
)

func main() {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)

	rdb := config.NewRedisClient()
	limiter := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	authHandler := handler.NewAuthHandler(cfg, users)
	sessionHandler := handler.NewSessionHandler(sessions, users, cache, service.PublishSessionEvent)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, authHandler, sessionHandler, cfg.JWTSecret, limiter, cache.Middleware())

	sweeper := lifecycle.New(sessions, cfg.SweepInterval)
	sweeper.Start()

	go queue.StartActivityConsumer()

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	// Shut down on SIGINT/SIGTERM: stop taking requests, then stop the
	// sweeper without cutting off an in-flight tick.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	sweeper.Stop()
	if rdb != nil {
		_ = rdb.Close()
	}
}
