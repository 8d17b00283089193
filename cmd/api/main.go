package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mihir369/legal-arena-ai/internal/arena"
	"github.com/Mihir369/legal-arena-ai/internal/config"
	"github.com/Mihir369/legal-arena-ai/internal/handlers"
	"github.com/Mihir369/legal-arena-ai/internal/logger"
	"github.com/Mihir369/legal-arena-ai/internal/middleware"
	"github.com/Mihir369/legal-arena-ai/internal/services"
	"github.com/Mihir369/legal-arena-ai/internal/services/events"
	"github.com/Mihir369/legal-arena-ai/pkg/script"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	s, err := script.LoadOrDefault(cfg.ScriptPath)
	if err != nil {
		log.Error("Failed to load battle script", "error", err, "path", cfg.ScriptPath)
		os.Exit(1)
	}

	log.Info("Starting Legal Arena API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"script", s.Name,
		"rounds", s.Rounds(),
		"playback_rate", cfg.PlaybackRate,
		"narration", cfg.NarrationEnabled)

	// Event streaming is optional; without Redis the battle runs locally only.
	var (
		cache       services.Cache
		redisSvc    *services.RedisService
		broadcaster *events.Broadcaster
		publisher   arena.Publisher
	)
	if cfg.RedisURL != "" {
		redisSvc, err = services.NewRedisService(cfg.RedisURL, log)
		if err != nil {
			log.Error("Invalid Redis configuration", "error", err)
			os.Exit(1)
		}
		redisCtx, redisCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := redisSvc.WaitForConnection(redisCtx); err != nil {
			redisCancel()
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		redisCancel()
		log.Info("Redis connection established successfully")

		cache = redisSvc
		broadcaster = events.NewBroadcaster(redisSvc.Client(), redisSvc, log)
		publisher = broadcaster
	} else {
		log.Warn("REDIS_URL not set, event streaming disabled")
	}

	a, err := arena.New(arena.ConfigFrom(cfg, s), publisher, log)
	if err != nil {
		log.Error("Failed to create arena", "error", err)
		os.Exit(1)
	}

	arenaCtx, stopArena := context.WithCancel(context.Background())
	arenaDone := make(chan error, 1)
	go func() {
		arenaDone <- a.Run(arenaCtx)
	}()

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(cache, a, log))

	battleHandler := handlers.NewBattleHandler(a, log)
	mux.Handle("/v1/battle", battleHandler)
	mux.Handle("/v1/battle/", battleHandler)
	mux.Handle("/v1/battle/transcript", handlers.NewTranscriptHandler(a, log))

	if redisSvc != nil {
		eventsHandler := handlers.NewEventsHandler(redisSvc.Client(), broadcaster, a.ID(), log)
		mux.Handle("/v1/events/battle", eventsHandler)
		mux.Handle("/v1/events/battle/", eventsHandler)
	}

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the SSE endpoint streams for as long as the client stays
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr, "battle_id", a.ID().String())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	stopArena()
	if err := <-arenaDone; err != nil {
		log.Error("Arena stopped with error", "error", err)
	}

	if redisSvc != nil {
		if err := redisSvc.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}

	log.Info("Server exited")
}
