package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidsage-backend/internal/config"
	"vidsage-backend/internal/database"
	"vidsage-backend/internal/handlers"
	"vidsage-backend/internal/middleware"
	"vidsage-backend/internal/pipeline"
	"vidsage-backend/internal/repository"
	"vidsage-backend/internal/router"
	"vidsage-backend/internal/services"
	"vidsage-backend/internal/websocket"
	"vidsage-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting VidSage Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	videoJobRepo := repository.NewVideoJobRepo(pool)
	questionRepo := repository.NewQuestionRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	youtubeService := services.NewYouTubeService(cfg.MaxVideoDurationSeconds)
	eventPublisher := services.NewEventPublisher(redisClients.PubSub)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth)
	qaService := services.NewQAService(videoJobRepo, questionRepo, geminiService)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	videoHandler := handlers.NewVideoHandler(videoJobRepo, redisClients.Queue)
	questionHandler := handlers.NewQuestionHandler(qaService)

	// ──── Step 6: Start Processing Worker Pool ────
	videoPipeline := pipeline.New(videoJobRepo, youtubeService, geminiService, eventPublisher, cfg.MaxVideoDurationSeconds)
	workerPool := worker.NewPool(redisClients.Queue, videoPipeline, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		videoHandler,
		questionHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ VidSage Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
