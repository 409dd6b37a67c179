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

	"learningdash-backend/internal/adapters"
	"learningdash-backend/internal/config"
	"learningdash-backend/internal/database"
	"learningdash-backend/internal/handlers"
	"learningdash-backend/internal/middleware"
	"learningdash-backend/internal/repository"
	"learningdash-backend/internal/router"
	"learningdash-backend/internal/services"
	"learningdash-backend/internal/websocket"
	"learningdash-backend/internal/worker"
)

func main() {
	log.Println("Starting LearningDash Backend...")

	cfg := config.Load()

	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("PostgreSQL connected")

	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("Redis connected")

	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
	log.Println("Database migrations applied")

	assetRepo := repository.NewAssetRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// Enrichment is optional; without an API key the pipeline stops at
	// COMPLETED and assets simply have no summary.
	var enricher services.Enricher
	if cfg.GeminiAPIKey != "" {
		geminiEnricher, err := services.NewGeminiEnricher(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
		if err != nil {
			log.Fatalf("Gemini client initialization failed: %v", err)
		}
		defer geminiEnricher.Close()
		enricher = geminiEnricher
		log.Println("Gemini enricher initialized")
	} else {
		log.Println("GEMINI_API_KEY not set, AI enrichment disabled")
	}

	registry := adapters.NewDefaultRegistry()
	queue := worker.NewRedisQueue(redisClients.Queue)
	ingestService := services.NewIngestService(assetRepo, jobRepo, queue)

	assetHandler := handlers.NewAssetHandler(ingestService)
	sourcesHandler := handlers.NewSourcesHandler()

	workerPool := worker.NewPool(
		redisClients.Queue,
		registry,
		enricher,
		assetRepo,
		jobRepo,
		queue,
		worker.NewRedisEvents(redisClients.Queue),
		cfg.WorkerCount,
		cfg.AdapterTimeout,
		cfg.EnrichTimeout,
	)
	workerPool.Start()

	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("WebSocket hub started")

	var jwtAuth *middleware.JWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth = middleware.NewJWTAuth(cfg.JWTSecret)
	}

	r := router.New(jwtAuth, assetHandler, sourcesHandler, wsHub, cfg.FrontendURL)

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

	log.Printf("LearningDash Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
