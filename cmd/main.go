package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"

	"chat-relay/internal/api"
	"chat-relay/internal/auth"
	"chat-relay/internal/config"
	"chat-relay/internal/messaging"
	"chat-relay/internal/metrics"
	"chat-relay/internal/queue"
	"chat-relay/internal/service"
	"chat-relay/internal/storage"
	"chat-relay/internal/tenant"
)

// @title Chat Relay API
// @version 1.0
// @description Password-gated multi-tenant chat relay with an offline write queue
// @BasePath /
// @schemes http
func main() {
	// Init Metrics
	metrics.Init()

	// Load Configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded")

	// Setup session secret
	auth.SetSecret(cfg.Auth.SessionSecret)

	// Tenant allow-list
	registry := tenant.NewRegistry(cfg.Tenants)

	// Durable store adapter (lazy: starts disconnected)
	store, err := storage.NewStore(cfg.Database.URL, registry, cfg.Store.OpTimeout)
	if err != nil {
		log.Fatalf("Failed to init store: %v", err)
	}
	defer store.Close()

	// Offline queue manager
	queueMgr := queue.NewManager(store, cfg.Queue.WarnDepth)

	// Message/media service
	svc := service.NewService(store, queueMgr)

	// Optional RabbitMQ event fan-out
	var rabbit *messaging.Client
	if cfg.RabbitMQ.URL != "" {
		rabbit, err = messaging.NewClient(cfg.RabbitMQ.URL)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rabbit.Close()

		for _, id := range registry.IDs() {
			if err := rabbit.DeclareQueue(id); err != nil {
				log.Fatalf("Failed to declare event queue for tenant %s: %v", id, err)
			}
		}
		queueMgr.SetPublisher(rabbit)
		svc.SetPublisher(rabbit)
		log.Println("RabbitMQ connected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// First connection attempt; failure is fine, the relay accepts writes
	// into the queue until the store comes up.
	if err := store.Connect(ctx); err != nil {
		log.Printf("⚠️ Store unreachable at startup, queueing writes: %v", err)
	}

	// Periodic reconnect-or-drain job. Fixed interval, no backoff.
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Store.ReconnectInterval),
		gocron.NewTask(func() {
			if !store.Connected() {
				if err := store.Connect(ctx); err != nil {
					log.Printf("[Store] Reconnect failed: %v", err)
					return
				}
			}
			queueMgr.DrainAll(ctx)
		}),
		gocron.WithName("reconnect-drain"),
	)
	if err != nil {
		log.Fatalf("Failed to schedule reconnect job: %v", err)
	}
	scheduler.Start()

	// Init API
	apiHandler := api.NewAPI(svc, store, queueMgr, registry, cfg)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: apiHandler.Router(),
	}

	go func() {
		log.Printf("🚀 Starting relay on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done() // Wait for interrupt signal
	log.Println("Shutdown initiated...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}

	log.Println("Graceful shutdown complete")
}
