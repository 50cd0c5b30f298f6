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

	"giftcard-service/config"
	"giftcard-service/internal/api"
	"giftcard-service/internal/broker"
	"giftcard-service/internal/registry"
	"giftcard-service/internal/service"
	"giftcard-service/internal/store"
	"giftcard-service/internal/util"
	"giftcard-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting gift card service")

	tp, err := util.InitTracer("giftcard-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	reservations, err := registry.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Reservation.KeyPrefix)
	if err != nil {
		log.Fatalf("Failed to connect to reservation registry: %v", err)
	}
	defer reservations.Close()
	log.Println("Reservation registry connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	allocator := service.NewAllocator(db, reservations, eventPublisher, cfg.Reservation.TTL)
	redemptions := service.NewRedemptionReporter(db, reservations, eventPublisher)
	cardService := service.NewCardService(db, eventPublisher)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	reaper := worker.NewReaper(db, reservations, eventPublisher,
		cfg.Reservation.ReapTimeout, cfg.Reservation.SweepEvery)
	go reaper.Start(workerCtx)

	ingestConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicIngest, cfg.Kafka.ConsumerGroup)
	ingestWorker := worker.NewIngestWorker(ingestConsumer, cardService)
	go func() {
		if err := ingestWorker.Start(workerCtx); err != nil {
			log.Printf("Ingest worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(allocator, redemptions, cardService,
		cfg.Auth.PartnerAPIKey, cfg.Auth.AdminAPIKey)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	reaper.Stop()
	ingestWorker.Stop()

	log.Println("Server exited")
}
