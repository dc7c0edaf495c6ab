package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kgraph-backend/internal/events"
	"kgraph-backend/internal/handlers"
	"kgraph-backend/internal/observability"
	"kgraph-backend/internal/repository/ddb"
	"kgraph-backend/internal/service/graph"
	"kgraph-backend/internal/service/hierarchy"
	"kgraph-backend/internal/service/ingestion"
	"kgraph-backend/internal/service/knowledge"
	"kgraph-backend/internal/service/modelregistry"
	"kgraph-backend/pkg/config"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logger *zap.Logger
	if cfg.Environment == config.Production {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	// Reload config on file changes during local development.
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		watcher, err := config.NewWatcher(cfg, path, logger)
		if err != nil {
			logger.Warn("config watcher disabled", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Region))
	if err != nil {
		logger.Fatal("unable to load SDK config", zap.Error(err))
	}

	dbClient := dynamodb.NewFromConfig(awsCfg)
	repo := ddb.NewRepository(dbClient, cfg.TableName, cfg.EntityIndexName, cfg.ReverseIndexName)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.EventBusName != "" {
		publisher = events.NewEventBridgePublisher(eventbridge.NewFromConfig(awsCfg), cfg.EventBusName)
	}

	hierarchySvc := hierarchy.NewService(repo)
	knowledgeSvc := knowledge.NewService(repo, hierarchySvc)

	router := handlers.NewRouter(handlers.Services{
		Hierarchy: hierarchySvc,
		Knowledge: knowledgeSvc,
		Graph:     graph.NewService(repo),
		Ingestion: ingestion.NewService(repo, knowledgeSvc, hierarchySvc, publisher, logger),
		Registry:  modelregistry.NewService(repo, hierarchySvc),
	}, observability.NewCollector("kgraph"))

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", string(cfg.Environment)),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
