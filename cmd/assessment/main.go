// Command assessment is the process bootstrap for the assessment engine:
// it wires config, database, the store facade, the scoring/composition
// components, the durable job queue, and the HTTP API, then serves until
// signaled to shut down.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"github.com/assessment-platform/enginer/ent/job"
	"github.com/assessment-platform/enginer/pkg/api"
	"github.com/assessment-platform/enginer/pkg/catalog"
	"github.com/assessment-platform/enginer/pkg/cleanup"
	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/composer"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/database"
	"github.com/assessment-platform/enginer/pkg/evaluator"
	"github.com/assessment-platform/enginer/pkg/events"
	"github.com/assessment-platform/enginer/pkg/queue"
	"github.com/assessment-platform/enginer/pkg/rag"
	"github.com/assessment-platform/enginer/pkg/report"
	"github.com/assessment-platform/enginer/pkg/scoring"
	"github.com/assessment-platform/enginer/pkg/session"
	"github.com/assessment-platform/enginer/pkg/store"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "release"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()

	st := store.New(dbClient.Client)
	clk := clock.SystemClock{}

	// MockEmbedder stands in for a production embedding backend; swapping it
	// for a real one only requires satisfying rag.Embedder. Absent entirely
	// when RAG_ENABLED is false: duplicate detection then falls back to
	// exact-match only.
	var embedder rag.Embedder
	if cfg.RAG.RAGEnabled {
		embedder = rag.NewMockEmbedder(cfg.RAG.EmbeddingDimension)
	}

	evalClient, err := evaluator.Dial(cfg.Evaluator, embedder)
	if err != nil {
		log.Fatalf("Failed to dial evaluator service: %v", err)
	}
	defer func() {
		if err := evalClient.Close(); err != nil {
			log.Printf("Error closing evaluator connection: %v", err)
		}
	}()

	cat := catalog.New(st, embedder, cfg.RAG)
	comp := composer.New(st, cat, evalClient, clk, cfg.Session)
	scorer := scoring.New(st, evalClient, cfg.Scoring)
	reporter := report.New(st, evalClient)

	q, notifier, err := queue.NewFromConfig(st, cfg.Queue)
	if err != nil {
		log.Fatalf("Failed to construct job queue: %v", err)
	}

	sess := session.New(st, clk, cfg.Session, q)
	sweeper := session.NewSweeper(sess, cfg.Session)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// pubConn/listener carry submission-status NOTIFYs so the report guard
	// endpoint can return as soon as scoring finishes instead of only on its
	// next poll. Kept as two separate connections deliberately: pgx does
	// not support one connection both LISTENing and running NOTIFY/other
	// statements concurrently from different goroutines.
	var eventPub *events.Publisher
	pubConn, err := pgx.Connect(ctx, dbConfig.DSN())
	if err != nil {
		log.Printf("Warning: event publisher connection failed, guard endpoints fall back to plain polling: %v", err)
	} else {
		eventPub = events.NewPublisher(pubConn)
		defer func() { _ = eventPub.Close(context.Background()) }()
	}

	listener := events.NewNotifyListener(dbConfig.DSN())
	if err := listener.Start(ctx); err != nil {
		log.Printf("Warning: event listener failed to start, guard endpoints fall back to plain polling: %v", err)
		listener = nil
	} else {
		defer listener.Stop(context.Background())
	}

	podID := getEnv("POD_ID", clock.NewID())
	handlers := map[job.Kind]queue.Handler{
		job.KindScore:  queue.NewScoreHandler(scorer, q, eventPub),
		job.KindReport: queue.NewReportHandler(reporter, eventPub),
	}
	workerPool := queue.NewWorkerPool(podID, st, notifier, cfg.Queue, handlers)
	if err := workerPool.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker pool: %v", err)
	}
	defer workerPool.Stop()

	cleanupSvc := cleanup.NewService(cfg.Retention, st)
	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()

	server := api.NewServer(cfg, dbClient.DB(), st, cat, comp, sess, scorer, workerPool, listener)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", httpPort, "pod_id", podID)
		if err := server.Start(":" + httpPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-errCh:
		log.Fatalf("HTTP server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during HTTP shutdown: %v", err)
	}
}
