// cmd/scoring-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"talent-scoring/internal/common/config"
	"talent-scoring/internal/common/database"
	"talent-scoring/internal/common/httpx"
	"talent-scoring/internal/common/logger"
	"talent-scoring/internal/common/observability"
	"talent-scoring/internal/notify"
	"talent-scoring/internal/scoring/audit"
	"talent-scoring/internal/scoring/guard"
	"talent-scoring/internal/scoring/harvest"
	"talent-scoring/internal/scoring/ledger"
	"talent-scoring/internal/scoring/provider"
	"talent-scoring/internal/scoring/runner"
	"talent-scoring/internal/scoring/submit"
	"talent-scoring/internal/scoring/talent"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting scoring server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("scoring-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (optional) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			// Test the connection
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	} else {
		zapLog.Info("Elasticsearch disabled, job outcomes will not be indexed")
	}

	// --- Domain wiring ---
	scoringClient := provider.NewClient(
		cfg.Scoring.BaseURL,
		cfg.Scoring.APIKey,
		time.Duration(cfg.Scoring.Timeout)*time.Millisecond,
	)

	ledgerStore := ledger.NewStore(pg.DB, log)
	talentStore := talent.NewStore(pg.DB, log)
	submissionGuard := guard.New(redis, 5*time.Minute, log)
	auditIndexer := audit.NewIndexer(esClient, cfg.Database.Elasticsearch.AuditIndex, log)

	harvestOpts := []harvest.Option{}
	if auditIndexer != nil {
		harvestOpts = append(harvestOpts, harvest.WithAuditor(auditIndexer))
	}
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		notifier, err := notify.NewAWSNotifier(ctx, cfg.Notifications, log)
		if err != nil {
			zapLog.Fatal("failed to create notifier", zap.Error(err))
		}
		harvestOpts = append(harvestOpts, harvest.WithNotifier(notifier))
		zapLog.Info("Score-published notifications enabled")
	}

	harvester := harvest.New(
		scoringClient, ledgerStore, talentStore, log,
		cfg.Pipeline.HarvestBatchSize,
		cfg.Pipeline.StaleAfter(),
		cfg.Pipeline.PollDelay(),
		harvestOpts...,
	)

	submitter := submit.New(
		scoringClient, talentStore, ledgerStore, submissionGuard,
		httpx.NewClient(time.Duration(cfg.Scoring.Timeout)*time.Millisecond),
		log,
		cfg.Pipeline.SubmitBatchSize,
		cfg.Pipeline.UploadDelay(),
		cfg.Pipeline.SubmitDelay(),
		cfg.Scoring.EvaluationType,
		cfg.Scoring.BundleType,
	)

	pipeline := runner.New(harvester, submitter, obs, log)
	cronHandler := runner.NewHandler(pipeline, cfg.Server.CronSecret, log)

	// --- HTTP Server ---
	mux := http.NewServeMux()
	mux.Handle("/cron/scoring", cronHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// pprof registers itself on the default mux
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	server := &http.Server{
		Addr:    cfg.Server.ListenAddress,
		Handler: mux,
	}

	go func() {
		zapLog.Info("Scoring server listening", zap.String("address", cfg.Server.ListenAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error during server shutdown", zap.Error(err))
	}

	zapLog.Info("Scoring server stopped gracefully")
}
