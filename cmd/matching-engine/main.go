// cmd/matching-engine/main.go
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

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"matching-engine/internal/common/config"
	"matching-engine/internal/common/database"
	"matching-engine/internal/common/logger"
	"matching-engine/internal/common/observability"
	"matching-engine/internal/matching"
	"matching-engine/internal/matching/scorer"
	"matching-engine/internal/matching/store"
	"matching-engine/internal/providers/catalog"
	"matching-engine/internal/providers/profile"

	cms "matching-engine/internal/workers/matching/calculate-match-score"
	gr "matching-engine/internal/workers/matching/get-recommendations"
	ims "matching-engine/internal/workers/matching/invalidate-matching-scores"
	rms "matching-engine/internal/workers/matching/refresh-matching-scores"
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("config load failed: %v", err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting matching engine...")

	obs := observability.New(cfg.App.Name, cfg.Metrics.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Scoring oracle client ---
	oracle, err := scorer.NewClient(scorer.ClientConfig{
		BaseURL:         cfg.Scorer.BaseURL,
		Timeout:         time.Duration(cfg.Scorer.Timeout) * time.Millisecond,
		BreakerFailures: uint32(cfg.Scorer.BreakerFailures),
		BreakerCooldown: time.Duration(cfg.Scorer.BreakerCooldown) * time.Second,
	}, log)
	if err != nil {
		zapLog.Fatal("scorer client failed", zap.Error(err))
	}

	// --- Matching service wiring ---
	scoreStore := store.NewPostgresStore(pg.DB, log)
	profiles := profile.NewProvider(profile.Config{
		CacheTTL: time.Duration(cfg.Matching.ProfileCacheTTL) * time.Second,
	}, pg.DB, redis.Client, log)
	listings := catalog.NewProvider(catalog.Config{
		Index: cfg.Database.Elasticsearch.Index,
	}, esClient.Client, log)

	service := matching.NewService(matching.SchedulerConfig{
		CandidateLimit:    cfg.Matching.CandidateLimit,
		PageSize:          cfg.Matching.RefreshPageSize,
		SubjectsPerSecond: cfg.Matching.RefreshRate,
	}, scoreStore, oracle, profiles, listings, log)

	// --- Register workers ---
	if cfg.Workers[cms.TaskType].Enabled {
		handler := cms.NewHandler(
			&cms.Config{
				Timeout: time.Duration(cfg.Workers[cms.TaskType].Timeout) * time.Millisecond,
			},
			service, log,
		)
		startWorker(zeebeClient, cms.TaskType, cfg.Workers[cms.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[rms.TaskType].Enabled {
		handler := rms.NewHandler(rms.LoadConfig(), service, log)
		startWorker(zeebeClient, rms.TaskType, cfg.Workers[rms.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[gr.TaskType].Enabled {
		handler := gr.NewHandler(
			&gr.Config{
				Timeout:      time.Duration(cfg.Workers[gr.TaskType].Timeout) * time.Millisecond,
				DefaultLimit: cfg.Matching.DefaultLimit,
				MaxLimit:     cfg.Matching.CandidateLimit,
			},
			service, log,
		)
		startWorker(zeebeClient, gr.TaskType, cfg.Workers[gr.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[ims.TaskType].Enabled {
		handler := ims.NewHandler(
			&ims.Config{
				Timeout: time.Duration(cfg.Workers[ims.TaskType].Timeout) * time.Millisecond,
			},
			service, log,
		)
		startWorker(zeebeClient, ims.TaskType, cfg.Workers[ims.TaskType], handler.Handle, zapLog)
	}
	zapLog.Info("All workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Matching engine stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
