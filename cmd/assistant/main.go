// cmd/assistant/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chezona/chorom/internal/common/aws"
	"github.com/chezona/chorom/internal/common/camunda"
	"github.com/chezona/chorom/internal/common/catalogindex"
	"github.com/chezona/chorom/internal/common/config"
	"github.com/chezona/chorom/internal/common/database"
	"github.com/chezona/chorom/internal/common/genai"
	"github.com/chezona/chorom/internal/common/logger"
	"github.com/chezona/chorom/internal/common/observability"
	"github.com/chezona/chorom/internal/workflow"

	si "github.com/chezona/chorom/internal/workers/catalog/search-items"
	sti "github.com/chezona/chorom/internal/workers/catalog/structure-item"
	tt "github.com/chezona/chorom/internal/workers/catalog/track-task"
	wi "github.com/chezona/chorom/internal/workers/catalog/write-item"
	ci "github.com/chezona/chorom/internal/workers/conversation/classify-intent"
	hm "github.com/chezona/chorom/internal/workers/conversation/handle-message"
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
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting catalog assistant...",
		zap.String("backend", cfg.Catalog.Backend),
		zap.String("index", cfg.Catalog.Index),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Catalog index ---
	checkers := []database.Checker{zeebe}
	index, indexCheck, err := newIndex(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("catalog index init failed", zap.Error(err))
	}
	if indexCheck != nil {
		checkers = append(checkers, indexCheck)
	}
	err = retryWithBackoff(func() error {
		return index.EnsureIndex(ctx)
	}, 10, 2*time.Second, zapLog, "Catalog index bootstrap")
	if err != nil {
		zapLog.Fatal("catalog index bootstrap failed", zap.Error(err))
	}

	// --- Task tracking (optional) ---
	var tracker wi.Tracker
	if cfg.Tracking.Enabled {
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
		checkers = append(checkers, pg)

		ledger := tt.NewLedger(pg.DB)
		if err := ledger.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("task ledger schema failed", zap.Error(err))
		}
		tracker = ledger

		var notifier tt.Notifier
		if cfg.Notifications.SMS.Enabled {
			sns, err := aws.NewSNSClient(ctx, cfg.Notifications.SMS.Region, cfg.Notifications.SMS.SenderID)
			if err != nil {
				zapLog.Fatal("sns client init failed", zap.Error(err))
			}
			notifier = tt.NewSMSNotifier(sns)
		}

		poller := tt.NewPoller(&tt.Config{
			PollInterval: config.GetDuration(cfg.Tracking.PollInterval),
			BatchSize:    cfg.Tracking.BatchSize,
			Timeout:      config.GetDuration(cfg.Catalog.Timeout),
			MaxPolls:     cfg.Tracking.MaxPolls,
		}, ledger, index, notifier, log)

		go func() {
			if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
				zapLog.Error("task poller stopped", zap.Error(err))
			}
		}()
		zapLog.Info("Task tracking enabled")
	}

	// --- Reply cache (optional) ---
	var replies hm.ReplyCache
	if cfg.Idempotency.Enabled {
		redis := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		checkers = append(checkers, redis)
		replies = hm.NewRedisReplyCache(redis.Client, time.Duration(cfg.Idempotency.TTL)*time.Second)
		zapLog.Info("Reply cache enabled")
	}

	// --- Workflow ---
	classifier := genai.NewClient(genai.Config{
		BaseURL:    cfg.APIs.GenAI.BaseURL,
		APIKey:     cfg.APIs.GenAI.APIKey,
		Model:      cfg.APIs.GenAI.Model,
		Timeout:    config.GetDuration(cfg.APIs.GenAI.Timeout),
		MaxRetries: cfg.APIs.GenAI.MaxRetries,
	})
	catalogTimeout := config.GetDuration(cfg.Catalog.Timeout)

	engine := workflow.NewEngine(workflow.Steps{
		Classify: ci.NewHandler(&ci.Config{
			Timeout: config.GetDuration(cfg.APIs.GenAI.Timeout),
		}, classifier, log),
		Search: si.NewHandler(&si.Config{
			Timeout:     catalogTimeout,
			SearchLimit: cfg.Catalog.SearchLimit,
			MaxResults:  cfg.Catalog.MaxResults,
		}, index, log),
		Structure: sti.NewHandler(&sti.Config{
			DefaultCurrency: cfg.Catalog.DefaultCurrency,
			DefaultCategory: cfg.Catalog.DefaultCategory,
			MaxNameLength:   cfg.Catalog.MaxNameLength,
		}, log),
		Write: wi.NewHandler(&wi.Config{Timeout: catalogTimeout}, index, tracker, log),
	}, obs, log)

	// --- Job worker ---
	wcfg := config.GetWorkerConfig(cfg, hm.TaskType)
	var jobWorker *camunda.CamundaWorker
	if wcfg.Enabled {
		handler := hm.NewHandler(&hm.Config{
			Timeout: config.GetDuration(wcfg.Timeout),
		}, engine, replies, log)
		jobWorker = camunda.NewWorker(zeebe.GetClient(), hm.TaskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, handler, zapLog)
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", hm.TaskType))
	}

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if failures := database.CheckAll(checkCtx, checkers...); failures != nil {
			zapLog.Warn("readiness check failed", zap.String("failed", database.FailedNames(failures)))
			writeStatus(w, http.StatusServiceUnavailable, "not ready: "+database.FailedNames(failures))
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping worker...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if jobWorker != nil {
		jobWorker.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Catalog assistant stopped gracefully")
}

// newIndex builds the configured catalog backend and, when it has a
// connection worth probing, the check for /ready.
func newIndex(ctx context.Context, cfg *config.Config, log *zap.Logger) (catalogindex.Index, database.Checker, error) {
	switch cfg.Catalog.Backend {
	case config.BackendElasticsearch:
		var es *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			return nil, nil, err
		}
		return catalogindex.NewElasticsearchIndex(es.Client, cfg.Catalog.Index), es, nil
	case config.BackendMemory:
		log.Warn("using in-memory catalog; data is lost on restart")
		return catalogindex.NewMemoryIndex(cfg.Catalog.Index), nil, nil
	default:
		meili := catalogindex.NewMeilisearchIndex(
			cfg.Catalog.Meilisearch.URL,
			cfg.Catalog.Meilisearch.APIKey,
			cfg.Catalog.Index,
			config.GetDuration(cfg.Catalog.Timeout),
		)
		return meili, meili, nil
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
