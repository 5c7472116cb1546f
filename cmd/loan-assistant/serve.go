package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loan-assistant/internal/common/camunda"
	"loan-assistant/internal/common/config"
	"loan-assistant/internal/common/database"
	"loan-assistant/internal/common/httpclient"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/observability"
	"loan-assistant/internal/common/security"
	entityextractor "loan-assistant/internal/conversation/entity-extractor"
	faqclassifier "loan-assistant/internal/conversation/faq-classifier"
	generativefallback "loan-assistant/internal/conversation/generative-fallback"
	messagerouter "loan-assistant/internal/conversation/message-router"
	statusintent "loan-assistant/internal/conversation/status-intent"
	chathistory "loan-assistant/internal/data-access/chat-history"
	loanrepository "loan-assistant/internal/data-access/loan-repository"
	httpapi "loan-assistant/internal/transport/http-api"
	chatreply "loan-assistant/internal/workers/chat-reply"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat HTTP API and, when enabled, the Zeebe chat-reply worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

// retryWithBackoff runs operation until it succeeds, doubling the delay after
// each failure.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}

		log.Warn(operationName+" failed, retrying", map[string]interface{}{
			"error":       err.Error(),
			"attempt":     i + 1,
			"maxRetries":  maxRetries,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting loan assistant", map[string]interface{}{
		"environment": cfg.App.Environment,
		"address":     cfg.Server.Address,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.App.Name,
		TracingEnabled: cfg.Observability.TracingEnabled,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		SampleRatio:    cfg.Observability.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("observability init failed: %w", err)
	}
	defer obs.Shutdown(context.Background())

	// --- PostgreSQL ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()
	err = retryWithBackoff(ctx, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return pg.Ping(pingCtx)
	}, 5, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return err
	}
	log.Info("PostgreSQL connected", nil)

	// --- Redis (optional cache) ---
	var cache *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		cache, err = database.NewRedis(cfg.Database.Redis)
		if err == nil {
			err = retryWithBackoff(ctx, func() error { return cache.Ping(ctx) }, 3, time.Second, log, "Redis connection")
		}
		if err != nil {
			log.Warn("continuing without cache", map[string]interface{}{"error": err.Error()})
			if cache != nil {
				_ = cache.Close()
			}
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// --- Customer tokens ---
	var tokens loanrepository.TokenDecoder
	if cfg.Security.TokenSecret != "" {
		codec, err := security.NewTokenCodec(cfg.Security.TokenSecret)
		if err != nil {
			return err
		}
		tokens = codec
	} else {
		log.Warn("no token secret configured; session tokens will be rejected", nil)
	}

	repo := loanrepository.New(pg, cache, tokens, log)

	// --- Exchange recorders ---
	recorders := chathistory.MultiRecorder{chathistory.NewPostgresRecorder(pg, log)}
	if cfg.Database.Elasticsearch.Enabled() {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch, httpclient.Transport("elasticsearch", nil))
		if err != nil {
			return err
		}
		if err := es.Ping(ctx); err != nil {
			log.Warn("elasticsearch unreachable; archive disabled", map[string]interface{}{"error": err.Error()})
		} else {
			recorders = append(recorders, chathistory.NewElasticsearchRecorder(es, cfg.Database.Elasticsearch.Index, log))
		}
	}

	// --- Conversation core ---
	router, classifier, err := buildRouter(ctx, cfg, repo, recorders, obs, log)
	if err != nil {
		return err
	}

	// --- Zeebe worker (optional) ---
	var jobWorker worker.JobWorker
	var zeebe *camunda.Client
	if chatWorkerEnabled(cfg) {
		err = retryWithBackoff(ctx, func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			return err
		}
		defer zeebe.Close()

		handler := chatreply.NewHandler(chatreply.LoadConfig(cfg), router, log).WithRetrier(zeebe)
		jobWorker = camunda.StartWorker(zeebe.Zeebe(), chatreply.TaskType,
			config.GetWorkerConfig(cfg, chatreply.TaskType), handler.Handle, log)
	} else if cfg.Camunda.Enabled {
		log.Info("chat-reply worker disabled; not connecting to Zeebe", nil)
	}

	// --- HTTP API ---
	api := httpapi.New(httpapi.Dependencies{
		Chat:          router,
		Loans:         repo,
		Intents:       classifier,
		Observability: obs,
		Logger:        log,
	}, httpapi.Config{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		MaxMessageLength: cfg.Server.MaxMessageLength,
		AdminEnabled:     cfg.Server.AdminEnabled,
		MetricsEnabled:   cfg.Observability.MetricsEnabled,
	})
	srv := api.HTTPServer(cfg.Server.Address,
		config.GetDuration(cfg.Server.ReadTimeout), config.GetDuration(cfg.Server.WriteTimeout))

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP API listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	case err := <-serveErr:
		if err != nil {
			log.Error("HTTP server failed", map[string]interface{}{"error": err.Error()})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if jobWorker != nil {
		jobWorker.Close()
		jobWorker.AwaitClose()
	}
	if err := router.Close(shutdownCtx); err != nil {
		log.Warn("pending exchanges were not recorded", map[string]interface{}{"error": err.Error()})
	}

	log.Info("loan assistant stopped", nil)
	return nil
}

func buildRouter(
	ctx context.Context,
	cfg *config.Config,
	loans messagerouter.LoanStore,
	recorder messagerouter.ExchangeRecorder,
	obs *observability.Observability,
	log logger.Logger,
) (*messagerouter.Router, *faqclassifier.Classifier, error) {
	extractor, err := entityextractor.New(cfg.NLU.AccountPrefix)
	if err != nil {
		return nil, nil, err
	}

	catalog := faqclassifier.DefaultCatalog()
	if cfg.NLU.CatalogFile != "" {
		if catalog, err = faqclassifier.LoadCatalogFile(cfg.NLU.CatalogFile); err != nil {
			return nil, nil, err
		}
	}
	classifier, err := faqclassifier.New(catalog, faqclassifier.Config{
		Threshold:     cfg.NLU.Threshold,
		ShortcutScore: cfg.NLU.ShortcutScore,
	}, nil, log)
	if err != nil {
		return nil, nil, err
	}

	generator, err := generativefallback.NewGenerator(cfg.LLM, log)
	if err != nil {
		return nil, nil, err
	}
	fallback := generativefallback.New(ctx, generator, generativefallback.Config{
		Model:        cfg.LLM.Model,
		Timeout:      config.GetDuration(cfg.LLM.Timeout),
		ProbeTimeout: config.GetDuration(cfg.LLM.ProbeTimeout),
	}, log)

	router, err := messagerouter.New(messagerouter.Dependencies{
		Extractor: extractor,
		Detector:  statusintent.New(cfg.NLU.IncludeLoanKeyword),
		FAQ:       classifier,
		Fallback:  fallback,
		Loans:     loans,
		Recorder:  recorder,
		Tracer:    obs.Tracer(),
		Logger:    log,
	}, messagerouter.Config{
		StatusMode:    cfg.NLU.StatusMode,
		RecordTimeout: config.GetDuration(cfg.NLU.RecordTimeout),
	})
	if err != nil {
		return nil, nil, err
	}
	return router, classifier, nil
}

// chatWorkerEnabled reports whether the chat-reply job worker should run,
// which is the only reason to dial Zeebe.
func chatWorkerEnabled(cfg *config.Config) bool {
	return cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, chatreply.TaskType)
}
