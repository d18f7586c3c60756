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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/classify"
	"github.com/polimaq/rankcore/internal/config"
	"github.com/polimaq/rankcore/internal/db"
	dbRedis "github.com/polimaq/rankcore/internal/db/redis"
	"github.com/polimaq/rankcore/internal/domain"
	"github.com/polimaq/rankcore/internal/index"
	logpkg "github.com/polimaq/rankcore/internal/logger"
	"github.com/polimaq/rankcore/internal/metrics"
	"github.com/polimaq/rankcore/internal/queryplan"
	"github.com/polimaq/rankcore/internal/repository/corpus"
	"github.com/polimaq/rankcore/internal/repository/embcache"
	chiTransport "github.com/polimaq/rankcore/internal/transport/chi"
	openaiTransport "github.com/polimaq/rankcore/internal/transport/openai"
	"github.com/polimaq/rankcore/internal/usecase/provider"
	"github.com/polimaq/rankcore/internal/usecase/rank"
	"github.com/polimaq/rankcore/internal/usecase/resilience"
	"github.com/polimaq/rankcore/internal/usecase/shadow"
	"github.com/polimaq/rankcore/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting rankcore API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("corpus_path", cfg.Corpus.Path),
	)

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	// Load corpus and build the lexical index once at startup
	docs, err := corpus.Load(cfg.Corpus.Path, logger)
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}

	idx, err := index.Build(docs)
	if err != nil {
		logger.Fatal("Failed to build lexical index", zap.Error(err))
	}
	logger.Info("Lexical index built", zap.Int("documents", idx.Len()))

	// Optional Redis-backed embedding cache
	var store db.Store
	if len(cfg.Cache.Addrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(context.Background(), 30*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	embedder := buildEmbedder(cfg, store, logger)
	reranker := buildReranker(cfg, logger)

	planner := queryplan.New()
	classifier := classify.New()

	opts := rank.Options{
		Name:            "primary",
		Candidates:      cfg.Engine.Candidates,
		ProviderTimeout: time.Duration(cfg.Engine.ProviderTimeoutMs) * time.Millisecond,
		Strict:          cfg.Engine.StrictProviders,
		Confidence:      rank.ConfidenceMethod(cfg.Engine.Confidence),
		Temperature:     cfg.Engine.SoftmaxT,
		IntentGuard:     cfg.Engine.IntentGuard,
		BatchWorkers:    cfg.Engine.BatchWorkers,
	}

	primary, err := rank.New(idx, planner, classifier, embedder, reranker, opts, logger)
	if err != nil {
		logger.Fatal("Failed to create primary engine", zap.Error(err))
	}
	defer primary.Close()

	// Lexical-only fallback: same pipeline without providers
	fallbackOpts := opts
	fallbackOpts.Name = "fallback"
	fallback, err := rank.New(idx, planner, classifier, nil, nil, fallbackOpts, logger)
	if err != nil {
		logger.Fatal("Failed to create fallback engine", zap.Error(err))
	}
	defer fallback.Close()

	var engine domain.Engine = resilience.New(
		primary, fallback,
		time.Duration(cfg.Resilience.DeadlineMs)*time.Millisecond,
		cfg.Resilience.FallbackEnabled,
		logger,
	)

	if cfg.Shadow.Enabled {
		engine = shadow.New(
			engine, fallback,
			cfg.Shadow.SampleRate, cfg.Shadow.TopDeltas,
			nil, logger, time.Now().UnixNano(),
		)
		logger.Info("Shadow comparison enabled", zap.Float64("sample_rate", cfg.Shadow.SampleRate))
	}

	server := chiTransport.NewServer(engine, cfg.Engine.DefaultTopK, cfg.Engine.MaxTopK, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Breaker -> Cached -> Instrumented.
// Returns nil when no API key is configured, which degrades the engine to
// lexical plus reranker signals.
func buildEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) domain.EmbeddingProvider {
	if cfg.Embedding.APIKey == "" {
		logger.Warn("No embedding API key configured, semantic signal disabled")
		return nil
	}

	var embedder domain.EmbeddingProvider = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	embedder = provider.NewBreakerEmbedder(embedder, provider.BreakerSettings{
		Name:        "embedding",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
	}, logger)

	if store != nil {
		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		embedder = embcache.New(embedder, store, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	return provider.NewInstrumentedEmbedder(embedder, "embedding", logger)
}

// buildReranker assembles the chain: HTTP reranker -> Breaker -> Instrumented.
func buildReranker(cfg config.Config, logger *zap.Logger) domain.CrossEncoderProvider {
	if cfg.Reranker.BaseURL == "" {
		logger.Warn("No reranker endpoint configured, reranker signal disabled")
		return nil
	}

	var reranker domain.CrossEncoderProvider = openaiTransport.NewReranker(&openaiTransport.RerankerConfig{
		APIKey:  cfg.Reranker.APIKey,
		BaseURL: cfg.Reranker.BaseURL,
		Model:   cfg.Reranker.Model,
		Logger:  logger,
	})

	reranker = provider.NewBreakerReranker(reranker, provider.BreakerSettings{
		Name:        "reranker",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
	}, logger)

	return provider.NewInstrumentedReranker(reranker, "reranker", logger)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
