// Command server starts the AI interview evaluator HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai/conversation"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai/openai"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai/stub"
	httpserver "github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/moderation"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/app"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/config"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/service/turnlock"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/usecase"
)

type redisPinger struct{ c *redis.Client }

func (r redisPinger) Ping(ctx context.Context) app.RedisPingResult { return r.c.Ping(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	prompts, err := config.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		slog.Error("prompts load failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			slog.Error("db migrate failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	sessions := postgres.NewSessionRepo(pool)
	messages := postgres.NewMessageRepo(pool)
	vacancies := postgres.NewVacancyRepo(pool)
	applications := postgres.NewApplicationRepo(pool)

	if cfg.IsDev() {
		if err := seedVacancies(ctx, vacancies, cfg.SeedFile); err != nil {
			slog.Warn("vacancy seed failed", slog.Any("error", err))
		}
	}

	// Without redis only a single dev instance is supported.
	var rdb *redis.Client
	if opt, err := redis.ParseURL(cfg.RedisURL); err != nil {
		slog.Warn("invalid REDIS_URL", slog.Any("error", err))
	} else {
		rdb = redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			if !cfg.IsDev() {
				slog.Error("redis unavailable", slog.Any("error", err))
				os.Exit(1)
			}
			slog.Warn("redis unavailable, using in-process stores", slog.Any("error", err))
			_ = rdb.Close()
			rdb = nil
		}
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	var (
		store   conversation.Store = conversation.NewMemoryStore()
		locker  domain.TurnLocker  = turnlock.NewMemoryLocker()
		limiter domain.RateLimiter
	)
	if rdb != nil {
		store = conversation.NewRedisStore(rdb, cfg.ConversationTTL)
		locker = turnlock.NewRedisLocker(rdb, cfg.TurnLockTTL)
		// Assigned only when non-nil so the interface never wraps a nil pointer.
		if l := ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
			"generation": ratelimiter.NewBucketConfigFromPerMinute(cfg.GenerationRatePerMin),
		}); l != nil {
			limiter = l
		}
	}

	gateway, err := buildGateway(ctx, cfg, store)
	if err != nil {
		slog.Error("gateway init failed", slog.Any("error", err))
		os.Exit(1)
	}

	var events domain.EventPublisher = redpanda.LogPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		pub, err := redpanda.NewPublisher(ctx, cfg.KafkaBrokers, cfg.EventsTopic)
		if err != nil {
			slog.Warn("event publisher unavailable, logging events", slog.Any("error", err))
		} else {
			defer pub.Close()
			events = pub
		}
	}

	gate := moderation.NewGateFromConfig(cfg)

	analysis := usecase.NewAnalysisEngine(sessions, messages, vacancies, gateway, events, usecase.AnalysisOptions{
		Model:       cfg.AnalysisModel,
		Persona:     prompts.Analyst,
		Timeout:     cfg.AnalysisTimeout,
		TokenBudget: cfg.AnalysisTokenBudget,
	})
	engine := usecase.NewSessionEngine(sessions, messages, gateway, gate, locker, events, analysis, usecase.SessionOptions{
		ChatModel:   cfg.ChatModel,
		Persona:     prompts.Interviewer,
		TurnTimeout: cfg.InterviewTurnTimeout,
		IdleTimeout: cfg.SessionIdleTimeout,
	})
	generator := usecase.NewGenerationService(gateway, vacancies, gate, limiter, usecase.GenerationOptions{
		Model:      cfg.GenerationModel,
		Timeout:    cfg.GenerationTimeout,
		ExamAuthor: prompts.ExamAuthor,
		Recruiter:  prompts.Recruiter,
	})
	applySvc := usecase.NewApplicationService(vacancies, applications, sessions, engine, generator, prompts.FallbackQuestions)
	reporting := usecase.NewReportingEngine(sessions, applications)

	var rc app.RedisClient
	if rdb != nil {
		rc = redisPinger{rdb}
	}
	dbCheck, redisCheck := app.BuildReadinessChecks(pool, rc)
	srv := httpserver.NewServer(engine, analysis, reporting, generator, applySvc, dbCheck, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("ai_provider", cfg.AIProvider))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}

// buildGateway selects the text-generation backend named by AI_PROVIDER.
func buildGateway(ctx context.Context, cfg config.Config, store conversation.Store) (domain.Gateway, error) {
	breakers := ai.NewCircuitBreakers(cfg.AICircuitThreshold, cfg.AICircuitCooldown)
	switch strings.ToLower(cfg.AIProvider) {
	case config.ProviderGemini:
		c, err := gemini.New(ctx, cfg, store, breakers)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderStub:
		return stub.New(), nil
	default:
		return openai.New(cfg, store, breakers), nil
	}
}
