package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aspirant-quiz-service/internal/app"
	"aspirant-quiz-service/internal/config"
	"aspirant-quiz-service/internal/gemini"
	"aspirant-quiz-service/internal/infra/memory"
	pgstore "aspirant-quiz-service/internal/infra/postgres"
	redisstore "aspirant-quiz-service/internal/infra/redis"
	"aspirant-quiz-service/internal/infra/sqlite"
	"aspirant-quiz-service/internal/logger"
	transport "aspirant-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// historyBackend stores quiz results and library readings.
type historyBackend interface {
	app.HistoryStore
	app.ReadingStore
}

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	generator, err := gemini.New(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model, log.Named("gemini"))
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)
	insightTTL := config.TTLDuration(cfg.Insights.TTL, 6*time.Hour)

	var sessions app.SessionRepository
	var cache app.InsightCache
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, sessionTTL)
		cache = redisstore.NewInsightCache(redisClient, insightTTL)
	} else {
		sessions = memory.NewSessionStore(sessionTTL)
		cache = memory.NewInsightCache(insightTTL)
	}

	history, closeHistory, err := openHistory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeHistory()

	generationTimeout := config.TTLDuration(cfg.Quiz.GenerationTimeout, 60*time.Second)
	quiz := app.NewQuizService(sessions, generator, history, app.QuizConfig{
		QuestionCount:     cfg.Quiz.QuestionCount,
		GenerationTimeout: generationTimeout,
	}, log.Named("quiz"))
	insightTimeout := config.TTLDuration(cfg.GenAI.Timeout, 60*time.Second)
	insights := app.NewInsightService(generator, cache, history, insightTimeout, log.Named("insights"))

	if !cfg.Auth.TrustIdentityHeaders {
		log.Warn("identity headers are ignored; all requests are signed out",
			zap.String("hint", "set auth.trust_identity_headers behind an auth proxy"))
	}

	router := transport.NewRouter(
		transport.NewHandler(quiz, app.NewHistoryService(history, cfg.History.Limit, log.Named("history")), insights, log.Named("http")),
		transport.NewWSHandler(quiz, log.Named("ws")),
		cfg.Auth.TrustIdentityHeaders,
		log.Named("access"),
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(generationTimeout, insightTimeout),
	}

	go func() {
		log.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// writeTimeout leaves room for the slowest synchronous generation call.
func writeTimeout(timeouts ...time.Duration) time.Duration {
	longest := time.Duration(0)
	for _, t := range timeouts {
		if t > longest {
			longest = t
		}
	}
	return longest + 15*time.Second
}

// openHistory picks Postgres when a URL is configured, then SQLite, then memory.
func openHistory(ctx context.Context, cfg config.Config, log *zap.Logger) (historyBackend, func(), error) {
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("history backend", zap.String("kind", "postgres"))
		return pgstore.NewHistoryStore(pool), pool.Close, nil
	case cfg.SQLite.Path != "":
		store, err := sqlite.NewHistoryStore(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Info("history backend", zap.String("kind", "sqlite"), zap.String("path", cfg.SQLite.Path))
		return store, func() { _ = store.Close() }, nil
	default:
		log.Warn("history backend is in-memory; results are lost on restart")
		return memory.NewHistoryStore(), func() {}, nil
	}
}
