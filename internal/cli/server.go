package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizdesk/internal/app"
	"quizdesk/internal/auth"
	"quizdesk/internal/config"
	"quizdesk/internal/infra/memory"
	rediscache "quizdesk/internal/infra/redis"
	"quizdesk/internal/infra/sqlstore"
	"quizdesk/internal/logging"
	"quizdesk/internal/monitoring"
	"quizdesk/internal/storage"
	transport "quizdesk/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer log.Sync()
	gin.SetMode(cfg.Server.Mode)

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	ctx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()

	var (
		quizzes   app.QuizRepository
		questions app.QuestionRepository
		attempts  app.AttemptRepository
	)
	if usesDatabase(cfg) {
		db, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := sqlstore.Migrate(ctx, db); err != nil {
			return err
		}
		store := sqlstore.NewStore(db)
		quizzes, questions, attempts = store, store, store
		log.Info("using sql store", zap.String("driver", cfg.Database.Driver))
	} else {
		store := memory.NewStore()
		quizzes, questions, attempts = store, store, store
		log.Warn("no database configured, data is kept in memory")
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	feed := app.NewAttemptFeed()
	opts := []app.Option{
		app.WithLogger(log),
		app.WithFeed(feed),
		app.WithWindowCheckOnSubmit(cfg.Quiz.EnforceWindowOnSubmit),
		app.WithReportLocation(cfg.Location()),
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		redisTTL := config.TTLDuration(cfg.Redis.TTL, cacheTTL)
		quizzes = rediscache.NewQuizCache(client, quizzes, redisTTL)
		questions = rediscache.NewQuestionCache(client, questions, redisTTL)

		relay := rediscache.NewFeedRelay(client, log)
		opts = append(opts, app.WithPublisher(relay))
		go func() {
			if err := relay.Run(ctx, feed); err != nil {
				log.Error("attempt relay stopped", zap.Error(err))
			}
		}()
		log.Info("using redis cache", zap.String("addr", cfg.Redis.Addr))
	} else {
		quizzes = memory.NewQuizCache(quizzes, cacheTTL)
	}

	images, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}
	uploadDir := ""
	switch p := images.(type) {
	case *storage.Minio:
		if err := p.EnsureBucket(ctx); err != nil {
			return err
		}
	case *storage.Local:
		uploadDir = p.Dir
	}
	opts = append(opts, app.WithImageStore(images))

	metrics := monitoring.New()
	opts = append(opts, app.WithRecorder(metrics))

	service := app.NewService(quizzes, questions, attempts, opts...)
	router := transport.NewRouter(transport.Options{
		Service:   service,
		Tokens:    auth.NewIssuer(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 0)),
		Metrics:   metrics,
		Logger:    log,
		UploadDir: uploadDir,
	})

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting quizdesk", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
