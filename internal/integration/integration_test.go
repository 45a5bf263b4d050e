package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"quizdesk/internal/app"
	"quizdesk/internal/config"
	"quizdesk/internal/domain"
	infraredis "quizdesk/internal/infra/redis"
	"quizdesk/internal/infra/sqlstore"
	"quizdesk/internal/storage"
)

var (
	author  = domain.Identity{ID: "admin-1", Role: domain.RoleAdmin, Name: "Ada"}
	learner = domain.Identity{ID: "stu-1", Role: domain.RoleStudent, Name: "Sam"}
)

func TestSubmitAndProgressEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db, err := sqlstore.Open(ctx, "postgres", pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer db.Close()
	if err := sqlstore.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := sqlstore.NewStore(db)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	feed := app.NewAttemptFeed()
	relay := infraredis.NewFeedRelay(redisClient, nil)
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	go func() { _ = relay.Run(relayCtx, feed) }()
	waitForPatternSubscriber(t, ctx, redisClient)

	service := app.NewService(
		infraredis.NewQuizCache(redisClient, store, 5*time.Minute),
		infraredis.NewQuestionCache(redisClient, store, 5*time.Minute),
		store,
		app.WithFeed(feed),
		app.WithPublisher(relay),
	)

	quiz, err := service.CreateQuiz(ctx, author, app.QuizInput{Title: "Capitals", Subject: "geo", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	q1, err := service.AddQuestion(ctx, author, quiz.ID, app.QuestionInput{
		Type: domain.QuestionMCQ, Text: "Capital of France?", Options: []string{"Paris", "Rome"},
		CorrectAnswer: domain.TextAnswer("Paris"), Marks: 3,
	}, nil)
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if _, err := service.AddQuestion(ctx, author, quiz.ID, app.QuestionInput{
		Type: domain.QuestionTrueFalse, Text: "Rome is in Spain", CorrectAnswer: domain.BoolAnswer(false), Marks: 2,
	}, nil); err != nil {
		t.Fatalf("add question: %v", err)
	}

	fetched, err := service.FetchQuestions(ctx, learner, quiz.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(fetched.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(fetched.Questions))
	}

	updates, cancel, err := service.SubscribeAttempts(ctx, author, quiz.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	res, err := service.Submit(ctx, learner, quiz.ID, []app.SubmittedAnswer{
		{QuestionID: q1.ID, Answer: domain.TextAnswer(" paris")},
		{QuestionID: "missing", Answer: domain.TextAnswer("x")},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.TotalScore != 3 || len(res.Skipped) != 1 {
		t.Fatalf("unexpected submit result %+v", res)
	}

	select {
	case got := <-updates:
		if got.AttemptID != res.AttemptID {
			t.Fatalf("relayed wrong attempt %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("attempt was not relayed through redis")
	}

	progress, err := service.Progress(ctx, learner)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(progress) != 1 || progress[0].Score != 3 || progress[0].TotalMarks != 5 || progress[0].Title != "Capitals" {
		t.Fatalf("unexpected progress %+v", progress)
	}

	if err := service.DeleteQuiz(ctx, author, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := service.FetchQuestions(ctx, learner, quiz.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected cached quiz to be invalidated, got %v", err)
	}
}

func TestMinioImageStorage(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	endpoint, cleanup := startMinio(t, ctx)
	defer cleanup()

	cfg := config.StorageConfig{Type: "minio"}
	cfg.Minio.Endpoint = endpoint
	cfg.Minio.AccessKey = "minioadmin"
	cfg.Minio.SecretKey = "minioadmin"
	cfg.Minio.Bucket = "quiz-images"

	store, err := storage.NewMinio(cfg)
	if err != nil {
		t.Fatalf("minio client: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("ensure bucket: %v", err)
	}
	path, err := store.Save(ctx, "shape.png", strings.NewReader("png"), 3, "image/png")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if path != "/quiz-images/shape.png" {
		t.Fatalf("unexpected path %q", path)
	}
	if err := store.Remove(ctx, path); err != nil {
		t.Fatalf("remove: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func startMinio(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "minio/minio:latest",
		Cmd:          []string{"server", "/data"},
		Env:          map[string]string{"MINIO_ROOT_USER": "minioadmin", "MINIO_ROOT_PASSWORD": "minioadmin"},
		ExposedPorts: []string{"9000/tcp"},
		WaitingFor:   wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start minio: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("minio host: %v", err)
	}
	port, err := container.MappedPort(ctx, "9000/tcp")
	if err != nil {
		t.Fatalf("minio port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func waitForPatternSubscriber(t *testing.T, ctx context.Context, client *goredis.Client) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for client.PubSubNumPat(ctx).Val() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("relay never subscribed")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
