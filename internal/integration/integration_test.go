package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	pginfra "quiz-attempt-service/internal/infra/postgres"
	pgmigrations "quiz-attempt-service/internal/infra/postgres/migrations"
	infraredis "quiz-attempt-service/internal/infra/redis"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestAttemptLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := migrateDB(t, ctx, pgURL)
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pginfra.NewQuizLoader(pool)
	if err := loader.SaveQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	users := pginfra.NewUserDirectory(pool)
	if err := users.AddUser(ctx, "u1", "Alice"); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}
	quizRepo := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)

	stores := map[string]app.AttemptRepository{
		"postgres": pginfra.NewAttemptStore(db),
		"redis":    infraredis.NewAttemptStore(redisClient),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			service := app.NewAttemptServiceWithClock(quizRepo, store, users, clk.Now)
			runLifecycle(t, ctx, service, clk)
		})
	}

	if _, err := app.NewAttemptService(quizRepo, stores["postgres"], users).StartQuizAttempt(ctx, 1, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
	if _, err := loader.LoadQuiz(ctx, 404); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func runLifecycle(t *testing.T, ctx context.Context, service *app.AttemptService, clk *clock) {
	first, err := service.StartQuizAttempt(ctx, 1, "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	for _, q := range []int64{11, 12, 13} {
		wg.Add(1)
		go func(q int64) {
			defer wg.Done()
			if _, err := service.UpdateAnswerAndScore(ctx, first.AttemptID, q, q*10+2); err != nil {
				t.Errorf("answer %d: %v", q, err)
			}
		}(q)
	}
	wg.Wait()

	stored, err := service.GetAttempt(ctx, first.AttemptID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.TotalScore != 3 || len(stored.Scores) != 3 {
		t.Fatalf("expected 3 scored answers, got %+v", stored)
	}

	resumed, err := service.ResumeQuizAttempt(ctx, first.AttemptID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if order(resumed) != order(first) {
		t.Fatalf("resume changed presentation order: %s vs %s", order(resumed), order(first))
	}

	result, err := service.SubmitQuizAttempt(ctx, first.AttemptID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.TotalScore == nil || *result.TotalScore != 3 || result.Passed == nil || !*result.Passed {
		t.Fatalf("unexpected result %+v", result)
	}

	second, err := service.StartQuizAttempt(ctx, 1, "u1")
	if err != nil {
		t.Fatalf("start second: %v", err)
	}
	if second.AttemptNumber != first.AttemptNumber+1 {
		t.Fatalf("expected attempt number %d, got %d", first.AttemptNumber+1, second.AttemptNumber)
	}

	clk.Advance(6 * time.Minute)
	n, err := service.CheckAndAutoSubmitExpiredAttempts(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one auto-submission, got %d (%v)", n, err)
	}
	if n, _ := service.CheckAndAutoSubmitExpiredAttempts(ctx); n != 0 {
		t.Fatalf("expected idempotent sweep, got %d", n)
	}
	expired, err := service.GetAttempt(ctx, second.AttemptID)
	if err != nil {
		t.Fatalf("get expired: %v", err)
	}
	if expired.Status != domain.AttemptSubmitted || expired.TimeSpentSeconds != 300 {
		t.Fatalf("unexpected expired attempt %+v", expired)
	}
	if _, err := service.ResumeQuizAttempt(ctx, second.AttemptID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func order(view domain.AttemptView) string {
	var b strings.Builder
	for _, s := range view.Sections {
		for _, q := range s.Questions {
			fmt.Fprintf(&b, "%d:", q.ID)
			for _, o := range q.Options {
				fmt.Fprintf(&b, "%d,", o.ID)
			}
			b.WriteString(";")
		}
	}
	return b.String()
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
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

func migrateDB(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func sampleQuiz() domain.Quiz {
	five := 5
	question := func(id int64) domain.Question {
		return domain.Question{
			ID:     id,
			Text:   fmt.Sprintf("question %d", id),
			Type:   domain.QuestionSingleChoice,
			Points: 1,
			Options: []domain.Option{
				{ID: id*10 + 1, Text: "wrong"},
				{ID: id*10 + 2, Text: "right", Correct: true},
				{ID: id*10 + 3, Text: "wrong again"},
			},
		}
	}
	return domain.Quiz{
		ID:                   1,
		Title:                "Integration",
		Status:               domain.QuizOpen,
		DurationMinutes:      &five,
		ShuffleQuestions:     true,
		ShuffleAnswers:       true,
		ShowScoreImmediately: true,
		PassingScore:         50,
		Sections: []domain.Section{{
			ID:        1,
			Questions: []domain.Question{question(11), question(12), question(13)},
		}},
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
