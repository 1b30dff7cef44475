package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
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

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/engine"
	"trivia-session-service/internal/history"
	pgloader "trivia-session-service/internal/infra/postgres"
	pgmigrations "trivia-session-service/internal/infra/postgres/migrations"
	redisstore "trivia-session-service/internal/infra/redis"
	"trivia-session-service/internal/question"
	"trivia-session-service/internal/store"
)

func TestSessionLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedBank(t, ctx, pgURL, "math", sampleBank())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	kv := redisstore.NewKV(redisClient, 10*time.Minute)
	repo := question.NewRepository(pgloader.NewBankLoader(pool), kv, 0)
	recorder := history.NewRecorder(kv)
	host := engine.NewHost(repo, kv, recorder, nil)

	session, err := host.Open(ctx, engine.Params{
		Subject:     "math",
		SubjectName: "Mathematics",
		Chapter:     "1",
		Level:       domain.LevelEasy,
	})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	state := session.Snapshot()
	if state.Status != engine.StatusPlaying || len(state.Session.Questions) != 3 {
		t.Fatalf("unexpected initial state: %+v", state)
	}

	var mirror domain.QuizSession
	if !kv.Get(ctx, store.KeyCurrentSession, &mirror) {
		t.Fatalf("expected session mirror in redis")
	}

	session.SelectAnswer(ctx, "A")
	session.GoToNext(ctx)
	session.SelectAnswer(ctx, "B")
	if err := session.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if kv.Get(ctx, store.KeyCurrentSession, &mirror) {
		t.Fatalf("mirror should be removed on submit")
	}
	hist := recorder.History(ctx)
	if len(hist) != 1 || hist[0].Score != 1 || hist[0].MaxScore != 3 {
		t.Fatalf("unexpected history: %+v", hist)
	}
	cp, ok := recorder.ChapterProgress(ctx, "math", "1")
	if !ok || cp.Attempts != 1 || cp.BestScore != 1 {
		t.Fatalf("unexpected chapter progress: %+v", cp)
	}
	if _, ok := recorder.Unlocked(ctx)["first_quiz"]; !ok {
		t.Fatalf("expected first_quiz achievement unlocked")
	}

	host.Remove(session.ID())
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

func seedBank(t *testing.T, ctx context.Context, dsn, subject string, bank []domain.Question) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(bank)
	if err != nil {
		t.Fatalf("marshal bank: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_banks (subject, data) VALUES (?, ?::jsonb) ON CONFLICT (subject) DO UPDATE SET data=EXCLUDED.data`, subject, string(data)); err != nil {
		t.Fatalf("insert bank: %v", err)
	}
}

func sampleBank() []domain.Question {
	bank := make([]domain.Question, 0, 3)
	for i := 1; i <= 3; i++ {
		bank = append(bank, domain.Question{
			ID:            i,
			Subject:       "math",
			Chapter:       "1",
			Level:         domain.LevelEasy,
			OptionA:       "right",
			OptionB:       "wrong",
			CorrectAnswer: "A",
			Status:        domain.QuestionPublished,
		})
	}
	return bank
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
