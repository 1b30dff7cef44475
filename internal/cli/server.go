package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"trivia-session-service/internal/config"
	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/engine"
	"trivia-session-service/internal/history"
	"trivia-session-service/internal/infra/memory"
	pgloader "trivia-session-service/internal/infra/postgres"
	redisstore "trivia-session-service/internal/infra/redis"
	"trivia-session-service/internal/question"
	"trivia-session-service/internal/store"
	transport "trivia-session-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var kv store.KV = memory.NewKV()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv = redisstore.NewKV(client, config.TTLDuration(cfg.Redis.TTL, 0))
	}

	var loader question.BankLoader = question.NewStaticBankLoader(sampleBanks())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		loader = pgloader.NewBankLoader(pool)
	}

	repo := question.NewRepository(loader, kv, cfg.Quiz.InitialBatch)
	recorder := history.NewRecorder(kv)
	budget := func(level domain.Level) int {
		if override, ok := cfg.TimerOverride(string(level)); ok {
			return override
		}
		return engine.DefaultBudget(level)
	}
	host := engine.NewHost(repo, kv, recorder, budget)

	wsHandler := transport.NewWSHandler(host, cfg.Quiz.ExtendCount)
	adminHandler := transport.NewAdminHandler(repo)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/admin/status", adminHandler.ServeStatus)
	mux.HandleFunc("/admin/bulk", adminHandler.ServeBulk)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia session service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBanks provides a minimal question bank; configure Postgres to
// serve real content.
func sampleBanks() map[string][]domain.Question {
	return map[string][]domain.Question{
		"math": {
			{
				ID:            1,
				Subject:       "math",
				Chapter:       "1",
				Level:         domain.LevelEasy,
				OptionA:       "3",
				OptionB:       "4",
				OptionC:       "5",
				OptionD:       "22",
				CorrectAnswer: "B",
				Status:        domain.QuestionPublished,
			},
			{
				ID:            2,
				Subject:       "math",
				Chapter:       "1",
				Level:         domain.LevelEasy,
				OptionA:       "6",
				OptionB:       "7",
				OptionC:       "9",
				OptionD:       "12",
				CorrectAnswer: "C",
				Status:        domain.QuestionPublished,
			},
		},
	}
}
