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

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
	pgstore "quiz-session-service/internal/infra/postgres"
	redisstore "quiz-session-service/internal/infra/redis"
	transport "quiz-session-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleConfigs(), sampleQuestions())
	if pool != nil {
		loader = pgstore.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var bank app.QuestionBank
	if redisClient != nil {
		bank = redisstore.NewQuestionBank(redisClient, loader, bankTTL)
	} else {
		bank = memory.NewQuestionBank(loader, bankTTL)
	}

	memArchive := memory.NewArchive()
	var archive app.SessionArchive = memArchive
	if redisClient != nil {
		archive = redisstore.NewSessionArchive(redisClient, sessionTTL)
	}

	var results app.ResultSink = memArchive
	if pool != nil {
		results = pgstore.NewResultStore(pool)
	}

	builder := app.NewSessionBuilder(bank)
	builder.SetDefaultGradingPolicy(domain.GradingPolicy(cfg.Quiz.GradingPolicy))
	service := app.NewQuizService(builder, memory.NewSessionStore(), archive, results)
	defer service.Close()
	sessionHandler := transport.NewSessionHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", sessionHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz session service on :%s", finalPort)
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

// sampleConfigs and sampleQuestions provide minimal demo content; the
// Postgres loader replaces them in production.
func sampleConfigs() map[string]domain.QuizConfig {
	return map[string]domain.QuizConfig{
		"algebra-1": {
			QuizID:           "algebra-1",
			TotalQuestions:   2,
			TimeLimitSeconds: 600,
			CategoryID:       "math",
			SubcategoryID:    "algebra",
			GradingPolicy:    domain.SkipIncorrect,
		},
	}
}

func sampleQuestions() map[string][]domain.Question {
	return map[string][]domain.Question{
		"algebra-1": {
			{
				ID:         "q1",
				Prompt:     "What is 2 + 2?",
				Difficulty: domain.DifficultyEasy,
				Points:     5,
				Options: []domain.Option{
					{ID: "o1", Text: "3"},
					{ID: "o2", Text: "4", Correct: true, Explanation: "2 + 2 = 4."},
					{ID: "o3", Text: "5"},
				},
			},
			{
				ID:         "q2",
				Prompt:     "Solve for x: $3x + 4 = 19$",
				Difficulty: domain.DifficultyMedium,
				Points:     10,
				Variables:  map[string]float64{"x": 5},
				Predicate: &domain.Predicate{
					Kind:     domain.PredicateEquals,
					Variable: "x",
					Expected: 5,
				},
			},
		},
	}
}
