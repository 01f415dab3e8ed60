package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/config"
	"daily-trivia-service/internal/domain"
	"daily-trivia-service/internal/infra/memory"
	"daily-trivia-service/internal/infra/postgres"
	"daily-trivia-service/internal/infra/rabbitmq"
	rediscache "daily-trivia-service/internal/infra/redis"
	transport "daily-trivia-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
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
	log := newLogger(cfg)

	rules, err := cfg.Game.Rules()
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var (
		store  app.Store
		loader memory.QuestionSetLoader
	)
	if cfg.Postgres.URL != "" {
		db, err := openBun(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := runMigrations(ctx, db, log); err != nil {
			return err
		}
		store = postgres.NewStore(db)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = postgres.NewQuestionSetLoader(pool)
	} else {
		sets, err := demoQuestionSets(cfg.QuestionSets.Files, domain.DateOf(time.Now(), rules.Location))
		if err != nil {
			return err
		}
		log.WithField("sets", len(sets)).Warn("postgres not configured, using in-memory store")
		store = memory.NewStore()
		loader = memory.NewStaticQuestionSetLoader(sets...)
	}

	opts := []app.Option{app.WithLogger(log)}
	setTTL := config.TTLDuration(cfg.QuestionSets.TTL, 10*time.Minute)
	var sets app.QuestionSetRepository
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		sets = rediscache.NewQuestionSetRepository(redisClient, loader, setTTL)
		boardTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Minute)
		opts = append(opts, app.WithLeaderboardCache(rediscache.NewLeaderboardCache(redisClient, boardTTL)))
	} else {
		sets = memory.NewQuestionSetRepository(loader, setTTL)
	}

	if cfg.RabbitMQ.URL != "" {
		exchange := cfg.RabbitMQ.Exchange
		if exchange == "" {
			exchange = "trivia"
		}
		publisher, err := rabbitmq.Dial(cfg.RabbitMQ.URL, exchange)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, app.WithEventPublisher(publisher))
	}

	service := app.NewTriviaService(sets, store, rules, opts...)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting trivia service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// demoQuestionSets loads the configured files for the in-memory mode. When no
// file covers today, the first one is replayed as today's game.
func demoQuestionSets(files []string, today time.Time) ([]domain.QuestionSet, error) {
	sets := make([]domain.QuestionSet, 0, len(files)+1)
	hasToday := false
	for _, path := range files {
		set, err := config.LoadQuestionSetFile(path)
		if err != nil {
			return nil, err
		}
		hasToday = hasToday || set.Date.Equal(today)
		sets = append(sets, set)
	}
	if !hasToday && len(sets) > 0 {
		replay := sets[0]
		replay.ID = replay.ID + "-" + domain.FormatDate(today)
		replay.Date = today
		replay.Questions = append([]domain.Question(nil), replay.Questions...)
		for i := range replay.Questions {
			replay.Questions[i].SetID = replay.ID
		}
		sets = append(sets, replay)
	}
	return sets, nil
}
