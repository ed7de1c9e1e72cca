package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/auth"
	"live-trivia-service/internal/config"
	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/infra/memory"
	pgloader "live-trivia-service/internal/infra/postgres"
	rediscache "live-trivia-service/internal/infra/redis"
	transport "live-trivia-service/internal/transport/http"

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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	catalog, err := resolveCatalog(ctx, cfg, redisClient, pool)
	if err != nil {
		return err
	}

	timing := app.Timing{
		PreDelay:  config.TTLDuration(cfg.Game.PreDelay, 500*time.Millisecond),
		PopupShow: config.TTLDuration(cfg.Game.PopupShow, 7*time.Second),
		MaxPoints: cfg.Game.MaxPoints,
		Retention: config.TTLDuration(cfg.Game.Retention, time.Hour),
	}
	service := app.NewRoomService(memory.NewRoomRegistry(), catalog, timing)

	authenticator := auth.NewHostAuthenticator(
		cfg.Host.Key,
		cfg.Host.Secret,
		config.TTLDuration(cfg.Host.TokenTTL, 720*time.Hour),
	)

	wsHandler := transport.NewWSHandler(service, authenticator)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("/host/login", transport.NewHostLoginHandler(authenticator))
	mux.Handle("/qr", transport.NewQRHandler(service, cfg.Server.PublicURL))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s (catalog %q, %d questions)", finalPort, catalog.ID, len(catalog.Questions))
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

// resolveCatalog picks the question source in precedence order: YAML file,
// Postgres (optionally cached in Redis), then the built-in demo catalog.
// Whatever the source, the catalog is validated before the server starts.
func resolveCatalog(ctx context.Context, cfg config.Config, redisClient *redis.Client, pool *pgxpool.Pool) (domain.Catalog, error) {
	if cfg.Quiz.Path != "" {
		return config.LoadCatalogFile(cfg.Quiz.Path)
	}

	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(map[string]domain.Catalog{
		demoCatalog().ID: demoCatalog(),
	})
	if pool != nil {
		loader = pgloader.NewCatalogLoader(pool)
	}

	// quiz.ttl bounds the in-process cache; redis.ttl bounds the shared blob.
	var repo app.CatalogRepository
	if redisClient != nil {
		repo = rediscache.NewCatalogRepository(redisClient, loader, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		repo = memory.NewCatalogRepository(loader, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
	}

	id := cfg.Quiz.ID
	if id == "" {
		id = demoCatalog().ID
	}
	catalog, err := repo.GetCatalog(ctx, id)
	if err != nil {
		return domain.Catalog{}, err
	}
	if err := catalog.Validate(); err != nil {
		return domain.Catalog{}, err
	}
	return catalog, nil
}

// demoCatalog keeps the server bootable with zero configuration.
func demoCatalog() domain.Catalog {
	return domain.Catalog{
		ID:    "demo",
		Title: "General knowledge",
		Questions: []domain.Question{
			{
				Text:         "What is 2 + 2?",
				Choices:      []string{"3", "4", "5", "22"},
				CorrectIndex: 1,
				TimeLimitSec: 20,
			},
			{
				Text:         "Which planet is the largest in the solar system?",
				Choices:      []string{"Earth", "Saturn", "Jupiter", "Neptune"},
				CorrectIndex: 2,
				TimeLimitSec: 20,
			},
			{
				Text:         "What is the capital of France?",
				Choices:      []string{"Lyon", "Marseille", "Paris", "Nice"},
				CorrectIndex: 2,
				TimeLimitSec: 15,
			},
		},
	}
}
