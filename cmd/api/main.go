package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"warehouse-inventory-api/db"
	"warehouse-inventory-api/internal"
	"warehouse-inventory-api/internal/auditstore"
	"warehouse-inventory-api/internal/config"
	"warehouse-inventory-api/internal/labels"
	"warehouse-inventory-api/internal/models"
	"warehouse-inventory-api/internal/photos"
	"warehouse-inventory-api/internal/store"
	"warehouse-inventory-api/pkg/importer"
)

type userCounter interface {
	internal.UserStore
	Count(ctx context.Context) (int, error)
}

func main() {
	cfg, err := config.LoadAndValidate()
	if err != nil {
		slog.Error("configuration error", slog.Any("error", err))
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := internal.Deps{Logger: logger}
	var users userCounter

	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on restart")
		deps.Store = store.NewMemory()
		users = store.NewMemoryUsers()
	default:
		conn, err := sql.Open("pgx", cfg.DBDSN)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer conn.Close()
		if err := conn.PingContext(ctx); err != nil {
			return fmt.Errorf("pinging database: %w", err)
		}
		if err := db.Migrate(conn); err != nil {
			return err
		}

		pool, err := pgxpool.New(ctx, cfg.DBDSN)
		if err != nil {
			return fmt.Errorf("opening pgx pool: %w", err)
		}
		defer pool.Close()

		pg := store.NewPostgres(conn, pool)
		deps.Store = store.NewSnapshot(pg, cfg.SnapshotTTL)
		deps.Pinger = pg
		users = store.NewPostgresUsers(conn)
	}
	deps.Users = users

	if cfg.RedisURL != "" {
		client, err := auditstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		deps.Sessions = auditstore.NewRedis(client, cfg.AuditSessionTTL)
	} else {
		deps.Sessions = auditstore.NewMemory()
	}

	deps.Photos = photos.New(photos.Config{
		SupabaseURL:  cfg.SupabaseURL,
		SupabaseKey:  cfg.SupabaseKey,
		Bucket:       cfg.SupabaseBucket,
		LocalDir:     cfg.PhotoLocalDir,
		MaxDimension: cfg.PhotoMaxDimension,
	}, logger)

	if cfg.GotenbergURL != "" {
		g := labels.NewGotenberg(cfg.GotenbergURL)
		if err := g.Ping(ctx); err != nil {
			logger.Warn("gotenberg unreachable, label sheets will fail until it is up", slog.Any("error", err))
		}
		deps.PDF = g
	}

	mapping, err := importer.LoadMapping(cfg.ImportMapping)
	if err != nil {
		return err
	}
	deps.Mapping = mapping

	if err := bootstrapAdmin(ctx, cfg, users, logger); err != nil {
		return err
	}

	srv, err := internal.NewServer(cfg, deps)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.HTTPAddr),
			slog.String("store", cfg.StoreDriver),
			slog.Bool("redis_sessions", cfg.RedisURL != ""),
			slog.Bool("pdf_labels", deps.PDF != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// bootstrapAdmin creates the first admin account when the user table is empty
func bootstrapAdmin(ctx context.Context, cfg *config.Config, users userCounter, logger *slog.Logger) error {
	if cfg.BootstrapAdminUser == "" {
		return nil
	}
	n, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if n > 0 {
		return nil
	}
	u, err := internal.CreateUser(ctx, users, models.CreateUserRequest{
		Username: cfg.BootstrapAdminUser,
		Password: cfg.BootstrapAdminPassword,
		Roles:    []string{models.RoleAdmin},
	})
	if err != nil {
		return fmt.Errorf("creating bootstrap admin: %w", err)
	}
	logger.Info("bootstrap admin created", slog.String("username", u.Username))
	return nil
}
