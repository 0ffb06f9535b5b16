package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/reputation-tracker/internal/auth"
	"github.com/gdg-garage/reputation-tracker/internal/config"
	"github.com/gdg-garage/reputation-tracker/internal/database"
	"github.com/gdg-garage/reputation-tracker/internal/groups"
	"github.com/gdg-garage/reputation-tracker/internal/handlers"
	"github.com/gdg-garage/reputation-tracker/internal/notifier"
	"github.com/gdg-garage/reputation-tracker/internal/reputation"
	"github.com/gdg-garage/reputation-tracker/internal/staging"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close(db)

	store, closeStore, err := newStagingStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	authHandler := auth.NewAuthHandler(cfg.JWTSecret, db)
	service := reputation.NewService(db, logger.Named("reputation"), reputation.WithMottoes(cfg.RequiredMottoes))
	var n notifier.Notifier
	if discordNotifier := newDiscordNotifier(); discordNotifier != nil {
		n = discordNotifier
	}

	r := chi.NewRouter()
	handlers.RegisterRoutes(r, logger.Named("http"), cfg.CORSAllowedOrigins, handlers.Handlers{
		Auth:       authHandler,
		Reputation: handlers.NewReputationHandler(service, store, cfg.StagingTTL, n, authHandler, logger.Named("import")),
		Groups:     handlers.NewGroupHandler(db, groups.NewRepository(db), service, authHandler, logger.Named("groups")),
		Admin:      handlers.NewAdminHandler(service, store, cfg.StagingTTL, authHandler, logger.Named("admin")),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newStagingStore(ctx context.Context) (staging.Store, func(), error) {
	switch cfg.StagingBackend {
	case config.StagingRedis:
		store, err := staging.NewRedisStore(ctx, staging.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.StagingTTL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		store := staging.NewMemoryStore(cfg.StagingTTL, logger.Named("staging"))
		if err := store.Start(); err != nil {
			return nil, nil, err
		}
		return store, store.Stop, nil
	}
}

func newDiscordNotifier() *notifier.DiscordNotifier {
	if cfg.DiscordBotToken == "" || cfg.DiscordModerationChannelID == "" {
		logger.Info("discord notifier disabled")
		return nil
	}
	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		logger.Warn("discord notifier not initialized", zap.Error(err))
		return nil
	}
	return notifier.NewDiscordNotifier(session, cfg.DiscordModerationChannelID, logger.Named("notifier"))
}
