package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"replikeep/internal/app/server/api"
	"replikeep/internal/domain/remote"
	"replikeep/internal/domain/session"
	"replikeep/internal/infrastructure/migration"
	"replikeep/internal/infrastructure/storage/memory"
	"replikeep/internal/infrastructure/storage/postgres"
)

var (
	useMemory   bool
	skipMigrate bool
	runAddress  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP сервер",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if runAddress != "" {
			cfg.Server.RunAddress = runAddress
		}

		repo, closeRepo, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer closeRepo()

		tokens, err := session.NewService(cfg.Auth.Secret, cfg.Auth.TokenTTL, log)
		if err != nil {
			return fmt.Errorf("init tokens: %w", err)
		}

		mux := api.New(repo, tokens, log, &remote.ServiceConfig{
			BatchSize:       cfg.Sync.BatchSize,
			MaxBatchSize:    cfg.Sync.MaxBatchSize,
			MaxQueryRecords: cfg.Sync.MaxQueryRecords,
		})

		srv := &http.Server{
			Addr:              cfg.Server.RunAddress,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("server started", "address", cfg.Server.RunAddress, "env", cfg.Env, "memory", useMemory)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("listen: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("server stopped")
		return nil
	},
}

func openRepository(ctx context.Context) (remote.Repository, func(), error) {
	if useMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.NewRemoteRepository(), func() {}, nil
	}

	if cfg.DB.DatabaseURI == "" {
		return nil, nil, errors.New("DATABASE_URI is required, or pass --memory")
	}

	if !skipMigrate {
		if err := migration.NewMigration(cfg.DB.Migrations, cfg.DB.DatabaseURI, nil).Up(); err != nil {
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	storage, err := postgres.New(ctx, cfg.DB.DatabaseURI, log)
	if err != nil {
		return nil, nil, err
	}
	return storage.Remote(), func() { _ = storage.Close() }, nil
}

func init() {
	serveCmd.Flags().BoolVar(&useMemory, "memory", false, "хранить данные в памяти (без PostgreSQL)")
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "не применять миграции при старте")
	serveCmd.Flags().StringVarP(&runAddress, "address", "a", "", "адрес для прослушивания (перекрывает RUN_ADDRESS)")
}
