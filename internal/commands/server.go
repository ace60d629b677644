package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evalgo.org/lixiv/internal/api"
	"evalgo.org/lixiv/internal/kind"
	"evalgo.org/lixiv/internal/storage"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the HTTP API server.

The kind catalog is loaded from the database at startup. When
catalog.file is set, kinds from that file that are not stored yet are
imported first.`,
	RunE: runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	// Initialize storage layer
	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	reg, err := loadCatalog(ctx, store, logger)
	if err != nil {
		store.Close()
		return err
	}

	// Create API server
	server := api.New(cfg, store, reg, logger)

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")

		// Create shutdown context with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return nil

	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// loadCatalog imports the configured kinds file, if any, and builds the
// registry from storage. A file that does not fit the stored catalog is
// rejected without touching storage.
func loadCatalog(ctx context.Context, store *storage.Storage, logger *zap.Logger) (*kind.Registry, error) {
	if cfg.Catalog.File != "" {
		data, err := os.ReadFile(cfg.Catalog.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
		file, err := kind.ParseCatalog(data)
		if err != nil {
			return nil, err
		}
		if _, err := store.ImportCatalog(ctx, file, catalogOptions()...); err != nil {
			return nil, fmt.Errorf("failed to import catalog: %w", err)
		}
	}

	reg, err := store.LoadRegistry(ctx, catalogOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	logger.Info("Catalog loaded",
		zap.Int("kinds", reg.Len()),
		zap.Bool("inherit_fields", reg.InheritsFields()))
	return reg, nil
}

func catalogOptions() []kind.Option {
	if cfg.Catalog.InheritFields {
		return []kind.Option{kind.WithInheritedFields()}
	}
	return nil
}
