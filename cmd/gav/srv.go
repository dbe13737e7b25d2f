package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gav/internal/blobstore"
	"gav/internal/config"
	"gav/internal/server"
	"gav/internal/store"
)

const shutdownGrace = 10 * time.Second

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the gav API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			policy, err := cfg.ContentPolicy()
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			var bs blobstore.BlobStore
			if cfg.Blob.Enabled {
				cas, err := blobstore.NewLocalCAS(cfg.BlobRoot())
				if err != nil {
					return err
				}
				bs = cas
			} else {
				logger.Info("external storage tier disabled")
			}

			if cfg.Audit.Enabled && cfg.Audit.RetentionDays > 0 {
				cutoff := time.Now().UTC().AddDate(0, 0, -cfg.Audit.RetentionDays)
				if deleted, err := st.PruneAuditEvents(cmd.Context(), cutoff); err != nil {
					logger.Warn("audit prune failed", "error", err)
				} else if deleted > 0 {
					logger.Info("pruned audit events", "deleted", deleted, "cutoff", cutoff)
				}
			}

			srv := server.New(addr, st, bs, policy, logger, server.Options{
				DBPath:             cfg.DBPath,
				AdminTokenHash:     cfg.AdminTokenHash,
				MultipartMaxMemory: cfg.Content.MultipartMaxMemory,
				AuditEnabled:       cfg.Audit.Enabled,
				AuditBuffer:        cfg.Audit.Buffer,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
