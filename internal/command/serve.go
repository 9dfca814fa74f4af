package command

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/config"
	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/router"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local JSON API",
		Long:  "Serve collections, favorites, like toggles and notices over HTTP. Configuration files are watched and reapplied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			logger := ctx.Logger.Logger
			cfg := ctx.Config

			if watcher, err := config.NewWatcher(ctx.Loader, cfg, logger); err != nil {
				logger.Warn("Configuration hot reloading disabled", zap.Error(err))
			} else {
				watcher.OnChange(ctx.ApplyConfig)
				defer watcher.Stop()
			}

			srv := router.Server(cfg.Address(), ctx.Router, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting server",
					zap.String("address", srv.Addr),
					zap.String("environment", string(cfg.Environment)),
					zap.String("backend", cfg.Store.Backend),
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err, ok := <-errCh:
				if ok {
					return writeCommandError(cmd, err)
				}
				return nil
			case <-sigCtx.Done():
			}

			logger.Info("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server shutdown error", zap.Error(err))
				return err
			}
			logger.Info("Server stopped")
			return nil
		},
	}
	return cmd
}
