package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/conorfennell/cramly/internal/export"
	"github.com/conorfennell/cramly/internal/storage"
	"github.com/conorfennell/cramly/internal/web"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the flashcard API over HTTP",
		Long: "Serve generation, refinement and the deck library over HTTP. Deck routes\n" +
			"identify their owner through the " + web.UserHeader + " header.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctx.config.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			return ctx.withStore(func(db *storage.DB) error {
				client := ctx.llmClient()
				srv := web.NewServer(web.Deps{
					Generator: client,
					Refiner:   client,
					Store:     db,
					Saver:     ctx.saver(db),
					Exporter:  export.New(),
					Logger:    ctx.logger,
				})
				return serve(cmd.Context(), ctx, &http.Server{
					Addr:              ctx.config.Server.Addr,
					Handler:           srv,
					ReadHeaderTimeout: 10 * time.Second,
				})
			})
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default 127.0.0.1:8080)")
	return cmd
}

// serve runs httpServer until ctx is cancelled, then drains it.
func serve(ctx context.Context, cc *commandContext, httpServer *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		cc.logger.Info("http server listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	cc.logger.Info("http server shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
