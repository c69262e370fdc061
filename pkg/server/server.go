// Package server runs an HTTP server until the process is signalled.
package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// Run serves srv until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests.
func Run(ctx context.Context, name string, srv *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting "+name+" service", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down " + name + " service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
