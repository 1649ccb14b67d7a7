package api

import (
	"context"
	"coopcount/internal/counter"
	"coopcount/internal/history"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

func newServer(port int, c *counter.Counter, h *history.Store) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewHandler(c, h).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// RunServer runs the HTTP server until ctx is cancelled, then shuts it down gracefully. This is a blocking call.
func RunServer(ctx context.Context, port int, c *counter.Counter, h *history.Store) error {
	stop, done := RunServerInterruptible(port, c, h)
	select {
	case <-ctx.Done():
		stop <- struct{}{}
		return <-done
	case err := <-done:
		return err
	}
}

// RunServerInterruptible runs the server in the background in a Go routine and immediately returns a chan to
// the caller. The caller can then send a signal to the chan to gracefully shutdown the server.
// It's up to the caller to wait for in the main Go routine to keep the server running.
func RunServerInterruptible(port int, c *counter.Counter, h *history.Store) (stop chan<- struct{}, done <-chan error) {
	srv := newServer(port, c, h)

	// one-shot channels for control & completion
	stopCh := make(chan struct{}, 1)
	doneCh := make(chan error, 1) // buffered so goroutines can finish without blocking
	serveErr := make(chan error, 1)

	// server goroutine
	go func() {
		log.Printf("coopcount listening on %s\n", srv.Addr)
		err := srv.ListenAndServe()
		// http.ErrServerClosed is returned on Shutdown; treat that as clean exit
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	go func() {
		select {
		case <-stopCh:
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx) // graceful; in-flight requests get time to finish
			doneCh <- <-serveErr
		case err := <-serveErr:
			// failed to listen; nothing to shut down
			doneCh <- err
		}
	}()
	return stopCh, doneCh
}
