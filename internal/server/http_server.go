package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oggyb/miahui/internal/config"
)

// NewHTTPServer serves the websocket feed on /ws and a liveness probe on /healthz.
func NewHTTPServer(cfg *config.Config, feed http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", feed)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// StartHTTPServer serves until ctx is done, then shuts down gracefully.
func StartHTTPServer(ctx context.Context, srv *http.Server) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
