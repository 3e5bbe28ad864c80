package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/lexdoc/internal/api"
)

// Handler returns the HTTP API over the wired components.
func (a *App) Handler(log *slog.Logger) http.Handler {
	return api.NewServer(api.Deps{
		Pipeline:   a.Pipeline,
		Index:      a.Index,
		LLM:        a.LLM.Stats(),
		Embeddings: a.Embeddings.Stats,
		Metrics:    a.Metrics,
		Model:      a.claude.Model(),
	}, log, a.Config)
}

// Serve runs the HTTP API until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context, log *slog.Logger) error {
	httpServer := &http.Server{
		Addr:         ":" + a.Config.Port,
		Handler:      a.Handler(log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // uploads run the whole analysis synchronously
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting lexdoc", "port", a.Config.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
