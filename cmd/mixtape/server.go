package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"mixtape/internal/app/playlists"
	"mixtape/internal/app/recommend"
	"mixtape/internal/app/tags"
	"mixtape/internal/app/tracks"
	"mixtape/internal/config"
	"mixtape/internal/http/middleware"
	"mixtape/internal/httpapi"
	"mixtape/internal/store"
)

const (
	rateLimitIdleTTL = 10 * time.Minute
	shutdownTimeout  = 15 * time.Second
)

// Serve runs the HTTP API until SIGINT or SIGTERM.
func (r *runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	docs, err := r.openStore(ctx, cmd.Bool("migrate"))
	if err != nil {
		return err
	}
	defer docs.Close()

	limiter := middleware.NewKeyedRateLimiter(r.cfg.RateLimit.RequestsPerSecond, r.cfg.RateLimit.Burst, rateLimitIdleTTL)
	defer limiter.Stop()

	addr := r.cfg.Server.Addr()
	if override := cmd.String("addr"); override != "" {
		addr = override
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newHTTPHandler(r.cfg, docs, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Zerolog().Info().
			Str("addr", addr).
			Str("backend", r.cfg.Store.Backend).
			Str("env", r.cfg.Env).
			Msg("API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func newHTTPHandler(cfg *config.Config, docs store.DocumentStore, limiter *middleware.KeyedRateLimiter) http.Handler {
	playlistSvc := playlists.New(docs)
	trackSvc := tracks.New(docs)
	tagSvc := tags.New(docs)
	recommendSvc := recommend.New(docs)

	api := httpapi.New(playlistSvc, trackSvc, tagSvc, recommendSvc)

	return middleware.Chain(api.Routes(),
		middleware.RequestLogging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.Identity([]byte(cfg.Security.JWTSecret)),
		middleware.RateLimit(limiter),
	)
}
