package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"dota-scoreboard/internal/config"
	"dota-scoreboard/internal/constants"
	fxmodules "dota-scoreboard/internal/fx"
	"dota-scoreboard/internal/logger"
	"dota-scoreboard/internal/middleware"
	"dota-scoreboard/internal/server"
	"dota-scoreboard/internal/service"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	apiServer *server.Server,
	stats *service.StatsService,
	cfg *config.Config,
	db *sql.DB,
	log zerolog.Logger,
) {
	log = logger.WithLevel(log, cfg.LogLevel)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	handler := middleware.AccessLog(log)(c.Handler(apiServer.Routes()))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Derived state is rebuilt from the match store before the
			// listener opens, so the first read already sees it.
			if err := stats.Load(ctx); err != nil {
				return fmt.Errorf("load statistics: %w", err)
			}
			go func() {
				log.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing database")
			}
			log.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
