package fx

import (
	"go.uber.org/fx"

	"dota-scoreboard/internal/config"
	"dota-scoreboard/internal/database"
	"dota-scoreboard/internal/logger"
	"dota-scoreboard/internal/ocr"
	"dota-scoreboard/internal/repository"
	"dota-scoreboard/internal/server"
	"dota-scoreboard/internal/service"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(fx.Annotate(repository.NewMatchRepository, fx.As(new(service.MatchStore)))),
	fx.Provide(fx.Annotate(repository.NewTierOverrideRepository, fx.As(new(service.TierStore)))),
	// external clients
	fx.Provide(ocr.NewClient),
	// svc
	fx.Provide(service.NewStatsService),
	// server
	fx.Provide(server.New),
)
