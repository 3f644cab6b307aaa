//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"context"

	"github.com/bionicotaku/lingo-services-reading/internal/controllers"
	loader "github.com/bionicotaku/lingo-services-reading/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-reading/internal/infrastructure/data"
	"github.com/bionicotaku/lingo-services-reading/internal/infrastructure/database"
	"github.com/bionicotaku/lingo-services-reading/internal/repositories"
	"github.com/bionicotaku/lingo-services-reading/internal/server"
	"github.com/bionicotaku/lingo-services-reading/internal/services"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// repositoryBindings 把服务层依赖的接口绑定到具体仓储实现。
var repositoryBindings = wire.NewSet(
	wire.Bind(new(services.ContentReader), new(*repositories.ContentRepository)),
	wire.Bind(new(services.ActivityLedger), new(*repositories.ActivityRepository)),
	wire.Bind(new(services.CompletionGuard), new(*repositories.MarksRepository)),
	wire.Bind(new(services.ProfileStore), new(*repositories.ProfileRepository)),
	wire.Bind(new(services.FollowCounter), new(*repositories.MarksRepository)),
	wire.Bind(new(services.CounterStore), new(*repositories.EngagementCountersRepository)),
	wire.Bind(new(services.ViewGuard), new(*repositories.MarksRepository)),
	wire.Bind(new(services.ViewCache), new(*repositories.RedisViewMarkRepository)),
	wire.Bind(new(services.EngagementMarks), new(*repositories.MarksRepository)),
	wire.Bind(new(services.RankingReader), new(*repositories.RankingRepository)),
	wire.Bind(new(services.TransactionStore), new(*repositories.TransactionRepository)),
)

// wireApp init kratos application.
func wireApp(context.Context, *loader.Bundle, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		loader.ProviderSet,
		database.ProviderSet,
		data.ProviderSet,
		repositories.ProviderSet,
		repositoryBindings,
		services.ProviderSet,
		controllers.ProviderSet,
		server.ProviderSet,
		newApp,
	))
}
