package controllers

import (
	loader "github.com/bionicotaku/lingo-services-reading/internal/infrastructure/config_loader"

	"github.com/google/wire"
)

// ProviderSet exposes controller/handler constructors for DI.
var ProviderSet = wire.NewSet(
	ProvideHandlerTimeouts,
	NewBaseHandler,
	NewLedgerHandler,
	NewEngagementHandler,
	NewRankingHandler,
	NewRouteRegistrars,
)

// ProvideHandlerTimeouts 将 handlers 配置段转换为 HandlerTimeouts。
func ProvideHandlerTimeouts(c *loader.Handlers) HandlerTimeouts {
	if c == nil {
		return HandlerTimeouts{}
	}
	return HandlerTimeouts{
		Default: c.DefaultTimeout.Std(),
		Command: c.CommandTimeout.Std(),
		Query:   c.QueryTimeout.Std(),
	}
}
