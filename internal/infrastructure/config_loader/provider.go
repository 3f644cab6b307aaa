package loader

import (
	"time"

	"github.com/bionicotaku/lingo-services-reading/internal/services"

	"github.com/bionicotaku/lingo-utils/observability"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/wire"
)

// ProviderSet exposes configuration-derived dependencies for Wire graphs.
var ProviderSet = wire.NewSet(
	ProvideServiceMetadata,
	ProvideBootstrap,
	ProvideServerConfig,
	ProvideDataConfig,
	ProvideHandlersConfig,
	ProvideObservabilityConfig,
	ProvideTxConfig,
	ProvideLedgerConfig,
	ProvideRankingConfig,
)

// ProvideServiceMetadata returns the resolved ServiceMetadata from the bundle.
func ProvideServiceMetadata(b *Bundle) ServiceMetadata {
	if b == nil {
		return ServiceMetadata{}
	}
	return b.Service
}

// ProvideBootstrap exposes the strongly typed bootstrap configuration.
func ProvideBootstrap(b *Bundle) *Bootstrap {
	if b == nil || b.Bootstrap == nil {
		return &Bootstrap{}
	}
	return b.Bootstrap
}

// ProvideServerConfig returns the server section of the bootstrap configuration.
func ProvideServerConfig(bc *Bootstrap) *Server {
	return &bc.Server
}

// ProvideDataConfig returns the data section of the bootstrap configuration.
func ProvideDataConfig(bc *Bootstrap) *Data {
	return &bc.Data
}

// ProvideHandlersConfig returns the handler timeout section.
func ProvideHandlersConfig(bc *Bootstrap) *Handlers {
	return &bc.Handlers
}

// ProvideObservabilityConfig exposes the normalized observability configuration.
func ProvideObservabilityConfig(b *Bundle) observability.ObservabilityConfig {
	if b == nil {
		return observability.ObservabilityConfig{}
	}
	return b.ObsConfig
}

// ProvideTxConfig exposes the txmanager configuration.
func ProvideTxConfig(b *Bundle) txmanager.Config {
	if b == nil {
		return txmanager.Config{}
	}
	return b.TxConfig
}

// ProvideLedgerConfig converts the ledger section into the service-level config.
// time_zone has already been validated, so LoadLocation failures fall back to UTC.
func ProvideLedgerConfig(bc *Bootstrap) services.LedgerConfig {
	loc, err := time.LoadLocation(bc.Ledger.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	return services.LedgerConfig{
		Location:            loc,
		RereadExtendsStreak: bc.Ledger.RereadExtendsStreak,
		MaxActivityDates:    bc.Ledger.MaxActivityDates,
	}
}

// ProvideRankingConfig converts the ranking section into the service-level config.
func ProvideRankingConfig(bc *Bootstrap) services.RankingConfig {
	floor := services.DefaultRisingViewFloor
	if bc.Ranking.RisingViewFloor != nil {
		floor = *bc.Ranking.RisingViewFloor
	}
	return services.RankingConfig{
		RisingWindow:    bc.Ranking.RisingWindow.Std(),
		RisingViewFloor: floor,
		MaxLimit:        bc.Ranking.MaxLimit,
	}
}
