package loader

import "time"

const (
	// defaultConfPath is the fallback configuration directory when no overrides are provided.
	defaultConfPath = "configs"
	// envConfPath is the env var name that overrides configuration directory when flag is absent.
	envConfPath = "CONF_PATH"
	// defaultEnvironment is used when APP_ENV is missing.
	defaultEnvironment = "development"
	// defaultServiceName is used when neither ldflags nor SERVICE_NAME provide one.
	defaultServiceName = "lingo-services-reading"
	// defaultServiceVersion is used when neither ldflags nor SERVICE_VERSION provide one.
	defaultServiceVersion = "dev"

	defaultHTTPAddr         = "0.0.0.0:8000"
	defaultHTTPTimeout      = 5 * time.Second
	defaultSchema           = "reading"
	defaultTimeZone         = "UTC"
	defaultMaxActivityDates = 365
	defaultRisingWindow     = 30 * 24 * time.Hour
	defaultRisingViewFloor  = int64(100)
	defaultRankingMaxLimit  = 100
	defaultRedisDialTimeout = 2 * time.Second
	defaultViewMarkTTL      = 24 * time.Hour
)

// applyDefaults 为缺省字段填充默认值。
func applyDefaults(bc *Bootstrap) {
	if bc.Server.HTTP.Addr == "" {
		bc.Server.HTTP.Addr = defaultHTTPAddr
	}
	if bc.Server.HTTP.Timeout == 0 {
		bc.Server.HTTP.Timeout = Duration(defaultHTTPTimeout)
	}
	if bc.Data.Postgres.Schema == "" {
		bc.Data.Postgres.Schema = defaultSchema
	}
	if bc.Data.Redis.DialTimeout == 0 {
		bc.Data.Redis.DialTimeout = Duration(defaultRedisDialTimeout)
	}
	if bc.Data.Redis.ViewMarkTTL == 0 {
		bc.Data.Redis.ViewMarkTTL = Duration(defaultViewMarkTTL)
	}
	if bc.Ledger.TimeZone == "" {
		bc.Ledger.TimeZone = defaultTimeZone
	}
	if bc.Ledger.MaxActivityDates == 0 {
		bc.Ledger.MaxActivityDates = defaultMaxActivityDates
	}
	if bc.Ranking.RisingWindow == 0 {
		bc.Ranking.RisingWindow = Duration(defaultRisingWindow)
	}
	if bc.Ranking.RisingViewFloor == nil {
		floor := defaultRisingViewFloor
		bc.Ranking.RisingViewFloor = &floor
	}
	if bc.Ranking.MaxLimit == 0 {
		bc.Ranking.MaxLimit = defaultRankingMaxLimit
	}
}
