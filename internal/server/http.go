// Package server 组装 HTTP Server、中间件链与健康检查端点。
package server

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/bionicotaku/lingo-services-reading/internal/controllers"
	loader "github.com/bionicotaku/lingo-services-reading/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-reading/internal/infrastructure/database"
	"github.com/bionicotaku/lingo-services-reading/internal/views"

	obsTrace "github.com/bionicotaku/lingo-utils/observability/tracing"
	"github.com/go-kratos/kratos/v2/encoding"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/metadata"
	"github.com/go-kratos/kratos/v2/middleware/ratelimit"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewTelemetry, NewReadiness, NewHTTPServer)

const readinessTimeout = 3 * time.Second

// Readiness 汇总 /readyz 需要探测的依赖。Redis 为可选依赖，未配置时跳过。
type Readiness struct {
	pool  *pgxpool.Pool
	redis *goredis.Client
	log   *log.Helper
}

// NewReadiness 构造就绪探针。
func NewReadiness(pool *pgxpool.Pool, redis *goredis.Client, logger log.Logger) *Readiness {
	return &Readiness{pool: pool, redis: redis, log: log.NewHelper(logger)}
}

// Check 依次探测 Postgres 与 Redis。
func (r *Readiness) Check(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	if err := database.HealthCheck(ctx, r.pool, nil); err != nil {
		r.log.WithContext(ctx).Warnf("readiness: postgres: %v", err)
		return err
	}
	if r.redis != nil {
		if err := r.redis.Ping(ctx).Err(); err != nil {
			r.log.WithContext(ctx).Warnf("readiness: redis: %v", err)
			return err
		}
	}
	return nil
}

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *loader.Server, routes []controllers.RouteRegistrar, ready *Readiness, telemetry *Telemetry, logger log.Logger) *http.Server {
	chain := []middleware.Middleware{
		obsTrace.Server(),
		recovery.Recovery(),
		metadata.Server(
			metadata.WithPropagatedPrefix("x-md-"),
		),
		ratelimit.Server(),
	}
	if m := telemetry.Middleware(); m != nil {
		chain = append(chain, m)
	}
	chain = append(chain, logging.Server(logger))

	var opts = []http.ServerOption{
		http.Middleware(chain...),
	}
	if c != nil {
		if c.HTTP.Network != "" {
			opts = append(opts, http.Network(c.HTTP.Network))
		}
		if c.HTTP.Addr != "" {
			opts = append(opts, http.Address(c.HTTP.Addr))
		}
		if d := c.HTTP.Timeout.Std(); d > 0 {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)

	srv.Handle("/healthz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		writeHealth(w, nil)
	}))

	srv.Handle("/readyz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		writeHealth(w, ready.Check(r.Context()))
	}))

	router := srv.Route("/")
	for _, reg := range routes {
		reg.RegisterRoutes(router)
	}
	return srv
}

func writeHealth(w stdhttp.ResponseWriter, err error) {
	status := stdhttp.StatusOK
	if err != nil {
		status = stdhttp.StatusServiceUnavailable
	}
	body, _ := encoding.GetCodec("json").Marshal(views.NewHealthResponse(err, time.Now()))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
