// Package logger 构造带 trace/span 标注的结构化日志实例。
package logger

import (
	"context"
	"os"

	"github.com/bionicotaku/lingo-services-reading/internal/metadata"

	gclog "github.com/bionicotaku/lingo-utils/gclog"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/trace"
)

const envLogLevel = "LOG_LEVEL"

// Config 描述日志的服务标签与输出级别。
type Config struct {
	Service string
	Version string
	HostID  string
	Env     string
	// Level 为最低输出级别（debug/info/warn/error），为空时读取 LOG_LEVEL，默认 info。
	Level string
}

// NewLogger builds a Kratos-compatible logger. 每条日志附带 trace/span 与调用方 user_id/request_id。
func NewLogger(cfg Config) (log.Logger, error) {
	baseLogger, err := gclog.NewLogger(
		gclog.WithService(cfg.Service),
		gclog.WithVersion(cfg.Version),
		gclog.WithEnvironment(cfg.Env),
		gclog.WithStaticLabels(map[string]string{"service.id": cfg.HostID}),
		gclog.EnableSourceLocation(),
	)
	if err != nil {
		return nil, err
	}

	level := cfg.Level
	if level == "" {
		level = os.Getenv(envLogLevel)
	}
	if level == "" {
		level = "info"
	}

	return log.NewFilter(
		log.With(
			baseLogger,
			"trace_id", traceIDValuer(),
			"span_id", spanIDValuer(),
			"user_id", userIDValuer(),
			"request_id", requestIDValuer(),
		),
		log.FilterLevel(log.ParseLevel(level)),
	), nil
}

func traceIDValuer() log.Valuer {
	return func(ctx context.Context) interface{} {
		sc := trace.SpanContextFromContext(ctx)
		if sc.HasTraceID() {
			return sc.TraceID().String()
		}
		return ""
	}
}

func spanIDValuer() log.Valuer {
	return func(ctx context.Context) interface{} {
		sc := trace.SpanContextFromContext(ctx)
		if sc.HasSpanID() {
			return sc.SpanID().String()
		}
		return ""
	}
}

// userIDValuer 输出调用方用户 ID，匿名或未经控制器的上下文输出空串。
func userIDValuer() log.Valuer {
	return func(ctx context.Context) interface{} {
		c, ok := metadata.CallerFrom(ctx)
		if !ok || c.Anonymous() {
			return ""
		}
		return c.UserID.String()
	}
}

func requestIDValuer() log.Valuer {
	return func(ctx context.Context) interface{} {
		c, _ := metadata.CallerFrom(ctx)
		return c.RequestID
	}
}
