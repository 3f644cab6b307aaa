package server

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	kmetrics "github.com/go-kratos/kratos/v2/middleware/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "lingo-services-reading/http"

// Telemetry 聚合 HTTP 服务端的请求计数与耗时直方图。
// MeterProvider 由 observability.Init 设置为全局实例，未启用 metrics 时为 noop。
type Telemetry struct {
	RequestCounter   metric.Int64Counter
	SecondsHistogram metric.Float64Histogram
}

// NewTelemetry 基于全局 MeterProvider 创建 Kratos 默认的服务端指标。
func NewTelemetry(logger log.Logger) *Telemetry {
	return NewTelemetryWithMeter(otel.GetMeterProvider().Meter(meterName), logger)
}

// NewTelemetryWithMeter 使用指定 Meter 创建指标，注册失败时降级为不采集。
func NewTelemetryWithMeter(meter metric.Meter, logger log.Logger) *Telemetry {
	helper := log.NewHelper(logger)
	requestCounter, err := kmetrics.DefaultRequestsCounter(meter, kmetrics.DefaultServerRequestsCounterName)
	if err != nil {
		helper.Warnf("server metrics disabled: requests counter: %v", err)
		return &Telemetry{}
	}
	secondsHistogram, err := kmetrics.DefaultSecondsHistogram(meter, kmetrics.DefaultServerSecondsHistogramName)
	if err != nil {
		helper.Warnf("server metrics disabled: seconds histogram: %v", err)
		return &Telemetry{}
	}
	return &Telemetry{RequestCounter: requestCounter, SecondsHistogram: secondsHistogram}
}

// Middleware 返回 Kratos metrics 中间件；指标不可用时返回 nil。
func (t *Telemetry) Middleware() middleware.Middleware {
	if t == nil || t.RequestCounter == nil || t.SecondsHistogram == nil {
		return nil
	}
	return kmetrics.Server(
		kmetrics.WithRequests(t.RequestCounter),
		kmetrics.WithSeconds(t.SecondsHistogram),
	)
}
