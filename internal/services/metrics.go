package services

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "lingo-services-reading/services"

	metricNameCompletions    = "reading_chapter_completions_total"
	metricNameDuplicates     = "reading_completion_duplicates_total"
	metricNameViews          = "reading_views_total"
	metricNameCounterClamped = "reading_counter_clamped_total"
	metricNameDegraded       = "reading_read_degraded_total"
)

// LedgerMetrics 汇总账本相关的 OpenTelemetry 指标。
type LedgerMetrics struct {
	completions metric.Int64Counter
	duplicates  metric.Int64Counter
	views       metric.Int64Counter
	clamped     metric.Int64Counter
	degraded    metric.Int64Counter
	enabled     bool
}

// NewLedgerMetrics 基于全局 MeterProvider 注册指标。
func NewLedgerMetrics(logger log.Logger) *LedgerMetrics {
	return newLedgerMetrics(otel.GetMeterProvider().Meter(meterName), log.NewHelper(logger))
}

// NewLedgerMetricsWithMeter 使用指定 Meter 注册指标，主要用于测试。
func NewLedgerMetricsWithMeter(meter metric.Meter, logger log.Logger) *LedgerMetrics {
	return newLedgerMetrics(meter, log.NewHelper(logger))
}

func newLedgerMetrics(meter metric.Meter, helper *log.Helper) *LedgerMetrics {
	m := &LedgerMetrics{}
	if meter == nil {
		return m
	}

	var err error
	if m.completions, err = meter.Int64Counter(metricNameCompletions,
		metric.WithDescription("Number of first-time chapter completions")); err != nil {
		helper.Warnf("ledger metrics: register completions counter: %v", err)
		return m
	}
	if m.duplicates, err = meter.Int64Counter(metricNameDuplicates,
		metric.WithDescription("Number of completion reports ignored as duplicates")); err != nil {
		helper.Warnf("ledger metrics: register duplicates counter: %v", err)
	}
	if m.views, err = meter.Int64Counter(metricNameViews,
		metric.WithDescription("Number of view reports by outcome")); err != nil {
		helper.Warnf("ledger metrics: register views counter: %v", err)
	}
	if m.clamped, err = meter.Int64Counter(metricNameCounterClamped,
		metric.WithDescription("Number of counter updates clamped at zero")); err != nil {
		helper.Warnf("ledger metrics: register clamped counter: %v", err)
	}
	if m.degraded, err = meter.Int64Counter(metricNameDegraded,
		metric.WithDescription("Number of ranking or analytics reads served degraded")); err != nil {
		helper.Warnf("ledger metrics: register degraded counter: %v", err)
	}
	m.enabled = true
	return m
}

func (m *LedgerMetrics) recordCompletion(ctx context.Context, fresh bool) {
	if m == nil || !m.enabled {
		return
	}
	if fresh {
		if m.completions != nil {
			m.completions.Add(ctx, 1)
		}
		return
	}
	if m.duplicates != nil {
		m.duplicates.Add(ctx, 1)
	}
}

func (m *LedgerMetrics) recordView(ctx context.Context, counted, anonymous bool) {
	if m == nil || !m.enabled || m.views == nil {
		return
	}
	m.views.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("counted", counted),
		attribute.Bool("anonymous", anonymous),
	))
}

func (m *LedgerMetrics) recordClamped(ctx context.Context, entityType string) {
	if m == nil || !m.enabled || m.clamped == nil {
		return
	}
	m.clamped.Add(ctx, 1, metric.WithAttributes(attribute.String("entity_type", entityType)))
}

func (m *LedgerMetrics) recordDegraded(ctx context.Context, operation string) {
	if m == nil || !m.enabled || m.degraded == nil {
		return
	}
	m.degraded.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
