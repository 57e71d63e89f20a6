package service

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

const (
	toggleMetricName = "vidtube_toggles_total"
	uploadMetricName = "vidtube_media_uploads_total"
	viewMetricName   = "vidtube_video_views_total"
)

var (
	attrKind   = attribute.Key("kind")
	attrResult = attribute.Key("result")
	attrSlot   = attribute.Key("slot")
)

var (
	metricsOnce    sync.Once
	metricsEnabled bool
	toggleCounter  metric.Int64Counter
	uploadCounter  metric.Int64Counter
	viewCounter    metric.Int64Counter
)

// initMetrics binds the counters to the global meter provider. With no
// provider installed the otel default is a no-op, so recording is free.
func initMetrics() {
	metricsOnce.Do(func() {
		provider := otel.GetMeterProvider()
		if provider == nil {
			provider = noopmetric.NewMeterProvider()
		}
		meter := provider.Meter("vidtube.service")

		var err error
		toggleCounter, err = meter.Int64Counter(toggleMetricName,
			metric.WithDescription("Likes and subscriptions toggled, by kind and resulting state"))
		if err != nil {
			return
		}
		uploadCounter, err = meter.Int64Counter(uploadMetricName,
			metric.WithDescription("Files forwarded to the object store, by slot and outcome"))
		if err != nil {
			return
		}
		viewCounter, err = meter.Int64Counter(viewMetricName,
			metric.WithDescription("Video playbacks started"))
		if err != nil {
			return
		}
		metricsEnabled = true
	})
}

func recordToggle(ctx context.Context, kind string, on bool) {
	initMetrics()
	if !metricsEnabled {
		return
	}
	result := "removed"
	if on {
		result = "added"
	}
	toggleCounter.Add(ctx, 1, metric.WithAttributes(attrKind.String(kind), attrResult.String(result)))
}

func recordUpload(ctx context.Context, slot string, err error) {
	initMetrics()
	if !metricsEnabled {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	uploadCounter.Add(ctx, 1, metric.WithAttributes(attrSlot.String(slot), attrResult.String(result)))
}

func recordView(ctx context.Context) {
	initMetrics()
	if !metricsEnabled {
		return
	}
	viewCounter.Add(ctx, 1)
}
