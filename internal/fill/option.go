package fill

import (
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"time"
)

type Option func(orchestrator *Orchestrator)

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(orchestrator *Orchestrator) {
		orchestrator.logger = logger
	}
}

func WithMeter(meter metric.Meter) Option {
	return func(orchestrator *Orchestrator) {
		orchestrator.meter = meter
	}
}

func WithMaxDimension(maxDimension int) Option {
	return func(orchestrator *Orchestrator) {
		if maxDimension > 0 {
			orchestrator.maxDimension = maxDimension
		}
	}
}

func WithMaxOriginSize(maxOriginSize uint64) Option {
	return func(orchestrator *Orchestrator) {
		if maxOriginSize > 0 {
			orchestrator.maxOriginSize = maxOriginSize
		}
	}
}

func WithSizelessPolicy(policy SizelessPolicy) Option {
	return func(orchestrator *Orchestrator) {
		orchestrator.sizeless = policy
	}
}

func WithSingleFlight(enabled bool) Option {
	return func(orchestrator *Orchestrator) {
		orchestrator.singleFlight = enabled
	}
}

func WithStoreTimeout(timeout time.Duration) Option {
	return func(orchestrator *Orchestrator) {
		if timeout > 0 {
			orchestrator.storeTimeout = timeout
		}
	}
}

func WithTransformTimeout(timeout time.Duration) Option {
	return func(orchestrator *Orchestrator) {
		if timeout > 0 {
			orchestrator.transformTimeout = timeout
		}
	}
}
