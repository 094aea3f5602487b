package sink

import (
	"log/slog"

	"github.com/ExactTargetDev/flume/format"
	"github.com/ExactTargetDev/flume/metric"
)

// Dependencies provides the external collaborators a sink needs.
// MetricsRegistry and Logger may be nil; Formats defaults to a fresh
// registry with the built-in formats.
type Dependencies struct {
	Formats         *format.Registry        // Output format catalog
	MetricsRegistry *metric.MetricsRegistry // Metrics registry for Prometheus (can be nil)
	Logger          *slog.Logger            // Structured logger (can be nil, defaults to slog.Default())
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}

// getFormats returns the configured format registry or a fresh one with
// the built-in formats.
func (d *Dependencies) getFormats() *format.Registry {
	if d.Formats != nil {
		return d.Formats
	}
	return format.NewRegistry()
}

// coreMetrics returns the platform metrics or nil when metrics are disabled.
func (d *Dependencies) coreMetrics() *metric.Metrics {
	if d.MetricsRegistry == nil {
		return nil
	}
	return d.MetricsRegistry.CoreMetrics()
}
