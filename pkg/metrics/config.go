// Package metrics provides the Prometheus registry for the automation
// service: engine, sweep, and HTTP server metrics.
package metrics

// Config holds metrics configuration.
type Config struct {
	// Namespace prefixes every metric name.
	Namespace string

	// EnableProcessMetrics registers the standard process collector.
	EnableProcessMetrics bool

	// EnableRuntimeMetrics registers the Go runtime collector.
	EnableRuntimeMetrics bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Namespace:            "automation",
		EnableProcessMetrics: true,
		EnableRuntimeMetrics: true,
	}
}
