package vecforge

import "github.com/vecforge/vecforge/cagra"

type options struct {
	logger    *Logger
	metrics   MetricsCollector
	writeOpts []cagra.WriteOption
}

// Option configures a Builder.
type Option func(*options)

// WithLogger configures structured logging for conversion and write
// operations. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector. Pass nil to disable
// metrics collection.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithWriteOptions forwards options to the index serializer, e.g.
// cagra.WithCompression(cagra.CompressionZSTD).
func WithWriteOptions(opts ...cagra.WriteOption) Option {
	return func(o *options) {
		o.writeOpts = append(o.writeOpts, opts...)
	}
}
