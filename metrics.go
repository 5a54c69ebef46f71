package vecforge

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems.
type MetricsCollector interface {
	// RecordConvert is called after each GPU to CPU conversion.
	// vectors is the converted vector count, err is nil on success.
	RecordConvert(dtype DataType, vectors int64, duration time.Duration, err error)

	// RecordWrite is called after each index file write.
	// bytes is the on-disk size, err is nil on success.
	RecordWrite(bytes int64, duration time.Duration, err error)

	// RecordUpload is called after each object-store upload.
	RecordUpload(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordConvert(DataType, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordWrite(int64, time.Duration, error)             {}
func (NoopMetricsCollector) RecordUpload(int64, time.Duration, error)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ConvertCount      atomic.Int64
	ConvertErrors     atomic.Int64
	ConvertVectors    atomic.Int64
	ConvertTotalNanos atomic.Int64
	WriteCount        atomic.Int64
	WriteErrors       atomic.Int64
	WriteBytes        atomic.Int64
	UploadCount       atomic.Int64
	UploadErrors      atomic.Int64
	UploadBytes       atomic.Int64
}

// RecordConvert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordConvert(_ DataType, vectors int64, duration time.Duration, err error) {
	b.ConvertCount.Add(1)
	b.ConvertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ConvertErrors.Add(1)
		return
	}
	b.ConvertVectors.Add(vectors)
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(bytes int64, _ time.Duration, err error) {
	b.WriteCount.Add(1)
	if err != nil {
		b.WriteErrors.Add(1)
		return
	}
	b.WriteBytes.Add(bytes)
}

// RecordUpload implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpload(bytes int64, _ time.Duration, err error) {
	b.UploadCount.Add(1)
	if err != nil {
		b.UploadErrors.Add(1)
		return
	}
	b.UploadBytes.Add(bytes)
}
