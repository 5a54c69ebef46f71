package vecforge

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/vecforge/vecforge/blobstore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Uploader pushes serialized index files to a blob store. It paces IO
// against a configurable byte budget and fans out across files with bounded
// concurrency.
type Uploader struct {
	store       blobstore.Store
	limiter     *rate.Limiter
	concurrency int
	logger      *Logger
	metrics     MetricsCollector
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithUploadConcurrency bounds the number of files uploaded in parallel.
func WithUploadConcurrency(n int) UploaderOption {
	return func(u *Uploader) { u.concurrency = n }
}

// WithUploadRateLimit caps upload throughput in bytes per second.
// Zero means unlimited.
func WithUploadRateLimit(bytesPerSec int64) UploaderOption {
	return func(u *Uploader) {
		if bytesPerSec > 0 {
			u.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), int(bytesPerSec))
		}
	}
}

// WithUploadLogger sets the logger.
func WithUploadLogger(logger *Logger) UploaderOption {
	return func(u *Uploader) { u.logger = logger }
}

// WithUploadMetrics sets the metrics collector.
func WithUploadMetrics(metrics MetricsCollector) UploaderOption {
	return func(u *Uploader) { u.metrics = metrics }
}

// NewUploader creates an Uploader on the given store.
func NewUploader(store blobstore.Store, optFns ...UploaderOption) *Uploader {
	u := &Uploader{
		store:       store,
		concurrency: 4,
		logger:      NoopLogger(),
		metrics:     NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(u)
	}
	if u.concurrency <= 0 {
		u.concurrency = 1
	}
	return u
}

// NewBuildID returns a fresh identifier for a build job. Upload object names
// embed it so concurrent builds never collide.
func NewBuildID() string {
	return uuid.NewString()
}

// UploadFile uploads the file at path under name.
func (u *Uploader) UploadFile(ctx context.Context, name, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %q: %w", path, err)
	}
	size := info.Size()

	if err := u.acquireIO(ctx, size); err != nil {
		return err
	}

	start := time.Now()
	err = u.store.PutFile(ctx, name, path)
	u.metrics.RecordUpload(size, time.Since(start), err)
	u.logger.LogUpload(ctx, name, size, err)
	if err != nil {
		return fmt.Errorf("failed to upload %q: %w", name, err)
	}
	return nil
}

// UploadAll uploads the given files, keyed by object name. Files upload
// concurrently; the first error cancels the remaining uploads.
func (u *Uploader) UploadAll(ctx context.Context, files map[string]string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for name, path := range files {
		g.Go(func() error {
			return u.UploadFile(ctx, name, path)
		})
	}

	return g.Wait()
}

// acquireIO charges size bytes against the rate limiter. WaitN caps the
// request at the limiter burst, so large files are charged in burst-sized
// slices.
func (u *Uploader) acquireIO(ctx context.Context, size int64) error {
	if u.limiter == nil {
		return nil
	}

	burst := int64(u.limiter.Burst())
	for size > 0 {
		n := size
		if n > burst {
			n = burst
		}
		if err := u.limiter.WaitN(ctx, int(n)); err != nil {
			return err
		}
		size -= n
	}
	return nil
}
