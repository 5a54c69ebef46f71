package vecforge

import (
	"context"
	"os"
	"time"
)

// Write serializes the CPU bundle's ID-mapped index to path in the engine's
// native binary format and releases the bundle. Release is a guaranteed side
// effect of the call: it happens after the write attempt whether the write
// succeeded or failed, so the bundle is dead when Write returns.
//
// Failures are returned as a *SerializationError; IO distinguishes
// filesystem causes from unexpected writer failures.
func (b *Builder) Write(ctx context.Context, cpu *CPUBundle, path string) error {
	start := time.Now()
	err := b.write(ctx, cpu, path)

	var size int64
	if err == nil {
		if info, statErr := os.Stat(path); statErr == nil {
			size = info.Size()
		}
	}
	b.metrics.RecordWrite(size, time.Since(start), err)
	b.logger.LogWrite(ctx, path, err)
	return err
}

func (b *Builder) write(ctx context.Context, cpu *CPUBundle, path string) (err error) {
	if cpu == nil {
		return serErr(path, ErrNilBundle)
	}
	if cpu.Released() {
		return serErr(path, ErrBundleReleased)
	}

	// Release unconditionally after the write attempt. A release failure is
	// a double-free bug; it is reported when the write itself succeeded and
	// logged otherwise so it never masks the write error.
	defer func() {
		relErr := cpu.Release()
		if relErr == nil {
			return
		}
		if err == nil {
			err = relErr
		} else {
			b.logger.ErrorContext(ctx, "cpu bundle release failed", "error", relErr)
		}
	}()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return serErr(path, ctxErr)
	}

	if writeErr := b.family.writeIndex(cpu.IDMap, path, b.opts.writeOpts...); writeErr != nil {
		return serErr(path, writeErr)
	}
	return nil
}
