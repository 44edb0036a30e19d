// Package batch drives a harvest over a list of CAS numbers, checkpointing
// every outcome so that an interrupted run resumes where it stopped.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"cccbdb-harvester/internal/assert"
	"cccbdb-harvester/internal/cas"
	"cccbdb-harvester/internal/components/telemetry"
	"cccbdb-harvester/internal/registry"
	"cccbdb-harvester/internal/retry"
	"cccbdb-harvester/pkg/fsutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("cccbdb-harvester/internal/batch")

const (
	report_driver_persist = "driver.persist"
	report_driver_fetch   = "driver.fetch"
	report_driver_write   = "driver.write"
	report_driver_mirror  = "driver.mirror"
	report_driver_done    = "driver.done"
	report_driver_failed  = "driver.failed"
	report_driver_skipped = "driver.skipped"
)

// Fetcher performs a single, unretried fetch of the raw page for id.
type Fetcher interface {
	ExperimentalData(ctx context.Context, id cas.Number) ([]byte, error)
}

// Mirror receives a copy of every raw page once it is safely on disk.
type Mirror interface {
	Put(ctx context.Context, name string, contents []byte) error
}

type Options struct {
	RegistryPath string
	OutputDir    string
	// Mirror is optional.
	Mirror Mirror
}

type Summary struct {
	Done    int
	Failed  int
	Skipped int
}

type Driver struct {
	registry *registry.Registry
	fetcher  Fetcher
	retrier  retry.Retrier
	opts     Options
	tel      telemetry.API
}

func NewDriver(
	reg *registry.Registry,
	fetcher Fetcher,
	retrier retry.Retrier,
	opts Options,
	tel telemetry.API,
) Driver {
	assert.NotNil(reg)
	assert.NotNil(fetcher)
	assert.NotNil(tel)
	assert.NoError(retrier.Policy().Validate())
	assert.NotEmptyStr(opts.RegistryPath)
	assert.NotEmptyStr(opts.OutputDir)

	return Driver{
		registry: reg,
		fetcher:  fetcher,
		retrier:  retrier,
		opts:     opts,
		tel:      telemetry.NewScopedAPI("batch", tel),
	}
}

// RawName is the file name the raw page of id is stored under.
func RawName(id cas.Number) string {
	return id.String() + ".html"
}

func RawPath(dir string, id cas.Number) string {
	return filepath.Join(dir, RawName(id))
}

// Run processes ids strictly in order, one at a time. Identifiers already
// done are skipped without any network activity. Every other identifier ends
// up either done or failed in the registry, which is persisted before moving
// on to the next one.
//
// Run only returns an error when the context is cancelled or the registry can
// no longer be persisted, per identifier failures are recorded and skipped.
func (d Driver) Run(ctx context.Context, ids []cas.Number) (Summary, error) {
	ctx, span := tracer.Start(ctx, "driver:Run")
	defer span.End()

	var summary Summary
	defer func() {
		d.tel.ReportCount(report_driver_done, int64(summary.Done))
		d.tel.ReportCount(report_driver_failed, int64(summary.Failed))
		d.tel.ReportCount(report_driver_skipped, int64(summary.Skipped))
		span.SetAttributes(
			attribute.Int("done", summary.Done),
			attribute.Int("failed", summary.Failed),
			attribute.Int("skipped", summary.Skipped),
		)
	}()

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return summary, err
		}

		if d.registry.IsDone(id) {
			summary.Skipped++
			continue
		}

		slog.InfoContext(ctx, "processing", "cas", id, "progress", fmt.Sprintf("%d/%d", i+1, len(ids)))

		err := d.process(ctx, id)
		if ctx.Err() != nil {
			// the outcome of id is unknown, leave it for the next run
			span.SetStatus(codes.Error, "cancelled")
			return summary, ctx.Err()
		}
		if err != nil {
			var exhausted *retry.ExhaustedError
			if errors.As(err, &exhausted) {
				d.tel.ReportBroken(report_driver_fetch, id, err)
			} else {
				d.tel.ReportWarning(report_driver_fetch, id, err)
			}
			d.registry.MarkFailed(id, err.Error())
			summary.Failed++
		} else {
			slog.InfoContext(ctx, "done", "cas", id)
			d.registry.MarkDone(id)
			summary.Done++
		}

		err = d.registry.Persist(d.opts.RegistryPath)
		if err != nil {
			d.tel.ReportBroken(report_driver_persist, err, d.opts.RegistryPath)
			span.SetStatus(codes.Error, "persist registry")
			return summary, err
		}
	}

	return summary, nil
}

// process fetches id with retries and stores the raw page, it returns nil
// only once the page is completely on disk.
func (d Driver) process(ctx context.Context, id cas.Number) error {
	ctx, span := tracer.Start(ctx, "driver:process")
	defer span.End()
	span.SetAttributes(attribute.String("cas", id.String()))

	contents, err := retry.Do(ctx, d.retrier, id.String(), func(ctx context.Context) ([]byte, error) {
		return d.fetcher.ExperimentalData(ctx, id)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch")
		return err
	}

	path := RawPath(d.opts.OutputDir, id)
	err = fsutil.WriteFile(path, contents, 0o644)
	if err != nil {
		d.tel.ReportBroken(report_driver_write, err, path)
		span.SetStatus(codes.Error, "write")
		return fmt.Errorf("store raw result: %w", err)
	}

	if d.opts.Mirror != nil {
		err = d.opts.Mirror.Put(ctx, RawName(id), contents)
		if err != nil {
			// the local copy is the artifact of record, a mirror failure does
			// not fail the identifier
			d.tel.ReportWarning(report_driver_mirror, id, err)
		}
	}

	return nil
}
