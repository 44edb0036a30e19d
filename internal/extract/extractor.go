package extract

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"cccbdb-harvester/internal/assert"
	"cccbdb-harvester/internal/batch"
	"cccbdb-harvester/internal/cas"
	"cccbdb-harvester/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("cccbdb-harvester/internal/extract")

const (
	report_extractor_read    = "extractor.read"
	report_extractor_parse   = "extractor.parse"
	report_extractor_write   = "extractor.write"
	report_extractor_store   = "extractor.store"
	report_extractor_done    = "extractor.done"
	report_extractor_failed  = "extractor.failed"
	report_extractor_missing = "extractor.missing"
)

type ExtractorOptions struct {
	// DataDir holds the raw pages written by the harvest.
	DataDir   string
	OutputDir string
	// Store is optional.
	Store *Store
	Now   func() time.Time
}

type ExtractSummary struct {
	Done    int
	Failed  int
	Missing int
}

type Extractor struct {
	opts ExtractorOptions
	tel  telemetry.API
}

func NewExtractor(opts ExtractorOptions, tel telemetry.API) Extractor {
	assert.NotEmptyStr(opts.DataDir)
	assert.NotEmptyStr(opts.OutputDir)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return Extractor{
		opts: opts,
		tel:  telemetry.NewScopedAPI("extract", tel),
	}
}

// Run extracts the tables of every id that has a raw page. A page that is
// missing or malformed is reported and counted, it never stops the run.
func (e Extractor) Run(ctx context.Context, ids []cas.Number) (ExtractSummary, error) {
	ctx, span := tracer.Start(ctx, "extractor:Run")
	defer span.End()

	var summary ExtractSummary
	defer func() {
		e.tel.ReportCount(report_extractor_done, int64(summary.Done))
		e.tel.ReportCount(report_extractor_failed, int64(summary.Failed))
		e.tel.ReportCount(report_extractor_missing, int64(summary.Missing))
		span.SetAttributes(
			attribute.Int("done", summary.Done),
			attribute.Int("failed", summary.Failed),
			attribute.Int("missing", summary.Missing),
		)
	}()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		path := batch.RawPath(e.opts.DataDir, id)
		contents, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			e.tel.ReportWarning(report_extractor_missing, id, path)
			summary.Missing++
			continue
		}
		if err != nil {
			e.tel.ReportBroken(report_extractor_read, err, path)
			summary.Failed++
			continue
		}

		err = e.extract(ctx, id, contents)
		if err != nil {
			summary.Failed++
			continue
		}
		e.tel.ReportDebug("extracted", id)
		summary.Done++
	}

	return summary, nil
}

func (e Extractor) extract(ctx context.Context, id cas.Number, contents []byte) error {
	tables, err := Parse(id, contents)
	if err != nil {
		e.tel.ReportWarning(report_extractor_parse, id, err)
		return err
	}

	err = WriteCSV(e.opts.OutputDir, id, tables)
	if err != nil {
		e.tel.ReportBroken(report_extractor_write, err, id)
		return err
	}

	if e.opts.Store != nil {
		err = e.opts.Store.Save(ctx, id, tables, e.opts.Now())
		if err != nil {
			e.tel.ReportBroken(report_extractor_store, err, id)
			return err
		}
	}
	return nil
}
