// Package engine pumps records out of a connector, through field mappings, into a sink.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dataport/internal/connector"
	"dataport/internal/logger"
	"dataport/internal/schema"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultBatchSize = 500

const (
	StatusOK      = "OK"
	StatusMissing = "MISSING DATA"
	StatusFailed  = "FAILED"
)

// Job exports one table or query of a source.
type Job struct {
	Table    string
	Query    connector.QueryOptions
	Mappings []connector.FieldMapping
}

// ExportResult is the verified outcome of one job.
type ExportResult struct {
	Table    string
	Target   int64
	Exported int64
	Rejected int64
	Status   string
	ErrorMsg string
	Errors   []connector.ValidationError
	Elapsed  time.Duration
}

// ExportObserver is told how many records each batch wrote and rejected.
type ExportObserver interface {
	ObserveExport(kind connector.SourceKind, written, rejected int)
}

type Options struct {
	BatchSize int
	// OnProgress is called after every batch with a snapshot of the running job.
	OnProgress func(table string, p connector.ImportProgress)
	Observer   ExportObserver
}

// Plan turns table names into jobs in dependency order, parents first. With no names every
// table of the source is planned.
func Plan(ctx context.Context, c connector.Connector, names []string, mappings []connector.FieldMapping) ([]Job, error) {
	tables, err := c.Tables(ctx)
	if err != nil {
		return nil, err
	}
	tables = schema.SortByDependencies(tables)

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(strings.TrimSpace(n))] = true
	}

	var jobs []Job
	for _, t := range tables {
		if len(wanted) > 0 && !wanted[strings.ToLower(t.Name)] {
			continue
		}
		table := t.Name
		if t.Schema != "" && c.Kind().IsRelational() {
			table = t.Schema + "." + t.Name
		}
		jobs = append(jobs, Job{Table: t.Name, Query: connector.QueryOptions{Table: table}, Mappings: mappings})
	}
	if len(jobs) == 0 && len(names) > 0 {
		return nil, fmt.Errorf("no matching tables found for inputs: %v", names)
	}
	return jobs, nil
}

// Export runs jobs in order. A job that fails is reported and the next one still runs;
// only a sink failure or cancellation stops the whole export.
func Export(ctx context.Context, c connector.Connector, sink Sink, jobs []Job, opts Options) ([]ExportResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	ctx = context.WithValue(ctx, logger.JobIDKey, uuid.NewString())
	log := logger.WithContext(ctx).With(zap.String("component", "engine"), zap.String("source_kind", string(c.Kind())))

	results := make([]ExportResult, 0, len(jobs))
	for _, job := range jobs {
		res, err := exportOne(ctx, c, sink, job, opts, log)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

type sinkError struct{ err error }

func (e *sinkError) Error() string { return e.err.Error() }

func (e *sinkError) Unwrap() error { return e.err }

func exportOne(ctx context.Context, c connector.Connector, sink Sink, job Job, opts Options, log *zap.Logger) (ExportResult, error) {
	start := time.Now()
	log = log.With(zap.String("table", job.Table))
	res := ExportResult{Table: job.Table}
	progress := connector.ImportProgress{Phase: connector.PhasePending}

	total, err := c.RowCount(ctx, job.Query)
	if err != nil {
		log.Error("counting rows failed", zap.Error(err))
		res.Status, res.ErrorMsg = StatusFailed, err.Error()
		return res, ctx.Err()
	}
	res.Target = total
	progress.TotalRows = total
	progress.Phase = connector.PhaseImporting
	log.Info("export started", zap.Int64("rows", total))

	row := 0
	err = c.Stream(ctx, job.Query, opts.BatchSize, func(ctx context.Context, rows []schema.Record) error {
		out := make([]map[string]any, 0, len(rows))
		rejected := 0
		for _, rec := range rows {
			row++
			if len(job.Mappings) == 0 {
				out = append(out, rec.Native())
				progress.Accept()
				continue
			}
			mapped, errs := connector.ApplyMappings(row, rec, job.Mappings)
			if len(errs) > 0 {
				progress.Reject(errs)
				rejected++
				continue
			}
			out = append(out, mapped)
			progress.Accept()
		}

		if len(out) > 0 {
			if err := sink.Write(ctx, job.Table, out); err != nil {
				return &sinkError{err: err}
			}
		}
		if opts.Observer != nil {
			opts.Observer.ObserveExport(c.Kind(), len(out), rejected)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(job.Table, progress)
		}
		return nil
	})

	res.Exported = progress.Imported
	res.Rejected = progress.Errored
	res.Errors = progress.Errors
	res.Elapsed = time.Since(start)

	if err != nil {
		progress.Phase = connector.PhaseFailed
		if opts.OnProgress != nil {
			opts.OnProgress(job.Table, progress)
		}
		res.Status, res.ErrorMsg = StatusFailed, err.Error()
		log.Error("export failed", zap.Error(err), zap.Int64("exported", res.Exported))
		var se *sinkError
		if errors.As(err, &se) {
			return res, se.err
		}
		return res, ctx.Err()
	}

	progress.Phase = connector.PhaseCompleted
	if opts.OnProgress != nil {
		opts.OnProgress(job.Table, progress)
	}
	res.Status = verify(res, progress)
	log.Info("export finished",
		zap.Int64("exported", res.Exported),
		zap.Int64("rejected", res.Rejected),
		zap.String("status", res.Status),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// verify compares what was read with the count taken before the export started.
func verify(res ExportResult, p connector.ImportProgress) string {
	if p.Processed < res.Target {
		return fmt.Sprintf("%s: %d/%d", StatusMissing, p.Processed, res.Target)
	}
	return StatusOK
}
