// Package pipeline drives the per-run table loads: the fixed-column core
// table and the dynamically-schemed extraction targets, each materialized by
// drop-and-recreate and filled row by row.
//
// The pipeline is single-threaded and stateless between runs. Targets are
// processed strictly in sequence; a failure in one target's table is logged
// and contained there, so later targets still run. Only the store connection
// itself is shared, and losing it is the caller's (fatal) problem.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gustavo84/jira-database-etl/internal/config"
	"github.com/gustavo84/jira-database-etl/internal/extract"
	"github.com/gustavo84/jira-database-etl/internal/metrics"
	"github.com/gustavo84/jira-database-etl/internal/storage"
	"github.com/gustavo84/jira-database-etl/pkg/records"
)

// flatSuffix derives the flattened changelog table name from its source
// target's name.
const flatSuffix = "_flat"

// Pipeline owns the table loads for one run.
type Pipeline struct {
	job  string
	repo storage.Repository
}

// New builds a Pipeline writing through repo. The job name labels metrics
// and log lines.
func New(job string, repo storage.Repository) *Pipeline {
	return &Pipeline{job: job, repo: repo}
}

// LoadCore projects every issue document onto the fixed core columns and
// loads them into table. Skipped (with a warning) when no documents exist.
func (p *Pipeline) LoadCore(ctx context.Context, table string, docs []records.Record) error {
	rows := extract.CoreRows(docs)
	if len(rows) == 0 {
		log.Printf("pipeline: no issues for core table %s; skipping", table)
		return nil
	}

	start := time.Now()
	n, err := p.loadTable(ctx, table, extract.CoreColumns, rows)
	metrics.RecordStep(p.job, "core", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("pipeline: core table %s: %w", table, err)
	}
	metrics.RecordRow(p.job, "inserted", n)
	metrics.RecordBatches(p.job, 1)
	log.Printf("pipeline: loaded %d rows into %s", n, table)
	return nil
}

// LoadDynamic runs every configured extraction target in order: gather rows
// across all documents, infer the column set, recreate the table, load the
// rows. A target yielding zero rows is skipped without creating a table.
// When a target is the designated changelog source its rows are additionally
// flattened into "<table>_flat".
//
// Failures are contained per target; LoadDynamic only returns an error when
// the context is canceled.
func (p *Pipeline) LoadDynamic(ctx context.Context, cfg config.Dynamic, docs []records.Record) error {
	var failed int
	for _, target := range cfg.Tables {
		if err := ctx.Err(); err != nil {
			return err
		}

		log.Printf("pipeline: extracting dynamic table %s from %s", target.Table, target.Path)
		rows := extract.Gather(docs, target.Path)
		if len(rows) == 0 {
			log.Printf("pipeline: no rows for %s; skipping", target.Table)
			continue
		}

		cols := extract.InferColumns(rows)
		start := time.Now()
		n, err := p.loadTable(ctx, target.Table, cols, rows)
		metrics.RecordStep(p.job, target.Table, err, time.Since(start))
		if err != nil {
			log.Printf("pipeline: table %s failed: %v", target.Table, err)
			failed++
			continue
		}
		metrics.RecordRow(p.job, "inserted", n)
		metrics.RecordBatches(p.job, 1)
		log.Printf("pipeline: loaded %d rows into %s", n, target.Table)

		if target.Table == cfg.ChangelogTable {
			if err := p.loadFlattened(ctx, target.Table, rows); err != nil {
				log.Printf("pipeline: table %s%s failed: %v", target.Table, flatSuffix, err)
				failed++
			}
		}
	}

	if failed > 0 {
		log.Printf("pipeline: %d of %d dynamic targets failed; see errors above", failed, len(cfg.Tables))
	}
	return nil
}

// loadFlattened materializes the fixed-schema changelog projection derived
// from the rows already gathered for the changelog target. Like any target,
// zero rows means no table.
func (p *Pipeline) loadFlattened(ctx context.Context, source string, rows []records.Record) error {
	flat := extract.FlattenChangelog(rows)
	if len(flat) == 0 {
		return nil
	}

	table := source + flatSuffix
	start := time.Now()
	n, err := p.loadTable(ctx, table, extract.FlatColumns, flat)
	metrics.RecordStep(p.job, table, err, time.Since(start))
	if err != nil {
		return err
	}
	metrics.RecordRow(p.job, "inserted", n)
	metrics.RecordBatches(p.job, 1)
	log.Printf("pipeline: loaded %d flattened rows into %s", n, table)
	return nil
}

// loadTable is the materialize-then-load step shared by every table: encode
// the keyed rows into positional text-safe values, drop and recreate the
// table, insert. The recreate commits independently of the insert; a crash
// in between leaves an empty table, repaired by the next run's recreate.
func (p *Pipeline) loadTable(ctx context.Context, table string, cols []string, recs []records.Record) (int64, error) {
	rows, err := storage.EncodeRows(cols, recs)
	if err != nil {
		return 0, err
	}
	if err := p.repo.RecreateTable(ctx, table, cols); err != nil {
		return 0, err
	}
	log.Printf("pipeline: created table %s columns=%d fingerprint=%s",
		table, len(cols), extract.Fingerprint(cols))
	return p.repo.InsertRows(ctx, table, cols, rows)
}
