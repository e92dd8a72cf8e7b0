package tracklint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jward/tracklint/internal/diag"
	"github.com/jward/tracklint/internal/store"
	"github.com/jward/tracklint/internal/syntax"
)

// workItem holds everything a parallel analysis worker needs.
type workItem struct {
	path    string
	dialect syntax.Dialect
	content []byte
	hash    string
	fileID  int64
	batch   *store.BatchedStore

	// cached is set when the file is unchanged; diags then holds the
	// findings read back from the cache and no analysis runs.
	cached bool
	diags  []diag.Diagnostic
}

// lintFilesParallel lints files using a three-phase parallel pipeline:
//
//	Phase A (serial):   Hash check, cache lookup, reset stale findings.
//	Phase B (parallel): Parse and analyze via worker pool.
//	Phase C (serial):   Commit batches to SQLite.
func (e *Engine) lintFilesParallel(ctx context.Context, paths []string) (*Report, error) {
	rep := &Report{}
	var errs []error

	// ---- Phase A: Serial file preparation ----
	var items []workItem
	for _, path := range paths {
		item, err := e.prepareFile(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if item.cached {
			rep.add(item.diags, true)
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return rep, joinErrors("linting", errs)
	}

	// ---- Phase B: Parallel analysis ----
	numWorkers := min(runtime.NumCPU(), len(items))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item  workItem
		diags []diag.Diagnostic
		err   error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each item has its own tree, analyzer and BatchedStore, so
			// workers share nothing but the read side of the Store.
			for item := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{item: item, err: err}
					continue
				}
				diags, err := e.analyzeFile(ctx, item)
				resultCh <- result{item: item, diags: diags, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("analyze %s: %w", res.item.path, res.err))
			continue
		}
		if err := e.store.CommitBatch(res.item.batch); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
			continue
		}
		rep.add(res.diags, false)
	}

	return rep, joinErrors("parallel linting", errs)
}

// prepareFile does Phase A work for a single file: hash check, cache
// lookup, cleanup of stale findings, file record.
func (e *Engine) prepareFile(ctx context.Context, path string) (workItem, error) {
	d, ok := syntax.DialectForFile(path)
	if !ok {
		return workItem{}, fmt.Errorf("%w: %s", syntax.ErrUnsupportedLanguage, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.forgetFile(path)
		}
		return workItem{}, fmt.Errorf("read file: %w", err)
	}
	hash := store.HashContent(content)

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, fmt.Errorf("lookup file: %w", err)
	}

	if existing != nil && e.useCache && existing.Hash == hash {
		_, span := e.tracer.Start(ctx, "tracklint.LintFile", fileAttrs(path, d))
		findings, err := e.store.FindingsByFile(existing.ID)
		diags := toDiagnostics(path, findings)
		endSpan(span, len(diags), err, attribute.Bool("cached", true))
		if err != nil {
			return workItem{}, fmt.Errorf("cached findings: %w", err)
		}
		e.logger.Debug("unchanged, using cached findings", "path", path, "findings", len(diags))
		return workItem{path: path, dialect: d, cached: true, diags: diags}, nil
	}

	var fileID int64
	if existing != nil {
		// Keep the file row; its findings are replaced on commit.
		if err := e.store.DeleteFileData(existing.ID); err != nil {
			return workItem{}, fmt.Errorf("delete old findings: %w", err)
		}
		fileID = existing.ID
	} else {
		fileID, err = e.store.InsertFile(&store.File{Path: path, Dialect: string(d)})
		if err != nil {
			return workItem{}, fmt.Errorf("insert file: %w", err)
		}
	}

	return workItem{
		path:    path,
		dialect: d,
		content: content,
		hash:    hash,
		fileID:  fileID,
		batch:   store.NewBatchedStore(e.store),
	}, nil
}

// analyzeFile runs the analysis for a single file and buffers its findings
// in the item's BatchedStore.
func (e *Engine) analyzeFile(ctx context.Context, item workItem) ([]diag.Diagnostic, error) {
	ctx, span := e.tracer.Start(ctx, "tracklint.LintFile", fileAttrs(item.path, item.dialect))

	diags, err := e.analyze(ctx, item.path, item.content, item.dialect)
	if err == nil {
		err = recordFindings(item.batch, item.fileID, diags)
	}
	endSpan(span, len(diags), err, attribute.Bool("cached", false))
	if err != nil {
		return nil, err
	}

	item.batch.MarkLinted(item.fileID, item.hash, time.Now())
	e.logger.Debug("analyzed", "path", item.path, "dialect", item.dialect, "findings", len(diags))
	return diags, nil
}

// forgetFile drops a deleted file and its findings from the cache.
func (e *Engine) forgetFile(path string) {
	f, err := e.store.FileByPath(path)
	if err != nil || f == nil {
		return
	}
	if err := e.store.DeleteFile(f.ID); err != nil {
		e.logger.Warn("dropping deleted file from cache", "path", path, "error", err)
		return
	}
	e.logger.Debug("dropped deleted file from cache", "path", path)
}

// recordFindings stores diags as the findings of fileID.
func recordFindings(ds store.DataStore, fileID int64, diags []diag.Diagnostic) error {
	for i := range diags {
		if _, err := ds.InsertFinding(toFinding(fileID, diags[i])); err != nil {
			return fmt.Errorf("recording finding: %w", err)
		}
	}
	return nil
}

func fileAttrs(path string, d syntax.Dialect) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("path", path),
		attribute.String("dialect", string(d)),
	)
}

// endSpan records the outcome of a lint span and ends it.
func endSpan(span trace.Span, findings int, err error, attrs ...attribute.KeyValue) {
	span.SetAttributes(attribute.Int("findings", findings))
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
