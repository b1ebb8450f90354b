package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/doctext"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
)

// ErrTimeout is recorded on tickets whose processing exceeded the per-document limit.
var ErrTimeout = errors.New("document processing timed out")

// Document is one named input of a batch.
type Document struct {
	Name string
	Data []byte
}

type batchParam struct {
	idx     int
	ctx     context.Context
	doc     Document
	results []fields.TicketInfo
	wg      *sync.WaitGroup
}

// Batch processes many documents concurrently on a bounded pool.
type Batch struct {
	proc    DocumentProcessor
	pool    *ants.PoolWithFunc
	timeout time.Duration
	logger  *slog.Logger
}

// NewBatch starts a pool of workers. Release must be called when done.
func NewBatch(proc DocumentProcessor, workers int, timeout time.Duration, logger *slog.Logger) (*Batch, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		return nil, common.NewAppError("CONFIG_ERROR", "batch workers must be greater than 0", common.ErrInvalidInput)
	}
	b := &Batch{proc: proc, timeout: timeout, logger: logger}
	pool, err := ants.NewPoolWithFunc(workers, func(args any) {
		p, ok := args.(*batchParam)
		if !ok {
			panic("batch pool args type error")
		}
		defer p.wg.Done()
		p.results[p.idx] = b.process(p.ctx, p.doc)
	})
	if err != nil {
		return nil, fmt.Errorf("create batch pool: %w", err)
	}
	b.pool = pool
	return b, nil
}

// Run processes docs and returns one ticket per document in input order.
// Documents not started before ctx is cancelled get a failed record, and
// the context error is returned alongside the partial results.
func (b *Batch) Run(ctx context.Context, docs []Document) ([]fields.TicketInfo, error) {
	start := time.Now()
	results := make([]fields.TicketInfo, len(docs))
	var wg sync.WaitGroup
	skipped := 0
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			results[i] = failedTicket(doc.Name, err)
			skipped++
			continue
		}
		wg.Add(1)
		p := &batchParam{idx: i, ctx: ctx, doc: doc, results: results, wg: &wg}
		if err := b.pool.Invoke(p); err != nil {
			wg.Done()
			results[i] = failedTicket(doc.Name, err)
			b.logger.Error("batch.submit.failed", "file", doc.Name, "err", err)
		}
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.HasError() {
			failed++
		}
	}
	b.logger.Info("batch.run.done",
		"documents", len(docs),
		"failed", failed,
		"skipped", skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results, ctx.Err()
}

func (b *Batch) process(ctx context.Context, doc Document) fields.TicketInfo {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	t := processWithTimeout(ctx, b.proc, doc.Data, doc.Name)
	if t.HasError() {
		b.logger.Warn("batch.document.failed", "file", doc.Name, "error", *t.Error)
	}
	return t
}

// Release stops the pool workers.
func (b *Batch) Release() { b.pool.Release() }

// processWithTimeout runs the processor in its own goroutine so a stuck
// recognizer cannot hold the caller past ctx. Panics become failed tickets.
func processWithTimeout(ctx context.Context, proc DocumentProcessor, data []byte, name string) fields.TicketInfo {
	done := make(chan fields.TicketInfo, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- failedTicket(name, fmt.Errorf("panic: %v", r))
			}
		}()
		done <- proc.ProcessDocument(ctx, data, name)
	}()

	select {
	case t := <-done:
		return t
	case <-ctx.Done():
		cause := ctx.Err()
		if errors.Is(cause, context.DeadlineExceeded) {
			cause = ErrTimeout
		}
		return failedTicket(name, cause)
	}
}

func failedTicket(name string, cause error) fields.TicketInfo {
	fk := constants.KindForExt(filepath.Ext(name))
	return fields.Failed(name, core.FileType(name), doctext.Sentinel(fk, doctext.KindDecode, name), cause)
}
