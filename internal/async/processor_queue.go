package async

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/compliance"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
)

// DocumentProcessor turns document bytes into a ticket. *core.Processor implements it.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, data []byte, filename string) fields.TicketInfo
}

// TicketAnalyzer checks a ticket against policy. *compliance.Analyzer implements it.
type TicketAnalyzer interface {
	Analyze(ctx context.Context, t fields.TicketInfo, question string) compliance.Analysis
}

// Result is what a worker hands to the sink for each job.
type Result struct {
	Job      Job                  `json:"-"`
	Ticket   fields.TicketInfo    `json:"ticket"`
	Analysis *compliance.Analysis `json:"analysis,omitempty"`
	Duration time.Duration        `json:"-"`
}

type ProcessorQueue struct {
	proc     DocumentProcessor
	analyzer TicketAnalyzer
	sink     func(Result)
	logger   *slog.Logger
	workers  int
	timeout  time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// sendMu keeps Shutdown from closing ch under an in-flight send.
	sendMu sync.RWMutex
	mu     sync.Mutex
	closed bool
	status map[string]constants.JobStatus
}

var _ Queue = (*ProcessorQueue)(nil)

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithAnalyzer runs a compliance check on every extracted ticket.
func WithAnalyzer(a TicketAnalyzer) Option {
	return func(q *ProcessorQueue) { q.analyzer = a }
}

// WithSink receives every finished job. It is called from worker goroutines.
func WithSink(fn func(Result)) Option {
	return func(q *ProcessorQueue) { q.sink = fn }
}

func NewProcessorQueue(proc DocumentProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
		status:  map[string]constants.JobStatus{},
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	q.setStatus(job.ID, constants.JobStatusRunning)
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	ctx = common.WithRequestID(ctx, job.ID)

	name := filepath.Base(job.Path)
	var ticket fields.TicketInfo
	data, err := os.ReadFile(job.Path)
	if err != nil {
		ticket = failedTicket(name, err)
	} else {
		ticket = processWithTimeout(ctx, q.proc, data, name)
	}

	res := Result{Job: job, Ticket: ticket}
	if q.analyzer != nil && !ticket.HasError() {
		a := q.analyzer.Analyze(ctx, ticket, "")
		res.Analysis = &a
	}
	res.Duration = time.Since(start)

	if ticket.HasError() {
		q.setStatus(job.ID, constants.JobStatusFailed)
		q.logger.Error("queue.job.failed", "worker_id", workerID, "job_id", job.ID, "path", job.Path, "error", *ticket.Error)
	} else {
		q.setStatus(job.ID, constants.JobStatusDone)
		q.logger.Info("queue.job.done", "worker_id", workerID, "job_id", job.ID, "path", job.Path,
			"category", ticket.Category, "elapsed_ms", res.Duration.Milliseconds())
	}
	if q.sink != nil {
		q.sink(res)
	}
}

func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("queue.enqueue.closed", "job_id", job.ID, "path", job.Path)
		return common.NewAppError("QUEUE_CLOSED", "queue is shutting down", common.ErrUnavailable)
	}
	q.status[job.ID] = constants.JobStatusQueued
	q.mu.Unlock()

	select {
	case q.ch <- job:
		q.logger.Info("queue.enqueue.ok", "job_id", job.ID, "path", job.Path)
		return nil
	default:
	}
	q.logger.Warn("queue.enqueue.backpressure", "job_id", job.ID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		q.setStatus(job.ID, constants.JobStatusFailed)
		return ctx.Err()
	}
}

// Status reports the last known state of a job.
func (q *ProcessorQueue) Status(id string) (constants.JobStatus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.status[id]
	return s, ok
}

func (q *ProcessorQueue) setStatus(id string, s constants.JobStatus) {
	q.mu.Lock()
	q.status[id] = s
	q.mu.Unlock()
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.sendMu.Lock()
	close(q.ch)
	q.sendMu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
