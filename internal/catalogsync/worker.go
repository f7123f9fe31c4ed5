package catalogsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/merge"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/referencedata"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
	"go.uber.org/zap"
)

// AnalysisJob is one product to run through the content generator. Jobs of
// the same batch share its reference cache and its context.
type AnalysisJob struct {
	ProductID string
	cache     *referencedata.Cache
	ctx       context.Context
	jobID     string
}

type AnalysisResult struct {
	Job     AnalysisJob
	Outcome report.Outcome[*merge.Plan]
	// skipped is set when the job's batch ended before a worker picked it up.
	skipped bool
}

type Analyzer interface {
	Analyze(ctx context.Context, job AnalysisJob) report.Outcome[*merge.Plan]
}

type AnalyzerFunc func(ctx context.Context, job AnalysisJob) report.Outcome[*merge.Plan]

func (f AnalyzerFunc) Analyze(ctx context.Context, job AnalysisJob) report.Outcome[*merge.Plan] {
	return f(ctx, job)
}

// WorkerPool bounds how many products are analyzed at once.
type WorkerPool struct {
	analyzer   Analyzer
	logger     *zap.Logger
	jobs       chan AnalysisJob
	numWorkers int
	jobTimeout time.Duration
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	isRunning  bool
	mu         sync.Mutex
	results    map[string]chan AnalysisResult
	resultsMu  sync.RWMutex
	seq        uint64
}

type WorkerPoolConfig struct {
	NumWorkers int
	QueueSize  int
	JobTimeout time.Duration
}

func NewWorkerPool(analyzer Analyzer, logger *zap.Logger, config WorkerPoolConfig) *WorkerPool {
	if config.NumWorkers <= 0 {
		config.NumWorkers = 3
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 3 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		analyzer:   analyzer,
		logger:     logger,
		jobs:       make(chan AnalysisJob, config.QueueSize),
		numWorkers: config.NumWorkers,
		jobTimeout: config.JobTimeout,
		ctx:        ctx,
		cancel:     cancel,
		results:    make(map[string]chan AnalysisResult),
	}
}

func (wp *WorkerPool) Start() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.isRunning {
		return nil
	}

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	wp.isRunning = true
	wp.logger.Info("worker pool started", zap.Int("workers", wp.numWorkers))

	return nil
}

func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	if !wp.isRunning {
		wp.mu.Unlock()
		return nil
	}
	wp.isRunning = false
	wp.mu.Unlock()

	wp.cancel()
	close(wp.jobs)
	wp.wg.Wait()

	wp.logger.Info("worker pool stopped")
	return nil
}

func (wp *WorkerPool) submit(job AnalysisJob) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if !wp.isRunning {
		return fmt.Errorf("worker pool is not running")
	}

	select {
	case wp.jobs <- job:
		wp.logger.Debug("job submitted", zap.String("product_id", job.ProductID))
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	default:
		return fmt.Errorf("job queue is full")
	}
}

func (wp *WorkerPool) nextID(job AnalysisJob) string {
	wp.resultsMu.Lock()
	defer wp.resultsMu.Unlock()
	wp.seq++
	return fmt.Sprintf("%s-%d", job.ProductID, wp.seq)
}

// SubmitAndWait runs one job under ctx and waits for its result. When ctx is
// done first it still waits for the worker to let go of the job, and returns
// ctx.Err() only if the job never started.
func (wp *WorkerPool) SubmitAndWait(ctx context.Context, job AnalysisJob) (AnalysisResult, error) {
	job.ctx = ctx
	job.jobID = wp.nextID(job)

	resultChan := make(chan AnalysisResult, 1)
	wp.resultsMu.Lock()
	wp.results[job.jobID] = resultChan
	wp.resultsMu.Unlock()

	defer func() {
		wp.resultsMu.Lock()
		delete(wp.results, job.jobID)
		wp.resultsMu.Unlock()
	}()

	if err := wp.submit(job); err != nil {
		return AnalysisResult{}, fmt.Errorf("failed to submit job: %w", err)
	}

	select {
	case result := <-resultChan:
		if result.skipped {
			return AnalysisResult{}, ctx.Err()
		}
		return result, nil
	case <-wp.ctx.Done():
		return AnalysisResult{}, fmt.Errorf("worker pool is shutting down")
	}
}

// SubmitBatch submits every job under ctx and returns a channel that emits
// results as they finish, in any order. Jobs that do not fit in the queue
// wait for room. Once ctx is done no new job starts; the channel is closed
// after every submitted job either reported or was skipped, so nothing of
// the batch is still running when the caller sees it closed.
func (wp *WorkerPool) SubmitBatch(ctx context.Context, jobs []AnalysisJob) (<-chan AnalysisResult, error) {
	if len(jobs) == 0 {
		ch := make(chan AnalysisResult)
		close(ch)
		return ch, nil
	}

	internalChan := make(chan AnalysisResult, len(jobs))
	outputChan := make(chan AnalysisResult, len(jobs))

	jobIDs := make([]string, len(jobs))
	for i := range jobs {
		jobs[i].ctx = ctx
		jobs[i].jobID = wp.nextID(jobs[i])
		jobIDs[i] = jobs[i].jobID
	}
	wp.resultsMu.Lock()
	for _, id := range jobIDs {
		wp.results[id] = internalChan
	}
	wp.resultsMu.Unlock()

	cleanup := func() {
		wp.resultsMu.Lock()
		for _, id := range jobIDs {
			delete(wp.results, id)
		}
		wp.resultsMu.Unlock()
	}

	go func() {
		defer close(outputChan)
		defer cleanup()

		submitted := 0
		for _, job := range jobs {
			if !wp.enqueue(ctx, job) {
				break
			}
			submitted++
		}

		for received := 0; received < submitted; received++ {
			select {
			case result := <-internalChan:
				if !result.skipped {
					outputChan <- result
				}
			case <-wp.ctx.Done():
				return
			}
		}
	}()

	return outputChan, nil
}

// enqueue blocks until the job is queued, ctx is done or the pool stops.
func (wp *WorkerPool) enqueue(ctx context.Context, job AnalysisJob) bool {
	for {
		err := wp.submit(job)
		if err == nil {
			return true
		}
		wp.mu.Lock()
		running := wp.isRunning
		wp.mu.Unlock()
		if !running {
			wp.logger.Warn("failed to submit job", zap.String("product_id", job.ProductID), zap.Error(err))
			return false
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return false
		}
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.Debug("worker started", zap.Int("worker_id", id))

	for {
		select {
		case job, ok := <-wp.jobs:
			if !ok {
				wp.logger.Debug("worker stopping", zap.Int("worker_id", id))
				return
			}

			wp.logger.Debug("processing job",
				zap.Int("worker_id", id),
				zap.String("product_id", job.ProductID),
			)

			result := wp.run(job)

			wp.resultsMu.RLock()
			if ch, exists := wp.results[job.jobID]; exists {
				ch <- result
			}
			wp.resultsMu.RUnlock()

		case <-wp.ctx.Done():
			wp.logger.Debug("worker cancelled", zap.Int("worker_id", id))
			return
		}
	}
}

// run analyzes job under its batch context, bounded by the job timeout and
// cancelled when the pool stops. A job whose batch already ended is skipped.
func (wp *WorkerPool) run(job AnalysisJob) AnalysisResult {
	parent := job.ctx
	if parent == nil {
		parent = wp.ctx
	}
	err := parent.Err()
	if err == nil {
		err = wp.ctx.Err()
	}
	if err != nil {
		wp.logger.Debug("job skipped", zap.String("product_id", job.ProductID), zap.Error(err))
		return AnalysisResult{Job: job, Outcome: report.Transient[*merge.Plan](err), skipped: true}
	}

	ctx, cancel := context.WithTimeout(parent, wp.jobTimeout)
	defer cancel()
	stop := context.AfterFunc(wp.ctx, cancel)
	defer stop()

	return AnalysisResult{Job: job, Outcome: wp.analyzer.Analyze(ctx, job)}
}
