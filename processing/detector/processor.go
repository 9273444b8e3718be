package detector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"imagedetect/internal/models"
)

// Job is one detection run. Generation ties the outcome back to the
// workflow state that launched it.
type Job struct {
	Generation uint64
	Request    Request
}

type Outcome struct {
	Job    Job
	Result models.DetectionResult
	Err    error
}

// Processor runs detection jobs off the UI goroutine. Submitting a job
// cancels the one still in flight.
type Processor struct {
	det     Detector
	timeout time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	latency time.Duration

	wg sync.WaitGroup
}

func NewProcessor(det Detector, timeout time.Duration, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		det:     det,
		timeout: timeout,
		log:     log,
	}
}

// Submit starts job in the background and calls done exactly once with its
// outcome, from the job goroutine.
func (p *Processor) Submit(job Job, done func(Outcome)) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if p.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), p.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()

		start := time.Now()
		res, err := p.det.Detect(ctx, job.Request)
		elapsed := time.Since(start)

		p.mu.Lock()
		p.latency = elapsed
		p.mu.Unlock()

		if err != nil {
			p.log.Error("detection failed",
				"generation", job.Generation,
				"image", job.Request.ImagePath,
				"err", err)
		}

		done(Outcome{Job: job, Result: res, Err: err})
	}()
}

// Cancel aborts the in-flight job, if any. Its outcome is still delivered.
func (p *Processor) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Processor) Latency() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latency
}

// Wait blocks until every submitted job has delivered its outcome.
func (p *Processor) Wait() {
	p.wg.Wait()
}
