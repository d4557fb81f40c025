package attachment

import (
	"context"
	"sync"

	"github.com/commentstream/backend/validation"
)

// Pool runs attachment processing on a fixed set of worker goroutines so that
// image decoding never pins a request handler. Submissions honour context
// cancellation: a client that disconnects mid-upload gets its job dropped.
type Pool struct {
	jobs chan poolJob
	wg   sync.WaitGroup

	closeOnce sync.Once
}

type poolJob struct {
	ctx    context.Context
	upload Upload
	done   chan poolResult
}

type poolResult struct {
	processed *Processed
	errs      validation.Errors
}

// NewPool starts workers goroutines. workers must be at least 1.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{jobs: make(chan poolJob)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		if job.ctx.Err() != nil {
			continue
		}
		processed, errs := Process(job.upload)
		job.done <- poolResult{processed: processed, errs: errs}
	}
}

// Do submits an upload and waits for the result. The returned error is either
// a validation.Errors list or the context error.
func (p *Pool) Do(ctx context.Context, up Upload) (*Processed, error) {
	job := poolJob{ctx: ctx, upload: up, done: make(chan poolResult, 1)}

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-job.done:
		if len(res.errs) > 0 {
			return nil, res.errs
		}
		return res.processed, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting work and waits for in-flight jobs to finish.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
