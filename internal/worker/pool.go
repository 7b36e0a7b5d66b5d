// Package worker runs library enrichment jobs in the background.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ewilliams-labs/tastemap/internal/core/ports"
	"github.com/ewilliams-labs/tastemap/internal/core/services"
)

// JobKind names one kind of enrichment work.
type JobKind string

const (
	JobAudioFeatures JobKind = "audio_features"
	JobGenres        JobKind = "genres"
	JobPreviewEnergy JobKind = "preview_energy"
)

// Job is a queued enrichment task. Limit applies to genre jobs and Preview
// to preview energy jobs.
type Job struct {
	Kind    JobKind
	Limit   int
	Preview services.PreviewCandidate
}

// Enricher is the part of the orchestrator the pool drives.
type Enricher interface {
	EnrichAudioFeatures(ctx context.Context) (services.EnrichResult, error)
	EnrichGenres(ctx context.Context, limit int) (services.EnrichResult, error)
	ApplyPreviewEnergy(ctx context.Context, analyzer ports.PreviewAnalyzer, c services.PreviewCandidate) error
}

// Stats counts jobs by outcome.
type Stats struct {
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Pool manages background workers for async jobs.
type Pool struct {
	enricher Enricher
	analyzer ports.PreviewAnalyzer
	jobs     chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	mu     sync.RWMutex
	closed bool

	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewPool creates a pool with the given queue size. A nil analyzer disables
// preview energy jobs.
func NewPool(enricher Enricher, analyzer ports.PreviewAnalyzer, queueSize int) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		enricher: enricher,
		analyzer: analyzer,
		jobs:     make(chan Job, queueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop closes the queue and waits for queued jobs to finish. Canceling ctx
// aborts in-flight work instead.
func (p *Pool) Stop(ctx context.Context) {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		p.cancel()
		<-done
	}
	p.cancel()
}

// Submit queues a job without blocking. It reports false when the queue is
// full or the pool is stopped.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return false
	}
	if job.Kind == JobPreviewEnergy && p.analyzer == nil {
		p.dropped.Add(1)
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		p.dropped.Add(1)
		slog.Warn("worker: queue full, dropping job", "kind", job.Kind, "track_id", job.Preview.TrackID)
		return false
	}
}

// Stats returns a snapshot of job counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}

func (p *Pool) processJob(job Job) {
	ctx := p.ctx
	var err error
	switch job.Kind {
	case JobAudioFeatures:
		var res services.EnrichResult
		res, err = p.enricher.EnrichAudioFeatures(ctx)
		if err == nil {
			slog.Info("worker: audio features stored", "requested", res.Requested, "stored", res.Stored, "previews", len(res.Previews))
			p.queuePreviews(res.Previews)
		}
	case JobGenres:
		var res services.EnrichResult
		res, err = p.enricher.EnrichGenres(ctx, job.Limit)
		if err == nil {
			slog.Info("worker: artist genres stored", "requested", res.Requested, "stored", res.Stored)
		}
	case JobPreviewEnergy:
		if job.Preview.PreviewURL == "" {
			slog.Warn("worker: no preview URL, skipping analysis", "track_id", job.Preview.TrackID)
			return
		}
		err = p.enricher.ApplyPreviewEnergy(ctx, p.analyzer, job.Preview)
	default:
		slog.Warn("worker: unknown job kind", "kind", job.Kind)
		p.failed.Add(1)
		return
	}

	if err != nil {
		p.failed.Add(1)
		slog.Warn("worker: job failed", "kind", job.Kind, "track_id", job.Preview.TrackID, "error", err)
		return
	}
	p.completed.Add(1)
}

// queuePreviews runs on a worker goroutine, so it must never block on a
// full queue.
func (p *Pool) queuePreviews(previews []services.PreviewCandidate) {
	if p.analyzer == nil {
		return
	}
	for _, c := range previews {
		p.Submit(Job{Kind: JobPreviewEnergy, Preview: c})
	}
}
