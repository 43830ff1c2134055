// Package worker provides an asynchronous worker pool that publishes summary
// events off the append path.
//
// The pool decouples event delivery from Store.Append so that a slow or
// unreachable broker never delays or fails an append.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/memoria/pkg/eventstream"
	"github.com/papercomputeco/memoria/pkg/logger"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 15 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Event *eventstream.SummaryEmittedEvent
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher delivers events.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each delivery attempt.
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool publishes events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("worker pool requires a publisher")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	if job.Event == nil {
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("event queued",
			"tier", job.Event.Tier,
			"summary_id", job.Event.SummaryID,
		)
		return true
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			"tier", job.Event.Tier,
			"summary_id", job.Event.SummaryID,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain,
// then closes the publisher.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
		err = p.config.Publisher.Close()
	})
	return err
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob publishes one event. Failures are logged, never retried.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishSummary(ctx, job.Event); err != nil {
		p.logger.Warn("summary event publish failed",
			"event_id", job.Event.EventID,
			"tier", job.Event.Tier,
			"error", err,
		)
		return
	}

	p.logger.Debug("summary event published",
		"event_id", job.Event.EventID,
		"tier", job.Event.Tier,
		"summary_id", job.Event.SummaryID,
	)
}
