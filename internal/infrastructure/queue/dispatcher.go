// Package queue delivers audit events to their sinks off the request path.
package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/pkg/metrics"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
	sinkTimeout      = 5 * time.Second
)

// Dispatcher shards audit events across a fixed set of workers by actor, so
// events for one user or email are written in the order they were recorded.
// Record never blocks; a full shard drops the event.
type Dispatcher struct {
	workers []chan domain.AuthEvent
	sinks   []ports.AuditSink
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher uses defaults for non-positive numWorkers or queueSize.
func NewDispatcher(numWorkers, queueSize int, log zerolog.Logger, sinks ...ports.AuditSink) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuthEvent, numWorkers),
		sinks:   sinks,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuthEvent, queueSize)
	}
	return d
}

// Start launches the workers. They exit once Shutdown has drained their queue.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Record enqueues event on its shard.
func (d *Dispatcher) Record(event domain.AuthEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.AuditEventsTotal.WithLabelValues(string(event.Type), "dropped").Inc()
		return
	}

	idx := d.shardIndex(event.ShardKey())
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.AuditEventsTotal.WithLabelValues(string(event.Type), "dropped").Inc()
		d.log.Warn().
			Str("event_type", string(event.Type)).
			Int("worker_id", idx).
			Msg("audit queue full, event dropped")
	}
}

// Shutdown stops accepting events and waits for queued ones to be written,
// or for ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(id int, ch <-chan domain.AuthEvent) {
	defer d.wg.Done()

	depth := metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id))
	for event := range ch {
		depth.Dec()
		d.deliver(id, event)
	}
}

func (d *Dispatcher) deliver(id int, event domain.AuthEvent) {
	result := "written"
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		err := sink.Write(ctx, event)
		cancel()
		if err != nil {
			result = "sink_error"
			d.log.Error().Err(err).
				Str("event_id", event.ID).
				Str("event_type", string(event.Type)).
				Int("worker_id", id).
				Msg("audit sink write failed")
		}
	}
	metrics.AuditEventsTotal.WithLabelValues(string(event.Type), result).Inc()
}
