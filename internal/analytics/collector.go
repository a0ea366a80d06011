package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/kafka"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers search events and publishes them in batches, flushing
// when a batch fills up or the flush interval passes. Track never blocks:
// when the buffer is full the event is dropped and counted.
type Collector struct {
	publisher     Publisher
	events        chan SearchEvent
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
	sent    atomic.Int64
}

func NewCollector(publisher Publisher, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Collector{
		publisher:     publisher,
		events:        make(chan SearchEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start runs the flush loop until ctx is cancelled or Close is called. Events
// still buffered at that point are flushed once more.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.events),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.batchSize)
	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				c.flush(context.Background(), batch)
				return
			}
			batch = append(batch, kafka.Event{Key: event.Combo(), Value: event})
			if len(batch) >= c.batchSize {
				c.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			c.flush(ctx, batch)
			batch = batch[:0]
		case <-ctx.Done():
			batch = c.drain(batch)
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			c.flush(flushCtx, batch)
			cancel()
			return
		}
	}
}

func (c *Collector) drain(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				return batch
			}
			batch = append(batch, kafka.Event{Key: event.Combo(), Value: event})
		default:
			return batch
		}
	}
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.dropped.Add(int64(len(batch)))
		c.logger.Error("analytics batch dropped", "events", len(batch), "error", err)
		return
	}
	c.sent.Add(int64(len(batch)))
}

// Track queues event for publishing.
func (c *Collector) Track(event SearchEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the final flush. Start must
// have been called.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	c.mu.Unlock()
	<-c.done
}

// Sent and Dropped report how many events were published or lost.
func (c *Collector) Sent() int64    { return c.sent.Load() }
func (c *Collector) Dropped() int64 { return c.dropped.Load() }
