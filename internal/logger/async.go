package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes and stops a buffering handler.
type Closer interface {
	Close()
}

// nopCloser is the Closer for synchronous mode.
type nopCloser struct{}

func (nopCloser) Close() {}

// queueEntry pairs a record with the handler it must be written through.
// Derived handlers (WithAttrs, WithGroup) share one queue but carry their
// own sink, so attrs survive the async boundary.
type queueEntry struct {
	rec  slog.Record
	sink slog.Handler
}

// QueueHandler decouples log emission from output: records are enqueued and
// written by a worker pool. When the queue is full records are dropped and
// counted rather than blocking the dispatch loop.
type QueueHandler struct {
	sink    slog.Handler
	queue   chan queueEntry
	wg      *sync.WaitGroup
	dropped *atomic.Int64
}

// NewQueueHandler starts workers goroutines draining a queue of depth
// records into sink.
func NewQueueHandler(sink slog.Handler, depth, workers int) *QueueHandler {
	h := &QueueHandler{
		sink:    sink,
		queue:   make(chan queueEntry, depth),
		wg:      &sync.WaitGroup{},
		dropped: &atomic.Int64{},
	}
	for range workers {
		h.wg.Add(1)
		go h.drain()
	}
	return h
}

// drain writes entries with a background context: the emitting request's
// context may already be canceled by the time the record is written.
func (h *QueueHandler) drain() {
	defer h.wg.Done()
	for e := range h.queue {
		_ = e.sink.Handle(context.Background(), e.rec)
	}
}

func (h *QueueHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.sink.Enabled(ctx, level)
}

// Handle enqueues the record, dropping it when the queue is full.
func (h *QueueHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.queue <- queueEntry{rec: rec, sink: h.sink}:
	default:
		h.dropped.Add(1)
	}
	return nil
}

func (h *QueueHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &QueueHandler{
		sink:    h.sink.WithAttrs(attrs),
		queue:   h.queue,
		wg:      h.wg,
		dropped: h.dropped,
	}
}

func (h *QueueHandler) WithGroup(name string) slog.Handler {
	return &QueueHandler{
		sink:    h.sink.WithGroup(name),
		queue:   h.queue,
		wg:      h.wg,
		dropped: h.dropped,
	}
}

// DroppedCount reports how many records were discarded on a full queue.
func (h *QueueHandler) DroppedCount() int64 {
	return h.dropped.Load()
}

// Close stops intake and blocks until the workers have drained the queue.
// Records emitted after Close panic; call it only at process shutdown.
func (h *QueueHandler) Close() {
	close(h.queue)
	h.wg.Wait()
}
