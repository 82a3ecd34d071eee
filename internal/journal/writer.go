package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/rps-client/internal/protocol"
	"github.com/rickgao/rps-client/internal/queue"
)

// flushTimeout bounds a single Sink.Write.
const flushTimeout = 5 * time.Second

// Entry is one journaled event.
type Entry struct {
	ConnID     string
	ReceivedAt time.Time
	Command    string
	Raw        string
}

// Sink stores batches of entries.
type Sink interface {
	Write(ctx context.Context, entries []Entry) error
}

// Config holds batching settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int // initial queue capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1024,
	}
}

// Stats holds writer counters.
type Stats struct {
	Recorded int64
	Written  int64
	Flushes  int64
	Errors   int64
}

// Writer batches entries into a Sink.
type Writer struct {
	cfg    Config
	sink   Sink
	logger *slog.Logger

	input *queue.Queue[Entry]

	batch   []Entry
	batchMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	statsMu sync.Mutex
	stats   Stats
}

// NewWriter creates a Writer.
func NewWriter(cfg Config, sink Sink, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		sink:   sink,
		logger: logger.With("component", "journal"),
		input:  queue.New[Entry](cfg.BufferSize),
		batch:  make([]Entry, 0, cfg.BatchSize),
	}
}

// Record queues ev. It never blocks; entries recorded after Stop are
// dropped.
func (w *Writer) Record(ev protocol.Event, connID string) {
	ok := w.input.Push(Entry{
		ConnID:     connID,
		ReceivedAt: ev.ReceivedAt(),
		Command:    ev.Command(),
		Raw:        ev.Raw(),
	})
	if !ok {
		return
	}
	w.statsMu.Lock()
	w.stats.Recorded++
	w.statsMu.Unlock()
}

// Start begins consuming entries.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	var gctx context.Context
	w.group, gctx = errgroup.WithContext(w.ctx)
	w.group.Go(w.consumeLoop)
	w.group.Go(func() error { return w.flushLoop(gctx) })

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains queued entries and performs a final flush, bounded by ctx.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	w.input.Close()
	if w.cancel != nil {
		w.cancel()
	}

	if w.group != nil {
		done := make(chan struct{})
		go func() {
			w.group.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			w.logger.Warn("journal writer stop timed out")
			return ctx.Err()
		}
	}

	w.flush(ctx)
	w.logger.Info("journal writer stopped", "written", w.Stats().Written)
	return nil
}

// Stats returns current counters.
func (w *Writer) Stats() Stats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}

// consumeLoop moves entries from the queue into the batch until the queue
// is closed and empty.
func (w *Writer) consumeLoop() error {
	for {
		entries := w.input.PopBatch(w.cfg.BatchSize)
		if entries == nil {
			return nil
		}

		w.batchMu.Lock()
		w.batch = append(w.batch, entries...)
		shouldFlush := len(w.batch) >= w.cfg.BatchSize
		w.batchMu.Unlock()

		if shouldFlush {
			w.flush(context.WithoutCancel(w.ctx))
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// flush writes the current batch to the sink.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]Entry, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	start := time.Now()
	if err := w.sink.Write(ctx, batch); err != nil {
		w.logger.Error("journal write failed", "error", err, "count", len(batch))
		w.statsMu.Lock()
		w.stats.Errors++
		w.statsMu.Unlock()
		return
	}

	w.statsMu.Lock()
	w.stats.Written += int64(len(batch))
	w.stats.Flushes++
	w.statsMu.Unlock()

	w.logger.Debug("flushed journal",
		"count", len(batch),
		"duration", time.Since(start),
	)
}
