package recordstore

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Writer is a fire-and-forget, single-writer patch queue for one record.
// Submit never blocks the caller. While a patch is in flight, later
// submissions coalesce into one pending patch (newer values win per field),
// so patches land in submission order and a stale patch never overtakes a
// newer one. A failed patch stays pending and is retried with the next
// submission.
type Writer struct {
	store Store
	code  string

	mu      sync.Mutex
	pending Fields
	seq     uint64 // last submission
	acked   uint64 // last submission known to be persisted
	closed  bool

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWriter creates a writer for the record at code. Call Start before Submit.
func NewWriter(store Store, code string) *Writer {
	return &Writer{
		store: store,
		code:  code,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Start launches the writer goroutine. It stops when ctx is done or Close is called.
func (w *Writer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()
	go w.run(ctx)
}

// Submit queues fields for persistence and returns the submission sequence.
// It returns 0 once the writer is closed.
func (w *Writer) Submit(fields Fields) uint64 {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return 0
	}
	w.pending = Merge(w.pending, fields)
	w.seq++
	seq := w.seq
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return seq
}

// Flush retries fields left pending by a failed patch without adding new ones.
func (w *Writer) Flush() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Acked returns the highest submission sequence that has been persisted.
func (w *Writer) Acked() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.acked
}

// Idle reports whether every submission has been persisted.
func (w *Writer) Idle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.acked >= w.seq
}

// Close stops the writer and waits for an in-flight patch to return.
// No patch is issued after Close returns; pending fields are dropped.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	cancel := w.cancel
	w.mu.Unlock()

	if cancel == nil {
		// never started
		close(w.done)
		return
	}
	cancel()
	<-w.done
}

func (w *Writer) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
		}

		for {
			w.mu.Lock()
			batch, seq := w.pending, w.seq
			w.pending = nil
			w.mu.Unlock()

			if len(batch) == 0 || ctx.Err() != nil {
				break
			}

			if err := w.store.Patch(ctx, w.code, batch); err != nil {
				log.Warn().
					Err(err).
					Str("code", w.code).
					Strs("fields", batch.Keys()).
					Msg("patch failed, keeping fields pending")

				w.mu.Lock()
				w.pending = Merge(batch, w.pending)
				w.mu.Unlock()
				break
			}

			w.mu.Lock()
			if seq > w.acked {
				w.acked = seq
			}
			w.mu.Unlock()
		}
	}
}
