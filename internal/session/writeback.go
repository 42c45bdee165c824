package session

import (
	"context"
	"sync"
	"time"

	"github.com/mmynk/caltrack/internal/calendar"
	"github.com/mmynk/caltrack/internal/metrics"
	"github.com/mmynk/caltrack/internal/storage"
)

// DefaultDebounce is the quiet period between the last mutation and its write.
const DefaultDebounce = time.Second

// Snapshot is the state captured by a mutation: the fields to merge into the
// document keyed by UID.
type Snapshot struct {
	UID    string
	Fields storage.Document
}

// WriteFunc persists one snapshot.
type WriteFunc func(ctx context.Context, snap Snapshot) error

// WriteBack coalesces bursts of mutations into a single store write.
//
// Each Schedule replaces the pending snapshot and restarts the quiet period,
// so only the newest state is written once mutations stop for the debounce
// interval. Writes never run concurrently with each other, and a write that
// fails is reported to onError without any retry; in-memory state is not
// touched.
type WriteBack struct {
	clock   calendar.Clock
	delay   time.Duration
	timeout time.Duration
	write   WriteFunc
	onError func(error)

	mu      sync.Mutex
	gen     uint64
	timer   calendar.Timer
	pending *Snapshot

	writeMu sync.Mutex
}

// NewWriteBack creates an idle task. timeout bounds each timer-driven write.
func NewWriteBack(clock calendar.Clock, delay, timeout time.Duration, write WriteFunc, onError func(error)) *WriteBack {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &WriteBack{
		clock:   clock,
		delay:   delay,
		timeout: timeout,
		write:   write,
		onError: onError,
	}
}

// Schedule replaces the pending snapshot and restarts the timer.
func (w *WriteBack) Schedule(snap Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	gen := w.gen
	w.pending = &snap
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = w.clock.AfterFunc(w.delay, func() { w.fire(gen) })
}

// CancelPending drops the pending snapshot without writing it.
func (w *WriteBack) CancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		metrics.WriteBacks.WithLabelValues(metrics.ResultCancelled).Inc()
	}
	w.stopLocked()
}

// Pending reports whether a snapshot is waiting to be written.
func (w *WriteBack) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil
}

// FlushNow writes the pending snapshot immediately, if any, and waits for
// any write already in flight. The error is returned as well as reported.
func (w *WriteBack) FlushNow(ctx context.Context) error {
	w.mu.Lock()
	snap := w.pending
	w.stopLocked()
	w.mu.Unlock()

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if snap == nil {
		return nil
	}
	return w.run(ctx, *snap)
}

func (w *WriteBack) stopLocked() {
	w.gen++
	w.pending = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *WriteBack) fire(gen uint64) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.Lock()
	if gen != w.gen || w.pending == nil {
		w.mu.Unlock()
		return
	}
	snap := *w.pending
	w.pending = nil
	w.timer = nil
	w.mu.Unlock()

	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	w.run(ctx, snap)
}

func (w *WriteBack) run(ctx context.Context, snap Snapshot) error {
	start := time.Now()
	err := w.write(ctx, snap)
	metrics.ObserveWriteBack(start, err)
	if err != nil {
		w.onError(err)
	}
	return err
}
