package watch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pattupetti/fmclient/internal/db"
	"github.com/pattupetti/fmclient/internal/observe"
)

// StatusWatcher polls the remote server status flag. Observed values are
// published into a [Cell]; when the value flips to a disabled mode the
// watcher additionally invokes a best-effort callback so playback stops
// immediately instead of on the next control-loop tick.
type StatusWatcher struct {
	store      db.Store
	interval   time.Duration
	heartbeat  time.Duration
	onDisabled func()

	cell     Cell[string]
	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

// StatusOption configures a [StatusWatcher].
type StatusOption func(*StatusWatcher)

// WithStatusInterval sets the polling interval. Values below 200 ms are
// clamped; the default is 2 s.
func WithStatusInterval(d time.Duration) StatusOption {
	return func(w *StatusWatcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithHeartbeat sets how often an unchanged status is re-logged. The default
// is 30 s.
func WithHeartbeat(d time.Duration) StatusOption {
	return func(w *StatusWatcher) {
		if d > 0 {
			w.heartbeat = d
		}
	}
}

// NewStatusWatcher creates a status watcher. onDisabled is invoked (panics
// swallowed) whenever the status transitions from enabled to any disabled
// value; pass nil when no cascade is wanted.
func NewStatusWatcher(store db.Store, onDisabled func(), opts ...StatusOption) *StatusWatcher {
	w := &StatusWatcher{
		store:      store,
		interval:   2 * time.Second,
		heartbeat:  30 * time.Second,
		onDisabled: onDisabled,
		done:       make(chan struct{}),
		finished:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.interval < minInterval {
		w.interval = minInterval
	}
	return w
}

// Start launches the polling goroutine.
func (w *StatusWatcher) Start() {
	go w.poll()
}

// Stop signals the goroutine and waits for it with a bounded timeout.
func (w *StatusWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	select {
	case <-w.finished:
	case <-time.After(stopTimeout):
		slog.Warn("status watcher did not stop in time")
	}
}

// Latest returns the most recently observed status. ok is false before the
// first poll completes.
func (w *StatusWatcher) Latest() (string, bool) {
	return w.cell.Latest()
}

// ConsumeChange atomically takes the pending status change, if any.
func (w *StatusWatcher) ConsumeChange() (string, bool) {
	return w.cell.Consume()
}

func (w *StatusWatcher) poll() {
	defer close(w.finished)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var last string
	seeded := false
	lastLog := time.Now()

	for {
		w.check(&last, &seeded, &lastLog)
		select {
		case <-w.done:
			return
		case <-ticker.C:
		}
	}
}

func (w *StatusWatcher) check(last *string, seeded *bool, lastLog *time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	// A failed read is treated as an empty (disabled) status rather than an
	// error: losing the database means losing permission to play.
	raw, err := w.store.ServerStatus(ctx)
	if err != nil {
		observe.DefaultMetrics().RecordDBError(ctx, "status_watch")
		raw = ""
	}
	current := strings.ToLower(strings.TrimSpace(raw))

	switch {
	case !*seeded:
		*seeded = true
		*last = current
		w.cell.Set(current)
		slog.Info("server status", "status", current)
		*lastLog = time.Now()

	case current != *last:
		old := *last
		*last = current
		w.cell.Set(current)
		slog.Info("server status changed", "from", old, "to", current)
		*lastLog = time.Now()

		if !db.StatusEnabled(current) {
			w.cascadeDisabled()
		}

	case time.Since(*lastLog) > w.heartbeat:
		// Heartbeat line so the logs show the watcher is alive even when
		// nothing changes.
		slog.Info("server status", "status", *last)
		*lastLog = time.Now()
	}
}

// cascadeDisabled stops playback on behalf of the control loop. The callback
// runs on the watcher goroutine inside state it does not own, so any failure
// is swallowed.
func (w *StatusWatcher) cascadeDisabled() {
	if w.onDisabled == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("status watcher: stop-playback cascade panicked", "recover", r)
		}
	}()
	w.onDisabled()
}
