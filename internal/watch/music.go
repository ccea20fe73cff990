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

// minInterval is the floor applied to all watcher polling intervals so a
// misconfigured interval cannot hammer the database.
const minInterval = 200 * time.Millisecond

// stopTimeout bounds how long Stop waits for a watcher goroutine to exit.
const stopTimeout = 2 * time.Second

// MusicWatcher polls one fixed music row and publishes it into a [Cell]
// whenever the row's link changes. It is best-effort: query failures are
// swallowed and the loop keeps polling.
type MusicWatcher struct {
	store    db.Store
	rowID    int64
	interval time.Duration

	cell     Cell[*db.MusicItem]
	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

// MusicOption configures a [MusicWatcher].
type MusicOption func(*MusicWatcher)

// WithMusicInterval sets the polling interval. Values below 200 ms are
// clamped; the default is 1.5 s.
func WithMusicInterval(d time.Duration) MusicOption {
	return func(w *MusicWatcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewMusicWatcher creates a watcher for the music row with the given id.
// Call [MusicWatcher.Start] to begin polling.
func NewMusicWatcher(store db.Store, rowID int64, opts ...MusicOption) *MusicWatcher {
	w := &MusicWatcher{
		store:    store,
		rowID:    rowID,
		interval: 1500 * time.Millisecond,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.interval < minInterval {
		w.interval = minInterval
	}
	return w
}

// Start launches the polling goroutine. It is a no-op on a stopped watcher.
func (w *MusicWatcher) Start() {
	go w.poll()
}

// Stop signals the goroutine and waits for it with a bounded timeout.
func (w *MusicWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	select {
	case <-w.finished:
	case <-time.After(stopTimeout):
		slog.Warn("music watcher did not stop in time")
	}
}

// Desired returns the most recently observed music row. ok is false before
// the first successful read.
func (w *MusicWatcher) Desired() (*db.MusicItem, bool) {
	return w.cell.Latest()
}

// ConsumeChange atomically takes the pending desired-music change, if any.
func (w *MusicWatcher) ConsumeChange() (*db.MusicItem, bool) {
	return w.cell.Consume()
}

func (w *MusicWatcher) poll() {
	defer close(w.finished)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var lastLink string
	seeded := false

	for {
		w.check(&lastLink, &seeded)
		select {
		case <-w.done:
			return
		case <-ticker.C:
		}
	}
}

// check reads the watched row once. The first good read seeds the cell
// unconditionally; later reads publish only when the trimmed link differs
// from the last seen one.
func (w *MusicWatcher) check(lastLink *string, seeded *bool) {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	row, err := w.store.MusicByID(ctx, w.rowID)
	if err != nil {
		// Best-effort watcher: a database hiccup must not break playback.
		slog.Debug("music watcher: query failed", "row_id", w.rowID, "err", err)
		observe.DefaultMetrics().RecordDBError(ctx, "music_watch")
		return
	}
	if row == nil {
		return
	}
	link := strings.TrimSpace(row.Link)
	if link == "" {
		return
	}

	if !*seeded {
		*seeded = true
		*lastLink = link
		w.cell.Set(row)
		return
	}
	if link != *lastLink {
		*lastLink = link
		w.cell.Set(row)
		slog.Info("music watcher: desired track changed", "id", row.ID, "name", row.Name)
	}
}
