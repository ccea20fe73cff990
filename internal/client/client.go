// Package client runs the playback timeline: the single control loop that
// folds the desired-music signal, the pending-alert queues and the remote
// enable gate into one coherent audio session.
//
// The loop is strictly prioritized per tick: gate first, then desired-music
// changes, then the natural end of the current track, then a rate-limited
// alert check, then a short sleep. Every external failure degrades to "skip
// this tick"; only context cancellation ends the loop.
package client

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pattupetti/fmclient/internal/alerts"
	"github.com/pattupetti/fmclient/internal/db"
	"github.com/pattupetti/fmclient/internal/observe"
	"github.com/pattupetti/fmclient/internal/player"
	"github.com/pattupetti/fmclient/internal/state"
)

// Playback volumes. Ducked is what the music drops to while an AI alert is
// spoken over it.
const (
	NormalVolume = 100
	DuckedVolume = 10
)

// State is the controller's position in the playback timeline.
type State int32

const (
	// StateIdle means no track is selected.
	StateIdle State = iota

	// StatePlaying means a track is active, possibly with a countdown.
	StatePlaying

	// StateInterrupted means an alert is being spoken and music is stopped
	// or ducked underneath it.
	StateInterrupted

	// StateStopped means the gate is off or playback failed fatally.
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateInterrupted:
		return "interrupted"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MusicSource is the slice of the music watcher the controller samples.
type MusicSource interface {
	Desired() (*db.MusicItem, bool)
	ConsumeChange() (*db.MusicItem, bool)
}

// StatusSource is the slice of the status watcher the controller samples.
type StatusSource interface {
	Latest() (string, bool)
}

// Config tunes the timeline controller. The zero value is usable; New fills
// in defaults and enforces floors.
type Config struct {
	// FixedMusicID pins playback to one music row. Zero selects sequential
	// mode, advancing through the table by watermark.
	FixedMusicID int64

	// DetectDuration enables probing the resolver for the real media length
	// when the row carries none. Only honored in sequential mode.
	DetectDuration bool

	// DefaultDuration is the planned length assumed in sequential mode when
	// the row has no duration and probing is off or fails. Zero means no
	// fallback, so such tracks never end on their own.
	DefaultDuration time.Duration

	// AlertCheckInterval rate-limits alert queries during active playback.
	// Floor 200 ms, default 2 s. When idle, alerts are checked every
	// iteration regardless.
	AlertCheckInterval time.Duration

	// Tick is the loop sleep. Default 250 ms, capped at 500 ms.
	Tick time.Duration

	// StatusCacheTTL bounds direct gate queries when no status watcher is
	// wired. Default 1 s.
	StatusCacheTTL time.Duration
}

// Controller owns the playback timeline. It is driven by a single goroutine
// via [Controller.Run]; only [Controller.State] and [Controller.StopPlayback]
// are safe to call from outside.
type Controller struct {
	cfg       Config
	store     db.Store
	pl        player.Player
	arb       *alerts.Arbitrator
	music     MusicSource
	status    StatusSource
	st        *state.ClientState
	statePath string

	// Test seams.
	now   func() time.Time
	sleep func(context.Context, time.Duration)

	state atomic.Int32

	gateVal        bool
	gateAt         time.Time
	lastAlertCheck time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithMusicSource wires the desired-music watcher cell into the controller.
func WithMusicSource(src MusicSource) Option {
	return func(c *Controller) { c.music = src }
}

// WithStatusSource wires the status watcher cell into the controller. When
// set and seeded, it supersedes the controller's own cached gate queries.
func WithStatusSource(src StatusSource) Option {
	return func(c *Controller) { c.status = src }
}

// New creates a timeline controller around the shared client state record.
func New(store db.Store, pl player.Player, arb *alerts.Arbitrator, st *state.ClientState, statePath string, cfg Config, opts ...Option) *Controller {
	if cfg.Tick <= 0 {
		cfg.Tick = 250 * time.Millisecond
	}
	if cfg.Tick > 500*time.Millisecond {
		cfg.Tick = 500 * time.Millisecond
	}
	if cfg.AlertCheckInterval <= 0 {
		cfg.AlertCheckInterval = 2 * time.Second
	}
	if cfg.AlertCheckInterval < 200*time.Millisecond {
		cfg.AlertCheckInterval = 200 * time.Millisecond
	}
	if cfg.StatusCacheTTL <= 0 {
		cfg.StatusCacheTTL = time.Second
	}

	c := &Controller{
		cfg:       cfg,
		store:     store,
		pl:        pl,
		arb:       arb,
		st:        st,
		statePath: statePath,
		now:       time.Now,
	}
	c.sleep = func(ctx context.Context, d time.Duration) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the controller's current timeline state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// StopPlayback force-stops the player. It exists for the status watcher's
// disabled cascade and is safe to call from any goroutine.
func (c *Controller) StopPlayback() {
	c.pl.Stop()
}

// Run drives the timeline until ctx is cancelled, then stops playback.
func (c *Controller) Run(ctx context.Context) error {
	c.healWatermark(ctx)
	slog.Info("timeline controller running",
		"fixed_music_id", c.cfg.FixedMusicID,
		"detect_duration", c.cfg.DetectDuration,
		"tick", c.cfg.Tick,
	)

	for ctx.Err() == nil {
		c.step(ctx)
	}

	c.pl.Stop()
	c.setState(StateStopped)
	slog.Info("timeline controller stopped")
	return nil
}

// healWatermark resets the music watermark when it points past the end of
// the table, which happens when the table was truncated between runs.
func (c *Controller) healWatermark(ctx context.Context) {
	max, err := c.store.MaxMusicID(ctx)
	if err != nil {
		slog.Warn("watermark check skipped, database unreachable", "error", err)
		return
	}
	if c.st.LastMusicID > max {
		slog.Warn("music watermark ahead of table, resetting",
			"watermark", c.st.LastMusicID, "max_id", max)
		c.st.LastMusicID = 0
		c.st.LastMusicLink = ""
		c.persistState()
	}
}

// step runs one outer loop iteration: gate, then idle alert delivery, then
// track selection and the inner playback loop.
func (c *Controller) step(ctx context.Context) {
	if !c.gateEnabled(ctx) {
		c.setState(StateStopped)
		c.sleep(ctx, c.cfg.Tick)
		return
	}

	// Idle: no playback to protect, so alerts are checked every iteration.
	if a := c.arb.Next(ctx); a != nil {
		c.setState(StateInterrupted)
		c.arb.Deliver(ctx, a)
		c.setState(StateIdle)
		return
	}

	m := c.nextTrack(ctx)
	if m == nil {
		c.setState(StateIdle)
		c.sleep(ctx, c.cfg.Tick)
		return
	}
	c.play(ctx, m)
}

// nextTrack selects what should be playing now, or nil when there is nothing
// playable this tick.
func (c *Controller) nextTrack(ctx context.Context) *db.MusicItem {
	if c.cfg.FixedMusicID > 0 {
		if c.music != nil {
			if m, ok := c.music.Desired(); ok {
				return playable(m)
			}
		}
		m, err := c.store.MusicByID(ctx, c.cfg.FixedMusicID)
		if err != nil {
			slog.Warn("music row query failed", "id", c.cfg.FixedMusicID, "error", err)
			return nil
		}
		return playable(m)
	}

	m, err := c.store.NextMusicAfter(ctx, c.st.LastMusicID)
	if err != nil {
		slog.Warn("next music query failed", "after", c.st.LastMusicID, "error", err)
		return nil
	}
	if m == nil {
		// End of table. Replay the newest row if its link was overwritten
		// since we finished it.
		latest, err := c.store.LatestMusic(ctx)
		if err == nil && latest != nil && latest.ID == c.st.LastMusicID &&
			strings.TrimSpace(latest.Link) != strings.TrimSpace(c.st.LastMusicLink) {
			m = latest
		}
	}
	return playable(m)
}

// playable filters out absent rows and rows without a usable link.
func playable(m *db.MusicItem) *db.MusicItem {
	if m == nil || strings.TrimSpace(m.Link) == "" {
		return nil
	}
	return m
}

// play runs the inner per-tick loop for one track, following the strict
// priority order: gate, desired-music change, natural end, alerts, sleep.
func (c *Controller) play(ctx context.Context, m *db.MusicItem) {
	planned := c.plannedDuration(ctx, m)
	if !c.startTrack(ctx, m, planned) {
		return
	}
	started := c.now()
	c.lastAlertCheck = c.now()

	for ctx.Err() == nil {
		if !c.gateEnabled(ctx) {
			// The watermark stays put so the track replays once the gate
			// turns back on.
			c.pl.Stop()
			c.setState(StateStopped)
			slog.Info("playback gated off", "id", m.ID)
			return
		}

		if next := c.pendingSwitch(m); next != nil {
			c.pl.Stop()
			m = next
			planned = c.plannedDuration(ctx, m)
			if !c.startTrack(ctx, m, planned) {
				return
			}
			started = c.now()
			continue
		}

		if planned != nil && c.now().Sub(started) >= *planned {
			c.pl.Stop()
			c.advanceMusicWatermark(m)
			c.setState(StateIdle)
			slog.Info("track finished", "id", m.ID, "name", m.Name)
			return
		}

		if c.now().Sub(c.lastAlertCheck) >= c.cfg.AlertCheckInterval {
			c.lastAlertCheck = c.now()
			if a := c.arb.Next(ctx); a != nil {
				c.handleAlert(ctx, a, m)
				if a.Kind == db.AlertUser {
					// Music restarted from the top.
					started = c.now()
				}
				continue
			}
		}

		c.sleep(ctx, c.cfg.Tick)
	}
}

// startTrack starts playback and reports success. A start failure degrades
// to idle so the outer loop retries next tick.
func (c *Controller) startTrack(ctx context.Context, m *db.MusicItem, planned *time.Duration) bool {
	if err := c.pl.Start(ctx, strings.TrimSpace(m.Link), NormalVolume); err != nil {
		slog.Warn("start playback failed", "id", m.ID, "name", m.Name, "error", err)
		c.setState(StateIdle)
		c.sleep(ctx, c.cfg.Tick)
		return false
	}
	c.setState(StatePlaying)
	mode := "sequential"
	if c.cfg.FixedMusicID > 0 {
		mode = "fixed"
	}
	observe.DefaultMetrics().RecordTrackStarted(ctx, mode)
	if planned != nil {
		slog.Info("playing", "id", m.ID, "name", m.Name, "duration", *planned)
	} else {
		slog.Info("playing", "id", m.ID, "name", m.Name, "duration", "continuous")
	}
	return true
}

// pendingSwitch returns the new desired track when the watcher reports a
// change that differs from what is playing, by (id, trimmed link) identity.
func (c *Controller) pendingSwitch(current *db.MusicItem) *db.MusicItem {
	if c.music == nil {
		return nil
	}
	next, ok := c.music.ConsumeChange()
	if !ok || db.SameMusic(next, current) {
		return nil
	}
	return playable(next)
}

// handleAlert interrupts playback for one alert: user alerts silence the
// music entirely and restart it afterwards, AI alerts duck it.
func (c *Controller) handleAlert(ctx context.Context, a *db.Alert, m *db.MusicItem) {
	c.setState(StateInterrupted)
	defer c.setState(StatePlaying)

	if a.Kind == db.AlertUser {
		c.pl.Stop()
		c.arb.Deliver(ctx, a)
		if err := c.pl.Start(ctx, strings.TrimSpace(m.Link), NormalVolume); err != nil {
			slog.Warn("restart after user alert failed", "id", m.ID, "error", err)
		}
		return
	}

	if err := c.pl.RestartWithVolume(ctx, DuckedVolume); err != nil {
		slog.Warn("duck failed, speaking over full volume", "error", err)
	}
	c.arb.Deliver(ctx, a)
	if err := c.pl.RestartWithVolume(ctx, NormalVolume); err != nil {
		slog.Warn("volume restore failed", "error", err)
	}
}

// plannedDuration resolves how long the track should play: the row value
// first, then a probe (sequential mode with detection on), then the
// configured default (sequential mode only). Fixed-row mode without a row
// duration is continuous.
func (c *Controller) plannedDuration(ctx context.Context, m *db.MusicItem) *time.Duration {
	if m.DurationSeconds != nil && *m.DurationSeconds > 0 {
		d := time.Duration(*m.DurationSeconds) * time.Second
		return &d
	}

	sequential := c.cfg.FixedMusicID == 0
	if sequential && c.cfg.DetectDuration {
		secs, err := c.pl.ProbeDuration(ctx, strings.TrimSpace(m.Link))
		if err != nil {
			slog.Debug("duration probe failed", "id", m.ID, "error", err)
		} else if secs != nil && *secs > 0 {
			d := time.Duration(*secs) * time.Second
			return &d
		}
	}
	if sequential && c.cfg.DefaultDuration > 0 {
		d := c.cfg.DefaultDuration
		return &d
	}
	return nil
}

// gateEnabled answers "may audio play right now". A seeded status watcher
// wins; otherwise the status is queried directly with a short-TTL cache to
// bound database load. Losing the database means losing permission to play.
func (c *Controller) gateEnabled(ctx context.Context) bool {
	if c.status != nil {
		if raw, ok := c.status.Latest(); ok {
			return db.StatusEnabled(raw)
		}
	}

	if !c.gateAt.IsZero() && c.now().Sub(c.gateAt) < c.cfg.StatusCacheTTL {
		return c.gateVal
	}
	raw, err := c.store.ServerStatus(ctx)
	if err != nil {
		raw = ""
	}
	c.gateVal = db.StatusEnabled(raw)
	c.gateAt = c.now()
	return c.gateVal
}

// advanceMusicWatermark records that the track completed normally.
func (c *Controller) advanceMusicWatermark(m *db.MusicItem) {
	c.st.LastMusicID = m.ID
	c.st.LastMusicLink = strings.TrimSpace(m.Link)
	c.persistState()
}

func (c *Controller) persistState() {
	if err := state.Save(c.statePath, c.st); err != nil {
		slog.Warn("persist client state", "error", err)
	}
}
