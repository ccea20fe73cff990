// Package player manages the external audio player processes. Links are
// resolved to direct stream URLs with yt-dlp, playback runs in a detached
// ffplay (preferred) or mpg123 process, and stop kills the whole process
// group so helper children do not keep the audio device open.
//
// There is no live volume control on the supported players: "change volume"
// is implemented as a restart of the player process at the new volume using
// the cached resolved URL, which is what the ducking behaviour relies on.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// ErrNoPlayer is returned when neither ffplay nor mpg123 is installed.
var ErrNoPlayer = errors.New("player: no audio player found (install ffmpeg or mpg123)")

// Player is the playback control surface the control loop depends on.
type Player interface {
	// Start resolves url and begins playback at volume (0–100), returning
	// as soon as the player process is running.
	Start(ctx context.Context, url string, volume int) error

	// Stop forcibly terminates the current player process group. Safe to
	// call when nothing is playing.
	Stop()

	// RestartWithVolume restarts the current playback at a new volume using
	// the previously resolved stream URL, skipping yt-dlp. It is a no-op
	// when nothing is playing or the volume is unchanged.
	RestartWithVolume(ctx context.Context, volume int) error

	// PlayClip plays a local audio file to completion, applying a gain
	// multiplier (1.0 = unchanged). It blocks until playback finishes.
	PlayClip(ctx context.Context, path string, gain float64) error

	// ProbeDuration returns the media length of url in seconds, or nil when
	// it is unknown or a live stream.
	ProbeDuration(ctx context.Context, url string) (*int, error)
}

// StreamPlayer implements [Player] on top of external processes.
// All methods are safe for concurrent use; at most one stream plays at a time.
type StreamPlayer struct {
	resolver *Resolver
	lookPath func(string) (string, error)

	mu            sync.Mutex
	proc          *exec.Cmd
	currentSource string
	currentStream string
	currentVolume int
}

// Compile-time interface check.
var _ Player = (*StreamPlayer)(nil)

// Option configures a [StreamPlayer].
type Option func(*StreamPlayer)

// WithResolver replaces the default yt-dlp resolver.
func WithResolver(r *Resolver) Option {
	return func(p *StreamPlayer) {
		p.resolver = r
	}
}

// New creates a ready-to-use StreamPlayer.
func New(opts ...Option) *StreamPlayer {
	p := &StreamPlayer{
		resolver: NewResolver(),
		lookPath: exec.LookPath,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Start resolves url via yt-dlp and spawns a player process for the stream.
func (p *StreamPlayer) Start(ctx context.Context, url string, volume int) error {
	p.Stop()

	stream, err := p.resolver.Resolve(ctx, url)
	if err != nil {
		return fmt.Errorf("player: resolve %q: %w", url, err)
	}
	return p.spawn(url, stream, clampVolume(volume))
}

// RestartWithVolume restarts the active stream at a new volume without
// re-resolving.
func (p *StreamPlayer) RestartWithVolume(_ context.Context, volume int) error {
	p.mu.Lock()
	source, stream := p.currentSource, p.currentStream
	current := p.currentVolume
	p.mu.Unlock()

	if stream == "" {
		return nil
	}
	volume = clampVolume(volume)
	if volume == current {
		return nil
	}

	p.Stop()
	return p.spawn(source, stream, volume)
}

// spawn launches the player process for an already-resolved stream URL.
func (p *StreamPlayer) spawn(source, stream string, volume int) error {
	var cmd *exec.Cmd
	switch {
	case p.has("ffplay"):
		cmd = exec.Command("ffplay",
			"-nodisp", "-autoexit", "-loglevel", "error",
			"-volume", strconv.Itoa(volume),
			stream,
		)
	case p.has("mpg123"):
		// mpg123 has no volume flag worth using here; ducking degrades to a
		// plain restart on such devices.
		cmd = exec.Command("mpg123", "-q", stream)
	default:
		return ErrNoPlayer
	}
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("player: start %s: %w", cmd.Path, err)
	}

	// Reap the process in the background so it never turns into a zombie.
	go cmd.Wait()

	p.mu.Lock()
	p.proc = cmd
	p.currentSource = source
	p.currentStream = stream
	p.currentVolume = volume
	p.mu.Unlock()
	return nil
}

// Stop kills the current player process group, if any.
func (p *StreamPlayer) Stop() {
	p.mu.Lock()
	proc := p.proc
	p.proc = nil
	p.currentSource = ""
	p.currentStream = ""
	p.mu.Unlock()

	if proc == nil || proc.Process == nil {
		return
	}
	if err := killTree(proc); err != nil {
		slog.Debug("player: kill process tree", "pid", proc.Process.Pid, "err", err)
	}
}

// IsPlaying reports whether a player process is currently running.
func (p *StreamPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.proc != nil && p.proc.ProcessState == nil && p.proc.Process != nil
}

// PlayClip plays a local file to completion through ffplay, applying gain as
// an audio filter. When ffplay is missing it falls back to mpg123 (without
// gain); with neither installed it returns [ErrNoPlayer].
func (p *StreamPlayer) PlayClip(ctx context.Context, path string, gain float64) error {
	var cmd *exec.Cmd
	switch {
	case p.has("ffplay"):
		args := []string{"-nodisp", "-autoexit", "-loglevel", "error", "-volume", "100"}
		if gain != 0 && gain != 1.0 {
			args = append(args, "-af", fmt.Sprintf("volume=%g", gain))
		}
		args = append(args, path)
		cmd = exec.CommandContext(ctx, "ffplay", args...)
	case p.has("mpg123"):
		cmd = exec.CommandContext(ctx, "mpg123", "-q", path)
	default:
		return ErrNoPlayer
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := ""
		if len(out) > 0 {
			detail = ": " + string(out)
		}
		return fmt.Errorf("player: play clip %q: %w%s", path, err, detail)
	}
	return nil
}

// ProbeDuration delegates to the resolver's yt-dlp metadata probe.
func (p *StreamPlayer) ProbeDuration(ctx context.Context, url string) (*int, error) {
	return p.resolver.ProbeDuration(ctx, url)
}

func (p *StreamPlayer) has(binary string) bool {
	_, err := p.lookPath(binary)
	return err == nil
}
