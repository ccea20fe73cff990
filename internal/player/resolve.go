package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pattupetti/fmclient/internal/observe"
)

const (
	defaultResolveTTL     = 10 * time.Minute
	defaultResolveTimeout = 60 * time.Second
	defaultProbeTimeout   = 45 * time.Second
)

// runFunc executes an external command and returns its stdout. Swapped out
// in tests.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Resolver turns music links into directly playable stream URLs using
// yt-dlp, caching results because resolution takes several seconds on
// low-power devices. It is safe for concurrent use.
type Resolver struct {
	binary  string
	ttl     time.Duration
	timeout time.Duration
	run     runFunc

	mu    sync.Mutex
	cache map[string]resolveEntry
}

type resolveEntry struct {
	stream string
	at     time.Time
}

// ResolverOption configures a [Resolver].
type ResolverOption func(*Resolver)

// WithBinary sets the yt-dlp executable name or path. Default "yt-dlp".
func WithBinary(bin string) ResolverOption {
	return func(r *Resolver) {
		if bin != "" {
			r.binary = bin
		}
	}
}

// WithTTL sets how long resolved stream URLs stay cached. Default 10 min.
func WithTTL(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.ttl = d
		}
	}
}

// WithResolveTimeout bounds a single yt-dlp resolution call. Default 60 s.
func WithResolveTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewResolver creates a Resolver with an empty cache.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		binary:  "yt-dlp",
		ttl:     defaultResolveTTL,
		timeout: defaultResolveTimeout,
		run:     runCommand,
		cache:   make(map[string]resolveEntry),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns a directly playable stream URL for url, from cache when
// fresh.
func (r *Resolver) Resolve(ctx context.Context, url string) (string, error) {
	key := strings.TrimSpace(url)
	if key == "" {
		return "", errors.New("resolver: url is empty")
	}

	r.mu.Lock()
	entry, ok := r.cache[key]
	r.mu.Unlock()
	if ok && entry.stream != "" && time.Since(entry.at) <= r.ttl {
		return entry.stream, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	out, err := r.run(ctx, r.binary, "-g", "-f", "bestaudio", "--no-playlist", key)
	observe.DefaultMetrics().ResolveDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("resolver: %s -g: %w", r.binary, err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	stream := strings.TrimSpace(lines[len(lines)-1])
	if stream == "" {
		return "", fmt.Errorf("resolver: %s returned no stream URL", r.binary)
	}

	r.mu.Lock()
	r.cache[key] = resolveEntry{stream: stream, at: time.Now()}
	r.mu.Unlock()
	return stream, nil
}

// mediaInfo is the subset of yt-dlp's -J output the probe cares about.
type mediaInfo struct {
	IsLive   bool     `json:"is_live"`
	Duration *float64 `json:"duration"`
}

// ProbeDuration returns the media length of url in whole seconds. Live
// streams, missing metadata, and probe failures all yield (nil, err-or-nil):
// the caller treats nil as "unknown" either way.
func (r *Resolver) ProbeDuration(ctx context.Context, url string) (*int, error) {
	key := strings.TrimSpace(url)
	if key == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	out, err := r.run(ctx, r.binary, "-J", "--no-playlist", key)
	if err != nil {
		return nil, fmt.Errorf("resolver: %s -J: %w", r.binary, err)
	}

	var info mediaInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("resolver: parse %s metadata: %w", r.binary, err)
	}
	if info.IsLive || info.Duration == nil {
		return nil, nil
	}
	secs := int(*info.Duration)
	if secs <= 0 {
		return nil, nil
	}
	return &secs, nil
}
