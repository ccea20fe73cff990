// Package mock provides an in-memory test double for [player.Player].
// It records every call so tests can assert on playback sequencing (start,
// duck, stop ordering) without spawning real processes.
package mock

import (
	"context"
	"sync"

	"github.com/pattupetti/fmclient/internal/player"
)

// Compile-time interface assertion.
var _ player.Player = (*Player)(nil)

// StartCall records the arguments of a single Start call.
type StartCall struct {
	URL    string
	Volume int
}

// ClipCall records the arguments of a single PlayClip call.
type ClipCall struct {
	Path string
	Gain float64
}

// Player is a mock implementation of [player.Player].
type Player struct {
	mu sync.Mutex

	// StartErr, ClipErr and RestartErr configure method return values.
	StartErr   error
	ClipErr    error
	RestartErr error

	// Durations maps url → probed duration for ProbeDuration. Missing keys
	// probe as unknown (nil).
	Durations map[string]int

	// Recorded calls, in call order.
	Starts   []StartCall
	Stops    int
	Restarts []int
	Clips    []ClipCall
	Probes   []string
}

func (p *Player) Start(_ context.Context, url string, volume int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Starts = append(p.Starts, StartCall{URL: url, Volume: volume})
	return p.StartErr
}

func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Stops++
}

func (p *Player) RestartWithVolume(_ context.Context, volume int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Restarts = append(p.Restarts, volume)
	return p.RestartErr
}

func (p *Player) PlayClip(_ context.Context, path string, gain float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Clips = append(p.Clips, ClipCall{Path: path, Gain: gain})
	return p.ClipErr
}

func (p *Player) ProbeDuration(_ context.Context, url string) (*int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Probes = append(p.Probes, url)
	if d, ok := p.Durations[url]; ok {
		v := d
		return &v, nil
	}
	return nil, nil
}

// StartCount returns how many times Start was called.
func (p *Player) StartCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Starts)
}

// StopCount returns how many times Stop was called.
func (p *Player) StopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Stops
}
