// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider to verify which text and language reached the backend and to
// simulate synthesis failures. With CreateFiles set, each call produces a
// real temp file so callers that delete clips after playback can be tested
// end to end.
package mock

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/pattupetti/fmclient/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Text is the text passed to Synthesize.
	Text string
	// Lang is the language tag passed to Synthesize.
	Lang string
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Err, when non-nil, is returned by every Synthesize call.
	Err error

	// CreateFiles makes each call write an empty temp file and return its
	// path, so callers may os.Remove it.
	CreateFiles bool

	// Calls accumulates invocation records in call order.
	Calls []SynthesizeCall
}

// Synthesize records the call and returns a clip (or the configured error).
// Empty input returns tts.ErrEmptyText like a real backend.
func (p *Provider) Synthesize(_ context.Context, text, lang string) (*tts.Clip, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, SynthesizeCall{Text: text, Lang: lang})
	err := p.Err
	createFiles := p.CreateFiles
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, tts.ErrEmptyText
	}

	path := "mock.mp3"
	if createFiles {
		f, ferr := os.CreateTemp("", "mockclip_*.mp3")
		if ferr != nil {
			return nil, ferr
		}
		f.Close()
		path = f.Name()
	}
	return &tts.Clip{Path: path, Lang: lang, Engine: "mock"}, nil
}

// CallCount returns how many times Synthesize was invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
