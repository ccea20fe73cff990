package resilience

import (
	"context"
	"errors"

	"github.com/pattupetti/fmclient/pkg/provider/tts"
)

// TTSFallback implements [tts.Provider] with automatic failover across multiple
// TTS backends. Each backend has its own circuit breaker, so a rate-limited or
// unreachable engine is bypassed in favour of the next one for as long as its
// breaker stays open.
//
// [tts.ErrEmptyText] is treated as permanent: a message with nothing speakable
// in it will be just as empty on every other backend.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	if cfg.Permanent == nil {
		cfg.Permanent = func(err error) bool {
			return errors.Is(err, tts.ErrEmptyText)
		}
	}
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional TTS provider as a fallback.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Synthesize renders text through the first healthy backend.
func (f *TTSFallback) Synthesize(ctx context.Context, text, lang string) (*tts.Clip, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) (*tts.Clip, error) {
		return p.Synthesize(ctx, text, lang)
	})
}
