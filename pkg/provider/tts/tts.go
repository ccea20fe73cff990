// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider wraps a speech synthesis service (the Google Translate
// endpoint, a local Coqui server, the OpenAI speech API) and renders one
// utterance per call into a temporary audio file. The caller owns the file
// and is expected to delete it after playback; synthesis on low-power
// devices is file-based rather than streamed because the external players
// (ffplay, mpg123) consume files, not PCM pipes.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when the input contains no speakable text after
// cleaning. Callers use it to tell content failures (never retryable) apart
// from transient synthesis failures.
var ErrEmptyText = errors.New("tts: text is empty")

// Clip is a synthesized audio artifact on disk plus the metadata needed for
// logging and playback.
type Clip struct {
	// Path is the absolute path of the generated audio file. The caller is
	// responsible for removing it.
	Path string

	// Lang is the language tag the clip was synthesized with (e.g. "en", "ml").
	Lang string

	// Engine names the backend that produced the clip.
	Engine string

	// Voice is the provider-specific voice identifier, if any.
	Voice string
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders text into an audio file and returns the resulting
	// [Clip]. lang is a short language tag; providers that cannot honour it
	// may ignore it but should still record it on the clip.
	//
	// Empty or whitespace-only text returns [ErrEmptyText]. Any other error
	// is transient (network, backend) and may be retried or routed to a
	// fallback provider.
	Synthesize(ctx context.Context, text, lang string) (*Clip, error)
}
