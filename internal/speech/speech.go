// Package speech turns alert messages into audible speech: it splits a
// message into speakable segments, synthesizes each through a tts.Provider,
// and plays the resulting clips through the external player at a given gain.
//
// Failures are isolated per segment — one unspeakable or failing segment
// never aborts the remainder of the message — and the temporary audio file
// is removed unconditionally, even when playback fails, because the target
// devices run off small SD cards.
package speech

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pattupetti/fmclient/internal/observe"
	"github.com/pattupetti/fmclient/internal/player"
	"github.com/pattupetti/fmclient/pkg/provider/tts"
)

// DefaultLang is the language tag used when no script marker is detected.
const DefaultLang = "en"

// segmentRe splits a message on runs of pipe or newline separators.
var segmentRe = regexp.MustCompile(`[|\n]+`)

// invisibleRe matches zero-width and directional control characters that
// confuse TTS tokenizers.
var invisibleRe = regexp.MustCompile("[\u200b-\u200f\u202a-\u202e]")

// Split breaks a message into ordered, trimmed, non-empty segments. A
// message without separators yields itself as the single segment; an empty
// or whitespace-only message yields nothing.
func Split(msg string) []string {
	var parts []string
	for _, p := range segmentRe.Split(msg, -1) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// StripInvisible removes zero-width and direction-control characters and
// collapses runs of whitespace.
func StripInvisible(s string) string {
	s = invisibleRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// DetectLanguage returns "ml" when text contains any character from the
// Malayalam Unicode block (U+0D00–U+0D7F), else [DefaultLang].
func DetectLanguage(text string) string {
	for _, r := range text {
		if r >= 0x0D00 && r <= 0x0D7F {
			return "ml"
		}
	}
	return DefaultLang
}

// HasSpeakableText reports whether msg contains anything left to say after
// cleaning.
func HasSpeakableText(msg string) bool {
	return StripInvisible(msg) != ""
}

// Speaker renders messages through a TTS backend and the audio player.
type Speaker struct {
	provider tts.Provider
	player   player.Player

	// Enabled gates all speech; when false Speak is a silent no-op.
	Enabled bool

	// Debug adds verbose per-segment log lines for chasing encoding issues.
	Debug bool
}

// New creates a Speaker. Speech starts enabled.
func New(provider tts.Provider, pl player.Player) *Speaker {
	return &Speaker{provider: provider, player: pl, Enabled: true}
}

// Speak synthesizes and plays every speakable segment of msg at the given
// gain, blocking until the last clip finishes. It returns the number of
// segments actually spoken; callers treat zero-with-visible-text as a
// content failure. Per-segment synthesis or playback errors are logged and
// skipped.
func (s *Speaker) Speak(ctx context.Context, msg string, gain float64) int {
	if !s.Enabled {
		return 0
	}
	if s.Debug {
		slog.Debug("tts message", "len", len(msg), "raw", msg)
	}

	spoken := 0
	for _, part := range Split(msg) {
		clean := StripInvisible(part)
		if clean == "" {
			continue
		}
		lang := DetectLanguage(clean)
		if s.Debug {
			slog.Debug("tts segment", "len", len(clean), "lang", lang, "text", clean)
		}

		start := time.Now()
		clip, err := s.provider.Synthesize(ctx, clean, lang)
		observe.DefaultMetrics().TTSDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			slog.Warn("speech: synthesis failed for segment", "lang", lang, "err", err)
			observe.DefaultMetrics().RecordProviderError(ctx, "tts")
			continue
		}

		slog.Info("speaking",
			"engine", clip.Engine,
			"lang", clip.Lang,
			"voice", clip.Voice,
			"gain", gain,
		)

		playErr := s.player.PlayClip(ctx, clip.Path, gain)
		if err := os.Remove(clip.Path); err != nil && !os.IsNotExist(err) {
			slog.Debug("speech: remove clip", "path", clip.Path, "err", err)
		}
		if playErr != nil {
			slog.Warn("speech: playback failed for segment", "err", playErr)
			continue
		}
		spoken++
	}
	return spoken
}
