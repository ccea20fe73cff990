package config_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/pattupetti/fmclient/internal/config"
)

const minimalYAML = `
database:
  dsn: postgres://radio@localhost:5432/radio
`

func TestLoadFromReader_DefaultsApplied(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Log.Level != config.LogInfo {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
	if cfg.State.Path != "fmclient-state.yaml" {
		t.Errorf("state path = %q", cfg.State.Path)
	}
	if cfg.Playback.TickSeconds != 0.25 {
		t.Errorf("tick = %v, want 0.25", cfg.Playback.TickSeconds)
	}
	if cfg.Player.YtDlpPath != "yt-dlp" {
		t.Errorf("yt-dlp path = %q", cfg.Player.YtDlpPath)
	}
	if cfg.Player.ResolveCacheTTLSeconds != 600 {
		t.Errorf("resolve cache ttl = %v, want 600", cfg.Player.ResolveCacheTTLSeconds)
	}
	if cfg.TTS.Provider.Name != "gtrans" {
		t.Errorf("tts provider = %q, want gtrans", cfg.TTS.Provider.Name)
	}
	if !cfg.TTS.SpeechEnabled() {
		t.Error("speech should default to enabled")
	}
	if cfg.Watch.MusicIntervalSeconds != 1.5 {
		t.Errorf("music interval = %v, want 1.5", cfg.Watch.MusicIntervalSeconds)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(minimalYAML + "\nnosuchsection:\n  x: 1\n"))
	if err == nil {
		t.Fatal("unknown top-level section should be rejected")
	}
}

func TestLoadFromReader_ValidationErrorsJoined(t *testing.T) {
	t.Parallel()

	bad := `
log:
  level: loud
playback:
  fixed_music_id: -3
  tick_seconds: 2
`
	_, err := config.LoadFromReader(strings.NewReader(bad))
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"log.level", "fixed_music_id", "tick_seconds", "database.dsn"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadFromReader_DisabledSpeech(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(minimalYAML + "\ntts:\n  enabled: false\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.TTS.SpeechEnabled() {
		t.Error("tts.enabled: false should disable speech")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load("/nonexistent/fmclient.yaml")
	if err == nil {
		t.Fatal("missing config file should error")
	}
}

func TestValidate_FallbackNeedsName(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Database.DSN = "postgres://x"
	cfg.TTS.Fallbacks = []config.ProviderEntry{{}}

	err := config.Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "tts.fallbacks") {
		t.Fatalf("err = %v, want a fallbacks name error", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	if got := cfg.Playback.Tick().Milliseconds(); got != 250 {
		t.Errorf("Tick = %dms, want 250", got)
	}
	if got := cfg.Alerts.CheckInterval().Seconds(); got != 2 {
		t.Errorf("CheckInterval = %vs, want 2", got)
	}
	if got := cfg.Player.ResolveCacheTTL().Minutes(); got != 10 {
		t.Errorf("ResolveCacheTTL = %vmin, want 10", got)
	}
}

func TestValidate_JoinedErrorsAreInspectable(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("empty dsn should fail validation")
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		// A single failure may come back unjoined; that is fine too.
		if !strings.Contains(err.Error(), "database.dsn") {
			t.Errorf("err = %v, want dsn failure", err)
		}
	}
}
