package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidTTSProviders lists the known speech backend names. [Validate] warns
// about unrecognised names rather than rejecting them.
var ValidTTSProviders = []string{"gtrans", "coqui", "openai", "mock"}

// minIntervalSeconds is the poll floor shared with the watchers. Sub-floor
// values are clamped there; the loader only warns.
const minIntervalSeconds = 0.2

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg, err := Parse(r)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a YAML config from r and applies defaults, but does not
// validate. The caller applies flag overrides between Parse and [Validate] so
// a value supplied only on the command line still passes validation.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// ApplyDefaults fills in zero-valued fields. Cobra flag overrides run after
// this, so flags always win over both the file and the defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = LogInfo
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 4
	}
	if cfg.State.Path == "" {
		cfg.State.Path = "fmclient-state.yaml"
	}
	if cfg.Playback.TickSeconds <= 0 {
		cfg.Playback.TickSeconds = 0.25
	}
	if cfg.Playback.StatusCacheTTLSeconds <= 0 {
		cfg.Playback.StatusCacheTTLSeconds = 1
	}
	if cfg.Player.YtDlpPath == "" {
		cfg.Player.YtDlpPath = "yt-dlp"
	}
	if cfg.Player.ResolveCacheTTLSeconds <= 0 {
		cfg.Player.ResolveCacheTTLSeconds = 600
	}
	if cfg.Player.ResolveTimeoutSeconds <= 0 {
		cfg.Player.ResolveTimeoutSeconds = 60
	}
	if cfg.Watch.MusicIntervalSeconds <= 0 {
		cfg.Watch.MusicIntervalSeconds = 1.5
	}
	if cfg.Watch.StatusIntervalSeconds <= 0 {
		cfg.Watch.StatusIntervalSeconds = 2
	}
	if cfg.Watch.HeartbeatSeconds <= 0 {
		cfg.Watch.HeartbeatSeconds = 30
	}
	if cfg.Alerts.CheckIntervalSeconds <= 0 {
		cfg.Alerts.CheckIntervalSeconds = 2
	}
	if cfg.TTS.Provider.Name == "" {
		cfg.TTS.Provider.Name = "gtrans"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	if cfg.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if cfg.Playback.FixedMusicID < 0 {
		errs = append(errs, fmt.Errorf("playback.fixed_music_id %d must not be negative", cfg.Playback.FixedMusicID))
	}
	if cfg.Playback.DefaultDurationSeconds < 0 {
		errs = append(errs, fmt.Errorf("playback.default_duration_seconds %d must not be negative", cfg.Playback.DefaultDurationSeconds))
	}
	if cfg.Playback.TickSeconds > 0.5 {
		errs = append(errs, fmt.Errorf("playback.tick_seconds %.2f exceeds the 0.5 s loop budget", cfg.Playback.TickSeconds))
	}

	warnBelowFloor("watch.music_interval_seconds", cfg.Watch.MusicIntervalSeconds)
	warnBelowFloor("watch.status_interval_seconds", cfg.Watch.StatusIntervalSeconds)
	warnBelowFloor("alerts.check_interval_seconds", cfg.Alerts.CheckIntervalSeconds)

	validateTTSName(cfg.TTS.Provider)
	for _, e := range cfg.TTS.Fallbacks {
		if e.Name == "" {
			errs = append(errs, errors.New("tts.fallbacks entries require a name"))
			continue
		}
		validateTTSName(e)
	}

	return errors.Join(errs...)
}

func warnBelowFloor(field string, v float64) {
	if v < minIntervalSeconds {
		slog.Warn("interval below floor, will be clamped",
			"field", field, "value", v, "floor", minIntervalSeconds)
	}
}

// validateTTSName logs a warning if name is not in [ValidTTSProviders].
func validateTTSName(e ProviderEntry) {
	if e.Name == "" || slices.Contains(ValidTTSProviders, e.Name) {
		return
	}
	slog.Warn("unknown tts provider name, may be a typo or third-party provider",
		"name", e.Name,
		"known", ValidTTSProviders,
	)
}
