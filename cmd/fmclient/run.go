package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pattupetti/fmclient/internal/alerts"
	"github.com/pattupetti/fmclient/internal/client"
	"github.com/pattupetti/fmclient/internal/config"
	"github.com/pattupetti/fmclient/internal/db"
	"github.com/pattupetti/fmclient/internal/health"
	"github.com/pattupetti/fmclient/internal/observe"
	"github.com/pattupetti/fmclient/internal/player"
	"github.com/pattupetti/fmclient/internal/speech"
	"github.com/pattupetti/fmclient/internal/state"
	"github.com/pattupetti/fmclient/internal/watch"
	"github.com/pattupetti/fmclient/pkg/provider/tts"
	"github.com/pattupetti/fmclient/pkg/provider/tts/coqui"
	"github.com/pattupetti/fmclient/pkg/provider/tts/gtrans"
	ttsmock "github.com/pattupetti/fmclient/pkg/provider/tts/mock"
	oaitts "github.com/pattupetti/fmclient/pkg/provider/tts/openai"
)

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.SetDefault(newLogger(cfg.Log.Level))
	slog.Info("fmclient starting",
		"version", version,
		"config", flagConfig,
		"state", cfg.State.Path,
		"fixed_music_id", cfg.Playback.FixedMusicID,
		"tts", cfg.TTS.Provider.Name,
		"speech_enabled", cfg.TTS.SpeechEnabled(),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry must come up before anything records through
	// [observe.DefaultMetrics]; the singleton binds its instruments to
	// whatever meter provider is global at first use.
	if cfg.Metrics.ListenAddr != "" {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				slog.Warn("telemetry shutdown", "err", err)
			}
		}()
	}

	// Database pool.
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	store := db.NewPostgres(pool)

	// Durable client state. A missing or corrupt file starts fresh.
	st := state.Load(cfg.State.Path)
	slog.Info("client state loaded",
		"music_id", st.LastMusicID,
		"user_alert_id", st.LastUserAlertID,
		"ai_alert_id", st.LastAIAlertID,
	)

	// Player and resolver.
	resolver := player.NewResolver(
		player.WithBinary(cfg.Player.YtDlpPath),
		player.WithTTL(cfg.Player.ResolveCacheTTL()),
		player.WithResolveTimeout(cfg.Player.ResolveTimeout()),
	)
	pl := player.New(player.WithResolver(resolver))

	// Speech pipeline.
	speaker, err := buildSpeaker(cfg, pl)
	if err != nil {
		return err
	}

	arb := alerts.NewArbitrator(store, speaker, st, cfg.State.Path)

	// The controller is wired before the watchers start so the disabled
	// cascade never fires against a half-built graph.
	var ctrl *client.Controller
	statusWatcher := watch.NewStatusWatcher(store, func() { ctrl.StopPlayback() },
		watch.WithStatusInterval(cfg.Watch.StatusInterval()),
		watch.WithHeartbeat(cfg.Watch.Heartbeat()),
	)

	ctrlOpts := []client.Option{client.WithStatusSource(statusWatcher)}
	var musicWatcher *watch.MusicWatcher
	if cfg.Playback.FixedMusicID > 0 {
		musicWatcher = watch.NewMusicWatcher(store, cfg.Playback.FixedMusicID,
			watch.WithMusicInterval(cfg.Watch.MusicInterval()),
		)
		ctrlOpts = append(ctrlOpts, client.WithMusicSource(musicWatcher))
	}

	ctrl = client.New(store, pl, arb, st, cfg.State.Path, client.Config{
		FixedMusicID:       cfg.Playback.FixedMusicID,
		DetectDuration:     cfg.Playback.DetectDuration && !flagNoDurationProbe,
		DefaultDuration:    cfg.Playback.DefaultDuration(),
		AlertCheckInterval: cfg.Alerts.CheckInterval(),
		Tick:               cfg.Playback.Tick(),
		StatusCacheTTL:     cfg.Playback.StatusCacheTTL(),
	}, ctrlOpts...)

	statusWatcher.Start()
	defer statusWatcher.Stop()
	if musicWatcher != nil {
		musicWatcher.Start()
		defer musicWatcher.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(ctx) })

	if cfg.Metrics.ListenAddr != "" {
		g.Go(func() error {
			return serveObservability(ctx, cfg.Metrics.ListenAddr, pool, cfg.Player.YtDlpPath)
		})
	}

	slog.Info("fmclient ready")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("fmclient stopped")
	return nil
}

// loadConfig reads the config file and layers the CLI flag overrides on top.
// When the file is missing but --dsn is given, the defaults are used so the
// client can run from flags alone.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config

	f, err := os.Open(flagConfig)
	switch {
	case errors.Is(err, os.ErrNotExist) && flagDSN != "":
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	case err != nil:
		return nil, fmt.Errorf("open config %q: %w", flagConfig, err)
	default:
		defer f.Close()
		cfg, err = config.Parse(f)
		if err != nil {
			return nil, err
		}
	}

	if flagDSN != "" {
		cfg.Database.DSN = flagDSN
	}
	if flagStatePath != "" {
		cfg.State.Path = flagStatePath
	}
	if flagMusicID > 0 {
		cfg.Playback.FixedMusicID = flagMusicID
	}
	if flagMetricsAddr != "" {
		cfg.Metrics.ListenAddr = flagMetricsAddr
	}
	if flagLogLevel != "" {
		cfg.Log.Level = config.LogLevel(flagLogLevel)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildSpeaker assembles the TTS chain and the speech pipeline. With speech
// disabled no backend is constructed; the speaker stays a silent no-op and
// alerts are still acknowledged.
func buildSpeaker(cfg *config.Config, pl player.Player) (*speech.Speaker, error) {
	if !cfg.TTS.SpeechEnabled() || flagNoTTS {
		sp := speech.New(nil, pl)
		sp.Enabled = false
		slog.Info("speech output disabled")
		return sp, nil
	}

	reg := config.NewRegistry()
	registerTTSProviders(reg)

	provider, err := reg.BuildTTS(cfg.TTS)
	if err != nil {
		return nil, fmt.Errorf("build tts chain: %w", err)
	}
	for _, e := range cfg.TTS.Fallbacks {
		slog.Info("tts fallback registered", "name", e.Name)
	}

	sp := speech.New(provider, pl)
	sp.Debug = cfg.TTS.Debug
	return sp, nil
}

// registerTTSProviders wires the built-in speech backend factories into reg.
func registerTTSProviders(reg *config.Registry) {
	reg.RegisterTTS("gtrans", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []gtrans.Option
		if entry.BaseURL != "" {
			opts = append(opts, gtrans.WithBaseURL(entry.BaseURL))
		}
		return gtrans.New(opts...), nil
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if entry.Voice != "" {
			opts = append(opts, coqui.WithSpeaker(entry.Voice))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []oaitts.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaitts.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, oaitts.WithModel(entry.Model))
		}
		if entry.Voice != "" {
			opts = append(opts, oaitts.WithVoice(entry.Voice))
		}
		return oaitts.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("mock", func(config.ProviderEntry) (tts.Provider, error) {
		return &ttsmock.Provider{CreateFiles: true}, nil
	})
}

// serveObservability runs the /metrics and health endpoints until ctx is
// cancelled.
func serveObservability(ctx context.Context, addr string, pool *pgxpool.Pool, ytdlp string) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(
		health.Database(pool),
		health.Player("ffplay", "mpg123"),
		health.Binaries(ytdlp),
	).Register(mux)

	srv := &http.Server{
		Addr:    addr,
		Handler: observe.Middleware(observe.DefaultMetrics())(mux),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("observability listener up", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("observability listener: %w", err)
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
