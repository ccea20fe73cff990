package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pattupetti/fmclient/internal/resilience"
	"github.com/pattupetti/fmclient/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by [Registry.CreateTTS] when no factory
// has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps TTS provider names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	tts map[string]func(ProviderEntry) (tts.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		tts: make(map[string]func(ProviderEntry) (tts.Provider, error)),
	}
}

// RegisterTTS registers a TTS provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// CreateTTS instantiates a TTS provider using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// BuildTTS assembles the speech backend from cfg: the primary provider alone
// when no fallbacks are configured, otherwise a failover chain with per-entry
// circuit breakers.
func (r *Registry) BuildTTS(cfg TTSConfig) (tts.Provider, error) {
	primary, err := r.CreateTTS(cfg.Provider)
	if err != nil {
		return nil, err
	}
	if len(cfg.Fallbacks) == 0 {
		return primary, nil
	}

	chain := resilience.NewTTSFallback(primary, cfg.Provider.Name, resilience.FallbackConfig{})
	for _, entry := range cfg.Fallbacks {
		p, err := r.CreateTTS(entry)
		if err != nil {
			return nil, err
		}
		chain.AddFallback(entry.Name, p)
	}
	return chain, nil
}
