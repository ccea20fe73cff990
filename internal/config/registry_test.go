package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pattupetti/fmclient/internal/config"
	"github.com/pattupetti/fmclient/pkg/provider/tts"
	ttsmock "github.com/pattupetti/fmclient/pkg/provider/tts/mock"
)

func TestRegistry_CreateTTS(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	reg.RegisterTTS("mock", func(_ config.ProviderEntry) (tts.Provider, error) {
		return &ttsmock.Provider{}, nil
	})

	if _, err := reg.CreateTTS(config.ProviderEntry{Name: "mock"}); err != nil {
		t.Fatalf("CreateTTS: %v", err)
	}
	_, err := reg.CreateTTS(config.ProviderEntry{Name: "nope"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_BuildTTS_PrimaryOnly(t *testing.T) {
	t.Parallel()

	primary := &ttsmock.Provider{}
	reg := config.NewRegistry()
	reg.RegisterTTS("mock", func(_ config.ProviderEntry) (tts.Provider, error) {
		return primary, nil
	})

	p, err := reg.BuildTTS(config.TTSConfig{Provider: config.ProviderEntry{Name: "mock"}})
	if err != nil {
		t.Fatalf("BuildTTS: %v", err)
	}
	if p != tts.Provider(primary) {
		t.Error("without fallbacks BuildTTS should return the primary unwrapped")
	}
}

func TestRegistry_BuildTTS_ChainFailsOver(t *testing.T) {
	t.Parallel()

	primary := &ttsmock.Provider{Err: errors.New("down")}
	secondary := &ttsmock.Provider{}
	reg := config.NewRegistry()
	reg.RegisterTTS("broken", func(_ config.ProviderEntry) (tts.Provider, error) {
		return primary, nil
	})
	reg.RegisterTTS("healthy", func(_ config.ProviderEntry) (tts.Provider, error) {
		return secondary, nil
	})

	p, err := reg.BuildTTS(config.TTSConfig{
		Provider:  config.ProviderEntry{Name: "broken"},
		Fallbacks: []config.ProviderEntry{{Name: "healthy"}},
	})
	if err != nil {
		t.Fatalf("BuildTTS: %v", err)
	}

	if _, err := p.Synthesize(context.Background(), "hello", "en"); err != nil {
		t.Fatalf("Synthesize through the chain: %v", err)
	}
	if secondary.CallCount() != 1 {
		t.Errorf("fallback calls = %d, want 1", secondary.CallCount())
	}
}

func TestRegistry_BuildTTS_UnknownFallback(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	reg.RegisterTTS("mock", func(_ config.ProviderEntry) (tts.Provider, error) {
		return &ttsmock.Provider{}, nil
	})

	_, err := reg.BuildTTS(config.TTSConfig{
		Provider:  config.ProviderEntry{Name: "mock"},
		Fallbacks: []config.ProviderEntry{{Name: "ghost"}},
	})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}
