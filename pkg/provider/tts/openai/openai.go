// Package openai provides a TTS provider backed by the OpenAI speech API.
// It implements the tts.Provider interface.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pattupetti/fmclient/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultModel = oai.SpeechModelTTS1
	defaultVoice = oai.AudioSpeechNewParamsVoiceAlloy
)

// Option is a functional option for configuring the Provider.
type Option func(*config)

type config struct {
	baseURL string
	model   oai.SpeechModel
	voice   oai.AudioSpeechNewParamsVoice
	timeout time.Duration
}

// WithBaseURL overrides the OpenAI API endpoint (for proxies or tests).
func WithBaseURL(u string) Option {
	return func(c *config) {
		c.baseURL = u
	}
}

// WithModel sets the speech model (e.g. "tts-1", "tts-1-hd").
func WithModel(model string) Option {
	return func(c *config) {
		c.model = oai.SpeechModel(model)
	}
}

// WithVoice sets the voice name (e.g. "alloy", "nova").
func WithVoice(voice string) Option {
	return func(c *config) {
		c.voice = oai.AudioSpeechNewParamsVoice(voice)
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements tts.Provider backed by the OpenAI speech endpoint.
// The model is multilingual, so the lang tag only ends up as clip metadata.
type Provider struct {
	client oai.Client
	model  oai.SpeechModel
	voice  oai.AudioSpeechNewParamsVoice
}

// New constructs a Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{
		model: defaultModel,
		voice: defaultVoice,
	}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  cfg.model,
		voice:  cfg.voice,
	}, nil
}

// Synthesize renders text to an MP3 temp file via the speech endpoint.
func (p *Provider) Synthesize(ctx context.Context, text, lang string) (*tts.Clip, error) {
	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return nil, tts.ErrEmptyText
	}

	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          p.model,
		Input:          cleaned,
		Voice:          p.voice,
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: speech request: %w", err)
	}
	defer resp.Body.Close()

	f, err := os.CreateTemp("", "alert_*.mp3")
	if err != nil {
		return nil, fmt.Errorf("openai: create temp file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("openai: write audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("openai: close audio file: %w", err)
	}

	return &tts.Clip{
		Path:   f.Name(),
		Lang:   lang,
		Engine: "openai",
		Voice:  string(p.voice),
	}, nil
}
