// Package coqui provides a TTS provider backed by a locally-running standard
// Coqui TTS server (ghcr.io/coqui-ai/tts-cpu). It implements the
// tts.Provider interface.
//
// Synthesis is performed via GET /api/tts with URL query parameters; the
// server answers with a WAV body which is written to a temp file for the
// external player to consume.
package coqui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pattupetti/fmclient/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultTimeout = 30 * time.Second
	apiTTSEndpoint = "/api/tts"
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithSpeaker sets the speaker_id for multi-speaker models.
func WithSpeaker(id string) Option {
	return func(p *Provider) {
		p.speaker = id
	}
}

// Provider implements tts.Provider backed by a Coqui TTS server. It is safe
// for concurrent use.
type Provider struct {
	serverURL  string
	speaker    string
	httpClient *http.Client
}

// New creates a Provider targeting the Coqui server at serverURL
// (e.g. "http://localhost:5002"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Synthesize performs a single GET /api/tts call and writes the WAV response
// to a temp file.
func (p *Provider) Synthesize(ctx context.Context, text, lang string) (*tts.Clip, error) {
	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return nil, tts.ErrEmptyText
	}

	params := url.Values{}
	params.Set("text", cleaned)
	if lang != "" {
		params.Set("language_id", lang)
	}
	if p.speaker != "" {
		params.Set("speaker_id", p.speaker)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.serverURL+apiTTSEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: GET %s: %w", apiTTSEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: GET %s returned status %d", apiTTSEndpoint, resp.StatusCode)
	}

	f, err := os.CreateTemp("", "alert_*.wav")
	if err != nil {
		return nil, fmt.Errorf("coqui: create temp file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("coqui: write audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("coqui: close audio file: %w", err)
	}

	return &tts.Clip{
		Path:   f.Name(),
		Lang:   lang,
		Engine: "coqui",
		Voice:  p.speaker,
	}, nil
}
