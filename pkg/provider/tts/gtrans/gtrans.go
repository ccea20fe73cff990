// Package gtrans provides a TTS provider backed by the public Google
// Translate speech endpoint. It implements the tts.Provider interface.
//
// The endpoint takes the utterance as a query parameter and returns MP3
// audio. No API key is required, which makes it the default engine on
// devices that have nothing else installed. Malayalam ("ml") is requested
// through the co.in top-level domain, which serves that language more
// reliably than the global one.
package gtrans

import (
	"context"
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
	defaultLang    = "en"

	// endpointFmt is the translate_tts URL; %s is the top-level domain.
	endpointFmt = "https://translate.google.%s/translate_tts"
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithBaseURL overrides the synthesis endpoint entirely. Intended for tests;
// when set, the per-language TLD selection is skipped.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// Provider implements tts.Provider against the Google Translate speech
// endpoint. It is safe for concurrent use.
type Provider struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a ready-to-use Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// endpoint returns the synthesis URL for lang.
func (p *Provider) endpoint(lang string) string {
	if p.baseURL != "" {
		return p.baseURL
	}
	tld := "com"
	if lang == "ml" {
		tld = "co.in"
	}
	return fmt.Sprintf(endpointFmt, tld)
}

// Synthesize fetches MP3 audio for text and writes it to a temp file.
func (p *Provider) Synthesize(ctx context.Context, text, lang string) (*tts.Clip, error) {
	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return nil, tts.ErrEmptyText
	}
	if lang == "" {
		lang = defaultLang
	}

	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", lang)
	params.Set("q", cleaned)

	reqURL := p.endpoint(lang) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("gtrans: create request: %w", err)
	}
	// The endpoint rejects clients without a browser-ish user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux armv7l)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gtrans: GET translate_tts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gtrans: translate_tts returned status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "alert_*.mp3")
	if err != nil {
		return nil, fmt.Errorf("gtrans: create temp file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("gtrans: write audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("gtrans: close audio file: %w", err)
	}

	return &tts.Clip{
		Path:   f.Name(),
		Lang:   lang,
		Engine: "gtrans",
	}, nil
}
