// Package photo retrieves contact photos over HTTP for embedding in vCards.
//
// Fetcher implements core.PhotoFetcher. Every failure is reported as a
// *core.FetchError so the builder can drop the PHOTO line and keep going.
package photo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/contactcard/internal/core"
)

// DefaultTimeout bounds a single photo fetch.
const DefaultTimeout = 5 * time.Second

// DefaultMaxBytes caps a photo body (10MB).
const DefaultMaxBytes int64 = 10 << 20

// errTooLarge is wrapped when the body exceeds the configured limit.
var errTooLarge = errors.New("photo exceeds size limit")

// ErrDisabled is wrapped by Disabled fetchers.
var ErrDisabled = errors.New("photo fetching disabled")

// Observer is notified of every fetch outcome ("ok", "error", "timeout").
type Observer func(outcome string, d time.Duration)

// Fetcher downloads photos and base64-encodes them.
type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	observe  Observer
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBytes sets the largest accepted body.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithObserver registers a fetch outcome callback, used for metrics.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) { f.observe = o }
}

// NewFetcher creates a fetcher with a 5 second timeout.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{},
		timeout:  DefaultTimeout,
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs rawURL and returns the body base64-encoded (standard alphabet).
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	start := time.Now()
	encoded, err := f.fetch(ctx, rawURL)
	f.report(err, time.Since(start))
	return encoded, err
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &core.FetchError{URL: rawURL, Err: fmt.Errorf("invalid url: %w", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &core.FetchError{URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", &core.FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &core.FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		io.CopyN(io.Discard, resp.Body, 4096)
		return "", &core.FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", &core.FetchError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > f.maxBytes {
		return "", &core.FetchError{URL: rawURL, Err: errTooLarge}
	}
	if len(data) == 0 {
		return "", &core.FetchError{URL: rawURL, Err: errors.New("empty body")}
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

func (f *Fetcher) report(err error, d time.Duration) {
	if f.observe == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout"):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	f.observe(outcome, d)
}

// Disabled is a PhotoFetcher that never fetches. It logs once per URL at
// debug level and fails, so PHOTO lines are always omitted.
type Disabled struct{}

// Fetch implements core.PhotoFetcher.
func (Disabled) Fetch(_ context.Context, rawURL string) (string, error) {
	slog.Debug("photo fetch skipped", "url", rawURL)
	return "", &core.FetchError{URL: rawURL, Err: ErrDisabled}
}
