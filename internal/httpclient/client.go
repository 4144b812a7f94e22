// Package httpclient is the shared HTTP client for stream probes and
// playlist import. It retries transient failures with exponential backoff,
// transparently decompresses gzip, deflate and brotli bodies, and never
// logs credentials embedded in provider URLs.
//
// Probes run with RetryAttempts 0 so every health sample reflects a real
// round trip; the importer keeps retries for flaky provider endpoints.
package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// ErrMaxRetries wraps the last error once every attempt is spent.
var ErrMaxRetries = errors.New("max retries exceeded")

const (
	DefaultTimeout              = 30 * time.Second
	DefaultRetryAttempts        = 3
	DefaultRetryDelay           = 1 * time.Second
	DefaultRetryMaxDelay        = 30 * time.Second
	DefaultBackoffMultiplier    = 2.0
	DefaultAcceptEncodingHeader = "gzip, deflate, br"
	DefaultUserAgentHeader      = "marmaricatv/1.0"
)

const (
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderContentEncoding = "Content-Encoding"
	HeaderUserAgent       = "User-Agent"
	HeaderRange           = "Range"

	EncodingGzip    = "gzip"
	EncodingDeflate = "deflate"
	EncodingBrotli  = "br"
)

// Config tunes the client. Zero RetryAttempts disables retries entirely.
type Config struct {
	Timeout           time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	RetryMaxDelay     time.Duration
	BackoffMultiplier float64

	// UserAgent is sent when the request has none.
	UserAgent string

	Logger *slog.Logger

	// EnableDecompression advertises compressed encodings and unwraps
	// the response body.
	EnableDecompression bool

	// BaseClient overrides the underlying http.Client, mainly for tests.
	BaseClient *http.Client
}

// DefaultConfig returns the importer-grade defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             DefaultTimeout,
		RetryAttempts:       DefaultRetryAttempts,
		RetryDelay:          DefaultRetryDelay,
		RetryMaxDelay:       DefaultRetryMaxDelay,
		BackoffMultiplier:   DefaultBackoffMultiplier,
		UserAgent:           DefaultUserAgentHeader,
		Logger:              slog.Default(),
		EnableDecompression: true,
	}
}

// Client wraps http.Client with retries and decompression.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	base := cfg.BaseClient
	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{config: cfg, client: base, logger: cfg.Logger}
}

func NewWithDefaults() *Client {
	return New(DefaultConfig())
}

// Do runs the request, retrying transport errors and retryable status
// codes until the attempt budget is spent. Context errors end the loop
// immediately.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if req.Header.Get(HeaderUserAgent) == "" && c.config.UserAgent != "" {
		req.Header.Set(HeaderUserAgent, c.config.UserAgent)
	}
	if c.config.EnableDecompression && req.Header.Get(HeaderAcceptEncoding) == "" {
		req.Header.Set(HeaderAcceptEncoding, DefaultAcceptEncodingHeader)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			c.logger.Debug("retrying request",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("url", obfuscateURL(req.URL)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		elapsed := time.Since(start)

		if err != nil {
			c.logger.Warn("request failed",
				slog.String("method", req.Method),
				slog.String("url", obfuscateURL(req.URL)),
				slog.Duration("duration", elapsed),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = err
			if attempt >= c.config.RetryAttempts {
				return nil, fmt.Errorf("%w: %v", ErrMaxRetries, lastErr)
			}
			continue
		}

		// Retry server-side hiccups, but once the budget is spent hand
		// the real response to the caller instead of a synthetic error.
		if retryableStatus(resp.StatusCode) && attempt < c.config.RetryAttempts {
			c.logger.Warn("retryable status code",
				slog.String("method", req.Method),
				slog.String("url", obfuscateURL(req.URL)),
				slog.Int("status", resp.StatusCode),
				slog.Duration("duration", elapsed),
				slog.Int("attempt", attempt))
			resp.Body.Close()
			continue
		}

		c.logger.Debug("request completed",
			slog.String("method", req.Method),
			slog.String("url", obfuscateURL(req.URL)),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", elapsed),
			slog.Int64("content_length", resp.ContentLength))

		if c.config.EnableDecompression {
			resp.Body = c.decompressed(resp)
		}
		return resp, nil
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.config.RetryDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * c.config.BackoffMultiplier)
	}
	if delay > c.config.RetryMaxDelay {
		delay = c.config.RetryMaxDelay
	}
	return delay
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.Do(req)
}

// Head issues a HEAD request.
func (c *Client) Head(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.Do(req)
}

// GetRange issues a GET asking for at most maxBytes of body. Servers that
// ignore the Range header return the full body, so callers must bound
// their reads regardless.
func (c *Client) GetRange(ctx context.Context, url string, maxBytes int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if maxBytes > 0 {
		req.Header.Set(HeaderRange, "bytes=0-"+strconv.FormatInt(maxBytes-1, 10))
	}
	return c.Do(req)
}

// decompressed unwraps the body according to Content-Encoding. Unknown or
// broken encodings fall back to the raw body.
func (c *Client) decompressed(resp *http.Response) io.ReadCloser {
	switch strings.ToLower(resp.Header.Get(HeaderContentEncoding)) {
	case EncodingGzip:
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			c.logger.Warn("bad gzip body, returning raw", slog.Any("error", err))
			return resp.Body
		}
		return &decodedBody{reader: gz, raw: resp.Body}
	case EncodingDeflate:
		return &decodedBody{reader: flate.NewReader(resp.Body), raw: resp.Body}
	case EncodingBrotli:
		return &decodedBody{reader: brotli.NewReader(resp.Body), raw: resp.Body}
	}
	return resp.Body
}

// decodedBody closes both the decoder and the network body.
type decodedBody struct {
	reader io.Reader
	raw    io.Closer
}

func (d *decodedBody) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decodedBody) Close() error {
	if closer, ok := d.reader.(io.Closer); ok {
		closer.Close()
	}
	return d.raw.Close()
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// obfuscateURL masks credentials in userinfo and well-known query
// parameters. IPTV provider URLs routinely embed both.
func obfuscateURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	masked := *u
	if masked.User != nil {
		masked.User = url.User("***")
	}
	q := masked.Query()
	for _, param := range []string{
		"password", "passwd", "pass", "pwd",
		"token", "api_key", "apikey", "key",
		"secret", "auth", "authorization",
		"username", "user",
	} {
		if q.Has(param) {
			q.Set(param, "***")
		}
	}
	masked.RawQuery = q.Encode()
	return masked.String()
}
