package rate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/worker/domain"
)

const (
	DefaultBaseURL     = "http://www.xe.com/currencyconverter/convert/"
	DefaultIdleTimeout = 10 * time.Second
)

// Config holds fetcher settings
type Config struct {
	BaseURL     string
	IdleTimeout time.Duration
}

// Fetcher downloads the converter page for a currency pair
type Fetcher struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewFetcher creates a fetcher. IdleTimeout is enforced on the socket:
// every read or write pushes the deadline forward, so a slow but steady
// response is not cut off.
func NewFetcher(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	dialer := &net.Dialer{Timeout: cfg.IdleTimeout}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &idleConn{Conn: conn, timeout: cfg.IdleTimeout}, nil
		},
		// one request per connection, like a fresh socket per fetch
		DisableKeepAlives: true,
	}

	return &Fetcher{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Transport: transport},
		logger:  logger,
	}
}

// URL returns the request URL for a pair
func (f *Fetcher) URL(from, to string) string {
	q := url.Values{}
	q.Set("Amount", "1")
	q.Set("From", from)
	q.Set("To", to)
	return f.baseURL + "?" + q.Encode()
}

// Fetch validates the pair and returns the whole response body as text.
// The response status is not checked; a page without the rate template
// fails later in Extract.
func (f *Fetcher) Fetch(ctx context.Context, from, to string) (string, error) {
	if err := domain.ValidatePair(from, to); err != nil {
		return "", err
	}

	target := f.URL(from, to)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", domain.ErrFetchNetwork, err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", classifyFetchError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyFetchError(err)
	}

	f.logger.Debug("Rate page fetched",
		slog.String("from", from),
		slog.String("to", to),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return string(body), nil
}

func classifyFetchError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrFetchTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrFetchNetwork, err)
}

// idleConn refreshes the connection deadline before each read and write
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *idleConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}
