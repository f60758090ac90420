// Package client provides the authenticated HTTP transport for the speech service
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/soypete/volcasr/pkg/metrics"
	"github.com/soypete/volcasr/pkg/wire"
)

// DefaultBaseURL is the public endpoint of the speech service
const DefaultBaseURL = "https://openspeech.bytedance.com"

// authScheme is sent verbatim before the token, semicolon included
const authScheme = "Bearer;"

// Config configures the transport
type Config struct {
	BaseURL     string        // Optional, defaults to DefaultBaseURL
	AccessToken string        // Required
	Timeout     time.Duration // Optional per-request limit; 0 leaves only ctx deadlines
	Debug       bool          // Log every request and response body
	Logger      *log.Logger   // Optional, defaults to stderr
	Metrics     *metrics.Metrics
	HTTPClient  *http.Client // Optional base client; its transport is wrapped
}

// Client performs authenticated calls against the speech service. All fields
// are set by New and never change, so a Client is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	debug      bool
	logger     *log.Logger
	metrics    *metrics.Metrics
}

// Response is a raw service response. The body is returned verbatim.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Success reports whether the status code is 2xx
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// New creates a new transport
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, wire.Errorf(wire.KindConfiguration, "parse base url", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, wire.Errorf(wire.KindConfiguration, "parse base url",
			fmt.Errorf("base url %q must be absolute", cfg.BaseURL))
	}

	if err := validateToken(cfg.AccessToken); err != nil {
		return nil, err
	}

	if cfg.Timeout < 0 {
		return nil, wire.Errorf(wire.KindConfiguration, "validate timeout",
			fmt.Errorf("timeout cannot be negative: %s", cfg.Timeout))
	}

	// Blocking queries are held open by the service until the job finishes,
	// so there is no client-wide timeout.
	var httpClient http.Client
	if cfg.HTTPClient != nil {
		httpClient = *cfg.HTTPClient
	}
	// The oauth2 transport sets Authorization on a clone of every request,
	// after whatever headers the caller supplied.
	httpClient.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.AccessToken,
			TokenType:   authScheme,
		}),
		Base: httpClient.Transport,
	}

	return &Client{
		baseURL:    base,
		httpClient: &httpClient,
		timeout:    cfg.Timeout,
		debug:      cfg.Debug,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}, nil
}

func validateToken(token string) error {
	if token == "" {
		return wire.Errorf(wire.KindConfiguration, "validate token", errors.New("access token cannot be empty"))
	}
	if strings.TrimSpace(token) != token {
		return wire.Errorf(wire.KindConfiguration, "validate token", errors.New("access token has surrounding whitespace"))
	}
	for _, r := range token {
		if (r < 0x20 && r != '\t') || r == 0x7f {
			return wire.Errorf(wire.KindConfiguration, "validate token", errors.New("access token is not a valid header value"))
		}
	}
	return nil
}

// BaseURL returns a copy of the configured endpoint
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Metrics returns the configured collectors, or nil
func (c *Client) Metrics() *metrics.Metrics {
	return c.metrics
}

// Call issues one authenticated request. path is resolved against the base
// URL and query is merged into any query already present in path. Failures
// to reach the service are returned as transport errors; the response status
// is never inspected here.
func (c *Client) Call(ctx context.Context, method, path string, query url.Values, header http.Header, body []byte) (*Response, error) {
	op := method + " " + path

	ref, err := url.Parse(path)
	if err != nil {
		return nil, wire.Errorf(wire.KindConfiguration, op, err)
	}
	target := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		q := target.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, wire.Errorf(wire.KindConfiguration, op, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	c.Debugf("REQ: %s %s", method, target.Redacted())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observeError(method, ref.Path)
		return nil, wire.Errorf(wire.KindTransport, op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observeError(method, ref.Path)
		return nil, wire.Errorf(wire.KindTransport, op, fmt.Errorf("failed to read response: %w", err))
	}
	c.observe(method, ref.Path, resp.StatusCode, time.Since(start))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

func (c *Client) observe(method, path string, status int, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.Requests.WithLabelValues(method, path, metrics.StatusClass(status)).Inc()
	c.metrics.RequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (c *Client) observeError(method, path string) {
	if c.metrics == nil {
		return
	}
	c.metrics.TransportErrors.WithLabelValues(method, path).Inc()
}

// Close releases idle connections
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
