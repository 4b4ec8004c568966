// Package device talks to the camera's control plane: still capture and
// sensor parameter changes. Each call is a single request/response with no
// retry; callers decide what a failure means.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultHost is the address the camera takes in access-point mode.
	DefaultHost = "192.168.4.1"

	// MinQuality and MaxQuality bound the JPEG quality control value.
	// Lower is better quality on the sensor.
	MinQuality = 10
	MaxQuality = 55
)

var (
	// ErrInvalidQuality is returned for quality values outside 10..55.
	ErrInvalidQuality = errors.New("device: quality out of range")

	// ErrEmptyCapture is returned when /capture answers 2xx with no body.
	ErrEmptyCapture = errors.New("device: empty capture body")
)

// StatusError is returned when the device answers with a non-2xx status.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("device: %s returned HTTP %d", e.Path, e.Code)
}

// Client issues control-plane requests against one device.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for host. host may be a bare address
// ("192.168.4.1"), host:port, or a full base URL ("http://cam.local").
func NewClient(host string, opts ...Option) (*Client, error) {
	if host == "" {
		host = DefaultHost
	}
	raw := host
	if u, err := url.Parse(host); err != nil || u.Scheme == "" || u.Host == "" {
		raw = "http://" + host
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("device: invalid host %q: %w", host, err)
	}
	base.Path = "/"

	c := &Client{
		base: base,
		http: NewHTTPClient(5*time.Second, 10*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewHTTPClient returns a client with a connect timeout and an overall
// per-request timeout.
func NewHTTPClient(connectTimeout, requestTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		},
	}
}

// BaseURL returns the device root, e.g. "http://192.168.4.1/".
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Host returns the host[:port] part of the base URL.
func (c *Client) Host() string {
	return c.base.Host
}

// Capture fetches one JPEG from /capture.
func (c *Client) Capture(ctx context.Context) ([]byte, error) {
	resp, err := c.get(ctx, "capture", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("device: read capture: %w", err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyCapture
	}
	return body, nil
}

// SetQuality sets JPEG quality (10..55).
func (c *Client) SetQuality(ctx context.Context, quality int) error {
	if quality < MinQuality || quality > MaxQuality {
		return fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidQuality, quality, MinQuality, MaxQuality)
	}
	return c.Control(ctx, "quality", quality)
}

// SetFrameSize switches the sensor resolution.
func (c *Client) SetFrameSize(ctx context.Context, size FrameSize) error {
	return c.Control(ctx, "framesize", int(size))
}

// Control sets one sensor variable via /control?var=<name>&val=<value>.
// Success is judged only by the HTTP status.
func (c *Client) Control(ctx context.Context, name string, value int) error {
	q := url.Values{}
	q.Set("var", name)
	q.Set("val", strconv.Itoa(value))

	resp, err := c.get(ctx, "control", q)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("device: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device: GET /%s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{Path: "/" + path, Code: resp.StatusCode}
	}
	return resp, nil
}
