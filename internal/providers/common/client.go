package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lovedemo/seedManage/internal/domain"
)

const (
	DefaultTimeout   = 8 * time.Second
	DefaultUserAgent = "seedmanage-search/1.0"

	maxErrorBody   = 2048
	maxPayloadSize = 4 * 1024 * 1024
)

// BaseTrackers are appended to magnets that adapters build from a bare hash.
var BaseTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.tiny-vps.com:6969/announce",
}

type ClientConfig struct {
	HTTPClient *http.Client
	UserAgent  string
	// Headers are forwarded verbatim; values come from configuration and
	// are never inspected.
	Headers http.Header
	Timeout time.Duration
}

// Client performs one bounded GET per call against a remote search API.
// It never retries.
type Client struct {
	http      *http.Client
	userAgent string
	headers   http.Header
	timeout   time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:      client,
		userAgent: userAgent,
		headers:   cfg.Headers.Clone(),
		timeout:   timeout,
	}
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// GetJSON fetches endpoint with params merged into its query string and
// decodes the body into dest. Failures map onto domain.ErrRemoteTimeout,
// *domain.RemoteStatusError and domain.ErrRemoteShape; transport errors are
// returned wrapped but otherwise untouched.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, dest any) error {
	uri, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || uri.Scheme == "" || uri.Host == "" {
		if err == nil {
			err = errors.New("missing scheme or host")
		}
		return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	query := uri.Query()
	for key, values := range params {
		query.Del(key)
		for _, value := range values {
			query.Add(key, value)
		}
	}
	uri.RawQuery = query.Encode()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return err
	}
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.classify(callCtx, uri.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.NewRemoteStatusError(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return c.classify(callCtx, uri.Host, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteShape, err)
	}
	return nil
}

func (c *Client) classify(ctx context.Context, host string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		return fmt.Errorf("%w: %s after %s", domain.ErrRemoteTimeout, host, c.timeout)
	}
	return fmt.Errorf("request %s: %w", host, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
