package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/siete/assetforge/pkg/cache"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/httputil"
	"github.com/siete/assetforge/pkg/observability"
)

// Client provides shared HTTP functionality for the design-tool API clients.
// It handles caching, retry logic, status mapping and common request headers.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	keyer   cache.Keyer
	prefix  string
	ttl     time.Duration
	headers map[string]string
}

// NewClient creates a Client backed by c. Cache keys are namespaced with
// prefix and stored for ttl. Headers are applied to all requests made
// through this client; pass nil if no default headers are needed.
func NewClient(c cache.Cache, prefix string, ttl time.Duration, headers map[string]string) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		http:    NewHTTPClient(),
		cache:   c,
		keyer:   cache.NewDefaultKeyer(),
		prefix:  prefix,
		ttl:     ttl,
		headers: headers,
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is bypassed and fetch is always called.
// The fetch function should populate v; on success, v is stored in the cache.
// Requests made by fetch through this client already retry, so fetch itself
// runs once.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	k := c.keyer.HTTPKey(c.prefix, key)
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, k); ok && json.Unmarshal(data, v) == nil {
			observability.Cache().OnCacheHit(ctx, "http")
			return nil
		}
		observability.Cache().OnCacheMiss(ctx, "http")
	}
	if err := fetch(); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		if c.cache.Set(ctx, k, data, c.ttl) == nil {
			observability.Cache().OnCacheSet(ctx, "http", len(data))
		}
	}
	return nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, rawURL string, v any) error {
	return c.GetWithHeaders(ctx, rawURL, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
func (c *Client) GetWithHeaders(ctx context.Context, rawURL string, headers map[string]string, v any) error {
	return c.do(ctx, http.MethodGet, rawURL, headers, nil, "", v)
}

// GetText performs an HTTP GET request and returns the response body as a string.
func (c *Client) GetText(ctx context.Context, rawURL string) (string, error) {
	body, err := c.open(ctx, http.MethodGet, rawURL, nil, nil, "")
	if err != nil {
		return "", err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	return string(data), err
}

// PostJSON sends body as JSON and decodes the JSON response into v.
func (c *Client) PostJSON(ctx context.Context, rawURL string, headers map[string]string, body, v any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, rawURL, headers, data, "application/json", v)
}

// PostForm sends form as application/x-www-form-urlencoded and decodes the
// JSON response into v.
func (c *Client) PostForm(ctx context.Context, rawURL string, headers map[string]string, form url.Values, v any) error {
	return c.do(ctx, http.MethodPost, rawURL, headers, []byte(form.Encode()), "application/x-www-form-urlencoded", v)
}

// Download fetches rawURL without default headers and returns at most limit bytes.
// Pre-signed export URLs reject extra authorization headers.
func (c *Client) Download(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	var data []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.send(ctx, req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err = httputil.ReadLimited(resp.Body, limit)
		return err
	})
	return data, err
}

func (c *Client) do(ctx context.Context, method, rawURL string, headers map[string]string, body []byte, contentType string, v any) error {
	return httputil.RetryWithBackoff(ctx, func() error {
		rc, err := c.open(ctx, method, rawURL, headers, body, contentType)
		if err != nil {
			return err
		}
		defer rc.Close()
		if v == nil {
			_, _ = io.Copy(io.Discard, rc)
			return nil
		}
		if err := json.NewDecoder(rc).Decode(v); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, redact(rawURL), err)
		}
		return nil
	})
}

func (c *Client) open(ctx context.Context, method, rawURL string, headers map[string]string, body []byte, contentType string) (io.ReadCloser, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, r)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, ErrNetwork, "%s %s: %v", req.Method, host, err)}
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.Wrap(errors.ErrCodeNotFound, ErrNotFound, "status %d", code)
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return errors.Wrap(errors.ErrCodeUnauthorized, ErrUnauthorized, "status %d: %s", code, snippet(resp.Body))
	case code == http.StatusTooManyRequests:
		retry, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &errors.RateLimitedError{RetryAfter: retry}
	case code >= 500:
		return &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, ErrNetwork, "status %d", code)}
	default:
		return errors.Wrap(errors.ErrCodeNetwork, ErrNetwork, "status %d: %s", code, snippet(resp.Body))
	}
}

// snippet returns the start of an error body for diagnostics.
func snippet(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 300))
	return strings.TrimSpace(string(data))
}

// redact strips the query string, which may carry signatures.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
