// Package lookup fetches stage options from the lookup backend
// (GET /get-<child>s/<parent values...> and its query-string variants).
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/cropform/internal/chain"
)

// Params selects how upstream values reach the backend.
type Params string

const (
	ParamsPath  Params = "path"
	ParamsQuery Params = "query"
	ParamsNone  Params = "none"
)

const maxBodyBytes = 4 << 20

// Endpoint describes one lookup route.
type Endpoint struct {
	// Path is the route prefix, e.g. "/get-districts".
	Path string
	// Field names the list member of an object body, e.g. "districts".
	Field string
	// Params defaults to ParamsPath.
	Params Params
	// QueryKeys name the query parameters for ParamsQuery, in upstream order.
	QueryKeys []string
}

// Client talks to the lookup backend. It imposes no timeout of its own;
// callers bound requests through the context if they want to.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zap.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("lookup: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("lookup: base url %q must be http or https", baseURL)
	}
	c := &Client{base: u, http: &http.Client{}, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Fetcher binds ep to a chain.Fetcher.
func (c *Client) Fetcher(ep Endpoint) chain.Fetcher {
	return chain.FetcherFunc(func(ctx context.Context, upstream []string) ([]chain.Option, error) {
		return c.Fetch(ctx, ep, upstream)
	})
}

// Fetch requests ep with the given upstream values. Transport failures are
// returned as *chain.NetworkError, everything the backend rejects as
// *chain.BackendError.
func (c *Client) Fetch(ctx context.Context, ep Endpoint, upstream []string) ([]chain.Option, error) {
	target, err := c.resolve(ep, upstream)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("lookup: build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	log := c.log.With(zap.String("url", target), zap.String("request_id", reqID))
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("lookup request failed", zap.Error(err))
		return nil, &chain.NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warn("lookup body read failed", zap.Error(err))
		return nil, &chain.NetworkError{URL: target, Err: err}
	}
	log.Debug("lookup response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(body)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &chain.BackendError{Status: resp.StatusCode, Message: msg}
	}
	opts, err := decodeOptions(body, ep.Field)
	if err != nil {
		var be *chain.BackendError
		if errors.As(err, &be) {
			return nil, be
		}
		return nil, &chain.BackendError{Status: resp.StatusCode, Message: err.Error()}
	}
	return opts, nil
}

func (c *Client) resolve(ep Endpoint, upstream []string) (string, error) {
	route := strings.Trim(strings.TrimSpace(ep.Path), "/")
	if route == "" {
		return "", fmt.Errorf("lookup: endpoint path is required")
	}
	u := *c.base
	raw := strings.TrimRight(c.base.EscapedPath(), "/") + "/" + route

	mode := ep.Params
	if mode == "" {
		mode = ParamsPath
	}
	switch mode {
	case ParamsPath:
		for _, v := range upstream {
			raw += "/" + url.PathEscape(v)
		}
	case ParamsQuery:
		if len(ep.QueryKeys) < len(upstream) {
			return "", fmt.Errorf("lookup: %s: %d query keys for %d upstream values", route, len(ep.QueryKeys), len(upstream))
		}
		q := u.Query()
		for i, v := range upstream {
			q.Set(ep.QueryKeys[i], v)
		}
		u.RawQuery = q.Encode()
	case ParamsNone:
	default:
		return "", fmt.Errorf("lookup: unknown params mode %q", mode)
	}

	path, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("lookup: build path: %w", err)
	}
	u.Path = path
	u.RawPath = raw
	return u.String(), nil
}
