package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// AppLister reads authoritative application state.
type AppLister interface {
	ListInstalled(ctx context.Context) ([]App, error)
	ListCatalog(ctx context.Context) ([]App, error)
}

// AppWriter issues fire-and-forget lifecycle requests. A nil error only means
// the request was accepted.
type AppWriter interface {
	Install(ctx context.Context, id string) error
	Uninstall(ctx context.Context, id string) error
	Update(ctx context.Context, id string) error
}

// API is the full management API surface.
type API interface {
	AppLister
	AppWriter
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the management HTTP API.
type Client struct {
	baseURL *url.URL
	http    *resty.Client
}

const (
	defaultAPIURL    = "http://127.0.0.1:3006"
	defaultUserAgent = "appdeck/0.1"
	requestTimeout   = 10 * time.Second
	appsPath         = "/v1/apps"
)

// Option customises a Client.
type Option func(*Client)

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		if t := strings.TrimSpace(token); t != "" {
			c.http.SetAuthToken(t)
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithLogger routes the transport's own diagnostics through logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.http.SetLogger(logger.Named("http").Sugar())
		}
	}
}

// NewClient builds a Client rooted at apiURL. The URL may carry a path prefix.
func NewClient(apiURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	rc := resty.New().
		SetBaseURL(base.String()).
		SetTimeout(requestTimeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", defaultUserAgent)

	c := &Client{baseURL: base, http: rc}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListInstalled retrieves the applications installed on the host.
func (c *Client) ListInstalled(ctx context.Context) ([]App, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var apps []App
	if err := c.get(ctx, appsPath, url.Values{"installed": {"1"}}, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// ListCatalog retrieves every application the service offers, including
// update availability.
func (c *Client) ListCatalog(ctx context.Context) ([]App, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var apps []App
	if err := c.get(ctx, appsPath, nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// Install asks the service to install the application.
func (c *Client) Install(ctx context.Context, id string) error {
	return c.action(ctx, id, "install")
}

// Uninstall asks the service to remove the application.
func (c *Client) Uninstall(ctx context.Context, id string) error {
	return c.action(ctx, id, "uninstall")
}

// Update asks the service to update the application.
func (c *Client) Update(ctx context.Context, id string) error {
	return c.action(ctx, id, "update")
}

func (c *Client) action(ctx context.Context, id, verb string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("app id required")
	}
	path := appsPath + "/" + url.PathEscape(id) + "/" + verb
	_, err := c.do(ctx, http.MethodPost, path, nil)
	return err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	body, err := c.do(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return &TransportError{Method: http.MethodGet, Path: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("execute request: %w", err)}
	}
	if resp.IsError() || resp.StatusCode() >= 300 {
		return nil, &TransportError{Method: method, Path: path, StatusCode: resp.StatusCode()}
	}
	return resp.Body(), nil
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", apiURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
