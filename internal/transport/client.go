// Package transport turns (path, method, body, auth flag) tuples into
// decoded typed responses or classified errors.
//
// Bodies are JSON with snake_case field names; timestamps travel as
// RFC 3339, which is the encoding/json default for time.Time.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/WildanFrananda/ProMentor-app/internal/apperrors"
	"github.com/WildanFrananda/ProMentor-app/internal/logger"
	"github.com/WildanFrananda/ProMentor-app/internal/secstore"
)

const defaultTimeout = 30 * time.Second

// Client performs HTTP requests against the configured base address.
type Client struct {
	baseURL *url.URL
	httpc   *http.Client
	store   secstore.Store
	logger  logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests, custom TLS).
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// New builds a Client for the given base address.
func New(baseURL string, store secstore.Store, log logger.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("transport: base address %q: %w", baseURL, apperrors.ErrInvalidURL)
	}

	c := &Client{
		baseURL: u,
		httpc:   &http.Client{Timeout: defaultTimeout},
		store:   store,
		logger:  log.With("component", "transport"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns a copy of the configured base address.
func (c *Client) BaseURL() url.URL { return *c.baseURL }

// Get performs a GET request. A nil out skips body decoding.
func (c *Client) Get(ctx context.Context, path string, requiresAuth bool, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, requiresAuth, out)
}

// Post performs a POST request. A nil body sends no payload.
func (c *Client) Post(ctx context.Context, path string, body any, requiresAuth bool, out any) error {
	return c.do(ctx, http.MethodPost, path, body, requiresAuth, out)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, requiresAuth bool, out any) error {
	return c.do(ctx, http.MethodPut, path, body, requiresAuth, out)
}

// PutRaw uploads raw bytes to an absolute (usually pre-signed) URL. No
// bearer header and no JSON encoding; the status is classified the same
// way as every other call.
func (c *Client) PutRaw(ctx context.Context, rawURL string, data []byte) error {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return apperrors.ErrInvalidURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), bytes.NewReader(data))
	if err != nil {
		return &apperrors.UnknownError{Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	c.logger.Debug("uploading raw bytes", "host", u.Host, "size", len(data))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &apperrors.NetworkError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("raw upload failed", "status", resp.StatusCode, "host", u.Host)
		return &apperrors.ServerError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, requiresAuth bool, out any) error {
	req, err := c.buildRequest(ctx, method, path, body, requiresAuth)
	if err != nil {
		return err
	}

	data, status, err := c.perform(req)
	if err != nil {
		return err
	}

	if out == nil {
		// Designated no-content response: an empty (or ignored) body
		// decodes successfully without touching the JSON parser.
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Error("response decoding failed", "method", method, "path", path, "status", status, "err", err)
		return &apperrors.DecodingError{Err: err}
	}
	return nil
}

func (c *Client) buildRequest(ctx context.Context, method, path string, body any, requiresAuth bool) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, apperrors.ErrInvalidURL
	}
	u := c.baseURL.ResolveReference(ref)

	var payload io.Reader
	var pretty []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &apperrors.UnknownError{Err: err}
		}
		payload = bytes.NewReader(data)
		pretty = prettyJSON(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return nil, &apperrors.UnknownError{Err: err}
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if requiresAuth {
		token, ok, err := c.store.Get(secstore.KeyAccessToken)
		if err != nil {
			return nil, fmt.Errorf("transport: reading access token: %w", err)
		}
		if !ok {
			// No token: equivalent to a 401 rejection, without the round trip.
			return nil, apperrors.Unauthorized()
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("request",
		"method", method,
		"path", u.Path,
		"auth", requiresAuth,
		"body", string(pretty),
	)
	return req, nil
}

// perform executes the request and classifies the outcome. On success the
// raw body is returned for the caller to decode.
func (c *Client) perform(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Error("network layer error", "method", req.Method, "path", req.URL.Path, "err", err)
		return nil, 0, &apperrors.NetworkError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &apperrors.NetworkError{Err: err}
	}

	c.logger.Debug("response",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"headers", resp.Header,
		"body", string(prettyJSON(data)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("request failed", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)

		var body *apperrors.ServerErrorResponse
		var decoded apperrors.ServerErrorResponse
		if err := json.Unmarshal(data, &decoded); err == nil && decoded.Error != "" {
			body = &decoded
		}
		return nil, resp.StatusCode, &apperrors.ServerError{StatusCode: resp.StatusCode, Response: body}
	}

	return data, resp.StatusCode, nil
}

// prettyJSON indents data when it is JSON and passes it through otherwise.
func prettyJSON(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	buf := &bytes.Buffer{}
	if err := json.Indent(buf, data, "", "  "); err != nil {
		return data
	}
	return buf.Bytes()
}
