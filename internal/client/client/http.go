package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/brightroot/academy/internal/common"
	"github.com/brightroot/academy/internal/httpclient"
)

const (
	LoginPath   = "/login"
	SignupPath  = "/signup"
	ProfilePath = "/profile"
	RefreshPath = "/token/refresh"

	maxBodySize = 1 << 20
)

// Doer sends HTTP requests. *httpclient.Client and
// *httpclient.CircuitBreakerClient satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

var _ Client = (*HTTPClient)(nil)

// HTTPClient implements Client over HTTP/JSON.
type HTTPClient struct {
	baseURL string
	doer    Doer
}

// NewHTTPClient returns a client rooted at baseURL, e.g.
// "http://localhost:8000/api/auth".
func NewHTTPClient(baseURL string, doer Doer) *HTTPClient {
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), doer: doer}
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	req := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, LoginPath, "", req, &resp); err != nil {
		return nil, err
	}
	if resp.Access == "" {
		return nil, errors.New("login response has no access token")
	}
	return &resp, nil
}

func (c *HTTPClient) Signup(ctx context.Context, req SignupRequest) error {
	return c.do(ctx, http.MethodPost, SignupPath, "", req, nil)
}

func (c *HTTPClient) Profile(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, ProfilePath, accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	req := struct {
		Refresh string `json:"refresh"`
	}{Refresh: refreshToken}

	var tokens Tokens
	if err := c.do(ctx, http.MethodPost, RefreshPath, "", req, &tokens); err != nil {
		return nil, err
	}
	if tokens.Access == "" {
		return nil, errors.New("refresh response has no access token")
	}
	return &tokens, nil
}

// Close releases idle connections of the underlying transport, if any.
func (c *HTTPClient) Close() error {
	if closer, ok := c.doer.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Accept", common.JSONContentType)
	if in != nil {
		req.Header.Set("Content-Type", common.JSONContentType)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return c.mapError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return c.mapError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ParseAPIError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// mapError turns a transport failure into one of the package sentinels.
func (c *HTTPClient) mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("auth request aborted: %w", ctxErr)
	}

	if errors.Is(err, httpclient.ErrCircuitOpen) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var serverErr *httpclient.ServerError
	if errors.As(err, &serverErr) {
		return ParseAPIError(serverErr.Status, []byte(serverErr.Body))
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
