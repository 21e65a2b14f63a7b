package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brightroot/academy/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	transport := httpclient.New(httpclient.Config{Timeout: 2 * time.Second})
	return NewHTTPClient(srv.URL+"/api/auth/", transport)
}

func TestHTTPClient_Login_Success(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"email": "a@x.com", "password": "secret1"}, body)

		_, _ = w.Write([]byte(`{"access":"acc","refresh":"ref","user":{"id":1,"email":"a@x.com","username":"a"}}`))
	})

	resp, err := c.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "acc", resp.Access)
	assert.Equal(t, "ref", resp.Refresh)
	assert.Equal(t, User{ID: "1", Email: "a@x.com", Username: "a"}, resp.User)
}

func TestHTTPClient_Login_Unauthorized(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
	})

	_, err := c.Login(context.Background(), "a@x.com", "wrongpass")
	require.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "No active account found with the given credentials", apiErr.Detail)
}

func TestHTTPClient_Login_MissingAccessToken(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":1}}`))
	})

	_, err := c.Login(context.Background(), "a@x.com", "secret1")
	require.EqualError(t, err, "login response has no access token")
}

func TestHTTPClient_Signup_FieldErrors(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/signup", r.URL.Path)
		var body SignupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, SignupRequest{Username: "bob", Email: "bob@x.com", Password: "secret1"}, body)

		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"username":["A user with that username already exists."]}`))
	})

	err := c.Signup(context.Background(), SignupRequest{Username: "bob", Email: "bob@x.com", Password: "secret1"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "A user with that username already exists.", apiErr.FieldError("username"))
}

func TestHTTPClient_Signup_CreatedWithBody(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"user":{"id":3},"message":"User registered successfully."}`))
	})

	require.NoError(t, c.Signup(context.Background(), SignupRequest{Username: "bob", Email: "bob@x.com", Password: "secret1"}))
}

func TestHTTPClient_Profile_SendsBearer(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/auth/profile", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"u1","email":"a@x.com","username":"a","first_name":"Ann"}`))
	})

	u, err := c.Profile(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.FirstName)

	_, err = c.Profile(context.Background(), "bad")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestHTTPClient_Refresh(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/token/refresh", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref", body["refresh"])
		_, _ = w.Write([]byte(`{"access":"new"}`))
	})

	tokens, err := c.Refresh(context.Background(), "ref")
	require.NoError(t, err)
	assert.Equal(t, &Tokens{Access: "new"}, tokens)
}

func TestHTTPClient_ServerDown_IsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, httpclient.New(httpclient.Config{Timeout: time.Second}))
	_, err := c.Login(context.Background(), "a@x.com", "secret1")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_ContextDeadline(t *testing.T) {
	block := make(chan struct{})
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.Login(ctx, "a@x.com", "secret1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPClient_ServerErrorThroughBreaker(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"database is down"}`))
	})
	cb := httpclient.NewCircuitBreakerClient(c.doer.(*httpclient.Client), httpclient.DefaultCircuitBreakerConfig("auth"), nil)
	c = NewHTTPClient(c.baseURL, cb)

	_, err := c.Login(context.Background(), "a@x.com", "secret1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "database is down", apiErr.Detail)
	require.NoError(t, c.Close())
}

func TestHTTPClient_OpenBreakerIsUnavailable(t *testing.T) {
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	cfg := httpclient.CircuitBreakerConfig{Name: "auth", MaxRequests: 1, Timeout: time.Minute, FailureRatio: 1, MinRequests: 1}
	cb := httpclient.NewCircuitBreakerClient(c.doer.(*httpclient.Client), cfg, nil)
	c = NewHTTPClient(c.baseURL, cb)

	_, err := c.Login(context.Background(), "a@x.com", "secret1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))

	_, err = c.Login(context.Background(), "a@x.com", "secret1")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, httpclient.ErrCircuitOpen)
}
