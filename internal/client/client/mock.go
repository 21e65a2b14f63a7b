package client

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	mockMinPasswordLength = 6
)

var _ Client = (*MockClient)(nil)

type mockUser struct {
	User
	passwordHash []byte
}

type mockClaims struct {
	TokenType string `json:"token_type"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// MockClient is an in-process stand-in for the auth backend.
type MockClient struct {
	mu      sync.Mutex
	byEmail map[string]*mockUser
	byID    map[string]*mockUser

	key           []byte
	now           func() time.Time
	accessTTL     time.Duration
	refreshTTL    time.Duration
	bcryptCost    int
	acceptUnknown bool
}

type MockOption func(*MockClient)

// WithMockClock sets the clock used for token issue and expiry checks.
func WithMockClock(now func() time.Time) MockOption {
	return func(m *MockClient) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMockTTL sets access and refresh token lifetimes.
func WithMockTTL(access, refresh time.Duration) MockOption {
	return func(m *MockClient) {
		m.accessTTL = access
		m.refreshTTL = refresh
	}
}

// WithMockBcryptCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func WithMockBcryptCost(cost int) MockOption {
	return func(m *MockClient) { m.bcryptCost = cost }
}

// WithMockStrictLogin makes Login reject emails that were never signed up.
func WithMockStrictLogin() MockOption {
	return func(m *MockClient) { m.acceptUnknown = false }
}

// NewMockClient returns a MockClient with a random signing key.
func NewMockClient(opts ...MockOption) *MockClient {
	key := make([]byte, 32)
	_, _ = rand.Read(key)

	m := &MockClient{
		byEmail:       map[string]*mockUser{},
		byID:          map[string]*mockUser{},
		key:           key,
		now:           time.Now,
		accessTTL:     15 * time.Minute,
		refreshTTL:    7 * 24 * time.Hour,
		bcryptCost:    bcrypt.DefaultCost,
		acceptUnknown: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("auth request aborted: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalizeEmail(email)
	u, ok := m.byEmail[key]
	switch {
	case ok:
		if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
			return nil, invalidCredentials()
		}
	case m.acceptUnknown:
		created, err := m.createLocked(usernameFromEmail(key), key, password)
		if err != nil {
			return nil, err
		}
		u = created
	default:
		return nil, invalidCredentials()
	}

	tokens, err := m.issueLocked(u.User)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Tokens: *tokens, User: u.User}, nil
}

func (m *MockClient) Signup(ctx context.Context, req SignupRequest) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("auth request aborted: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fields := map[string][]string{}
	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	if username == "" {
		fields["username"] = []string{"This field may not be blank."}
	} else if m.usernameTakenLocked(username) {
		fields["username"] = []string{"A user with that username already exists."}
	}
	if email == "" {
		fields["email"] = []string{"This field may not be blank."}
	} else if _, ok := m.byEmail[email]; ok {
		fields["email"] = []string{"user with this email already exists."}
	}
	if len(req.Password) < mockMinPasswordLength {
		fields["password"] = []string{fmt.Sprintf("Ensure this field has at least %d characters.", mockMinPasswordLength)}
	}
	if len(fields) > 0 {
		return &APIError{Status: http.StatusBadRequest, Fields: fields}
	}

	_, err := m.createLocked(username, email, req.Password)
	return err
}

func (m *MockClient) Profile(ctx context.Context, accessToken string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("auth request aborted: %w", err)
	}

	claims, err := m.parse(accessToken, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[claims.Subject]
	if !ok {
		return nil, &APIError{Status: http.StatusUnauthorized, Detail: "User not found"}
	}
	user := u.User
	return &user, nil
}

func (m *MockClient) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("auth request aborted: %w", err)
	}

	claims, err := m.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[claims.Subject]
	if !ok {
		return nil, &APIError{Status: http.StatusUnauthorized, Detail: "User not found"}
	}
	return m.issueLocked(u.User)
}

func (m *MockClient) Close() error { return nil }

func (m *MockClient) createLocked(username, email, password string) (*mockUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &mockUser{
		User: User{
			ID:       ID(uuid.NewString()),
			Email:    email,
			Username: username,
		},
		passwordHash: hash,
	}
	m.byEmail[email] = u
	m.byID[string(u.ID)] = u
	return u, nil
}

func (m *MockClient) usernameTakenLocked(username string) bool {
	for _, u := range m.byEmail {
		if strings.EqualFold(u.Username, username) {
			return true
		}
	}
	return false
}

func (m *MockClient) issueLocked(u User) (*Tokens, error) {
	access, err := m.sign(u, tokenTypeAccess, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(u, tokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Tokens{Access: access, Refresh: refresh}, nil
}

func (m *MockClient) sign(u User, tokenType string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := mockClaims{
		TokenType: tokenType,
		Email:     u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (m *MockClient) parse(token, tokenType string) (*mockClaims, error) {
	claims := &mockClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || claims.TokenType != tokenType {
		return nil, &APIError{
			Status: http.StatusUnauthorized,
			Detail: "Given token not valid for any token type",
		}
	}
	return claims, nil
}

func invalidCredentials() error {
	return &APIError{
		Status: http.StatusUnauthorized,
		Detail: "No active account found with the given credentials",
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func usernameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
