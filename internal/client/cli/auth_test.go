package cli

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/brightroot/academy/internal/client/forms"
	"github.com/brightroot/academy/internal/client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(_ io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = orig })
}

func TestLogin_InvalidFormSkipsStore(t *testing.T) {
	stubPassword(t, "secret1")
	store := guest()
	a, out := newTestApp(store, "not-an-email\n")

	err := a.Login(context.Background())

	var verr *forms.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, store.LoginCalls)
	assert.Contains(t, out.String(), "Please enter a valid email address")
	assert.False(t, a.isLoggedIn())
}

func TestLogin_ShortPasswordSkipsStore(t *testing.T) {
	stubPassword(t, "12345")
	store := guest()
	a, out := newTestApp(store, "ada@example.com\n")

	require.Error(t, a.Login(context.Background()))
	assert.Zero(t, store.LoginCalls)
	assert.Contains(t, out.String(), "Password must be at least 6 characters")
}

func TestLogin_Success(t *testing.T) {
	stubPassword(t, "secret1")
	store := guest()
	store.LoginRet = ada
	a, out := newTestApp(store, "  ada@example.com \n")

	require.NoError(t, a.Login(context.Background()))

	assert.Equal(t, "ada@example.com", store.LastLoginEmail)
	assert.Equal(t, "secret1", store.LastLoginPassword)
	assert.Contains(t, out.String(), "Welcome, Ada Lovelace!")
	assert.True(t, a.isLoggedIn())
}

func TestLogin_StoreErrorIsShown(t *testing.T) {
	stubPassword(t, "wrongpass")
	store := guest()
	store.LoginErr = &session.Error{Kind: session.KindInvalidCredentials, Message: session.MsgInvalidCredentials}
	a, out := newTestApp(store, "ada@example.com\n")

	err := a.Login(context.Background())

	assert.Equal(t, session.KindInvalidCredentials, session.KindOf(err))
	assert.Contains(t, out.String(), session.MsgInvalidCredentials)
}

func TestLogin_PasswordReadError(t *testing.T) {
	orig := getPassword
	getPassword = func(_ io.Writer) ([]byte, error) { return nil, errors.New("no tty") }
	t.Cleanup(func() { getPassword = orig })

	store := guest()
	a, _ := newTestApp(store, "ada@example.com\n")

	require.Error(t, a.Login(context.Background()))
	assert.Zero(t, store.LoginCalls)
}

func TestRegister_Success(t *testing.T) {
	stubPassword(t, "secret1")
	store := guest()
	store.RegisterRet = ada
	a, out := newTestApp(store, "ada\nada@example.com\n")

	require.NoError(t, a.Register(context.Background()))

	assert.Equal(t, session.Registration{Username: "ada", Email: "ada@example.com", Password: "secret1"}, store.LastRegistration)
	assert.Contains(t, out.String(), "Account created")
}

func TestRegister_InvalidFormSkipsStore(t *testing.T) {
	stubPassword(t, "1")
	store := guest()
	a, out := newTestApp(store, "a b\nbad\n")

	require.Error(t, a.Register(context.Background()))

	assert.Zero(t, store.RegisterCalls)
	assert.Contains(t, out.String(), "Username must not contain spaces")
	assert.Contains(t, out.String(), "Please enter a valid email address")
	assert.Contains(t, out.String(), "Password must be at least 6 characters")
}

func TestRegister_StoreErrorIsShown(t *testing.T) {
	stubPassword(t, "secret1")
	store := guest()
	store.RegisterErr = &session.Error{Kind: session.KindValidationFailed, Message: "A user with that username already exists."}
	a, out := newTestApp(store, "ada\nada@example.com\n")

	require.Error(t, a.Register(context.Background()))
	assert.Contains(t, out.String(), "A user with that username already exists.")
}

func TestLogout(t *testing.T) {
	store := signedIn(ada)
	a, out := newTestApp(store, "")

	require.NoError(t, a.Logout(context.Background()))
	require.NoError(t, a.Logout(context.Background()))

	assert.Equal(t, 2, store.LogoutCalls)
	assert.False(t, a.isLoggedIn())
	assert.Contains(t, out.String(), "Logged out")
}

func TestWhoAmI(t *testing.T) {
	t.Run("guest", func(t *testing.T) {
		a, out := newTestApp(guest(), "")
		require.NoError(t, a.WhoAmI(context.Background()))
		assert.Contains(t, out.String(), "Not logged in")
	})

	t.Run("signed in", func(t *testing.T) {
		id := *ada
		id.Grade = "7"
		id.Subjects = []string{"math", "physics"}
		a, out := newTestApp(signedIn(&id), "")

		require.NoError(t, a.WhoAmI(context.Background()))
		assert.Contains(t, out.String(), "Username: ada")
		assert.Contains(t, out.String(), "Grade:    7")
		assert.Contains(t, out.String(), "Subjects: math, physics")
	})
}
