package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/brightroot/academy/internal/client/forms"
	"github.com/brightroot/academy/internal/client/session"
	"github.com/brightroot/academy/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for username, email and password, validates them and
// creates the account. A successful registration also signs the user in.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	form := forms.RegisterForm{Username: username, Email: email, Password: string(password)}
	if err := form.Validate(); err != nil {
		a.reportInvalid(err)
		return err
	}

	id, err := a.store.Register(ctx, session.Registration{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: string(password),
	})
	if err != nil {
		a.say(err.Error())
		return err
	}

	a.say("Account created. Welcome, %s!", displayName(id))
	return nil
}

// Login prompts for credentials, validates them and signs in. A failed
// attempt prints the reason and leaves the current session as it was.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	form := forms.LoginForm{Email: email, Password: string(password)}
	if err := form.Validate(); err != nil {
		a.reportInvalid(err)
		return err
	}

	id, err := a.store.Login(ctx, strings.TrimSpace(email), string(password))
	if err != nil {
		a.say(err.Error())
		return err
	}

	a.say("Welcome, %s!", displayName(id))
	return nil
}

// Logout signs the user out. It never fails.
func (a *App) Logout(ctx context.Context) error {
	a.store.Logout(ctx)
	a.say("Logged out")
	return nil
}

// WhoAmI prints the signed-in identity.
func (a *App) WhoAmI(_ context.Context) error {
	snap := a.store.Snapshot()
	if snap.Identity == nil {
		a.say("Not logged in")
		return nil
	}

	id := snap.Identity
	a.say("Name:     %s", displayName(id))
	a.say("Username: %s", id.Username)
	a.say("Email:    %s", id.Email)
	if id.Grade != "" {
		a.say("Grade:    %s", id.Grade)
	}
	if len(id.Subjects) > 0 {
		a.say("Subjects: %s", strings.Join(id.Subjects, ", "))
	}
	return nil
}

func (a *App) reportInvalid(err error) {
	var verr *forms.ValidationError
	if !errors.As(err, &verr) {
		a.say(err.Error())
		return
	}
	for _, msg := range verr.Messages() {
		a.say(msg)
	}
}
