package session

import (
	"slices"

	"github.com/brightroot/academy/internal/client/client"
)

// Status is the authentication status of a session.
type Status int

const (
	StatusBootstrapping Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusBootstrapping:
		return "bootstrapping"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Identity is the public profile of the signed-in user. It is also the JSON
// document persisted under the "user" key.
type Identity struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName,omitempty"`
	Grade       string   `json:"grade,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.Subjects = slices.Clone(i.Subjects)
	return &c
}

func (i *Identity) valid() bool {
	return i != nil && i.ID != "" && i.Email != ""
}

// identityFromUser builds an identity from a backend user record. The email
// typed by the user is used when the backend omits it, and the email doubles
// as id when the backend sends none.
func identityFromUser(u client.User, email string) *Identity {
	id := &Identity{
		ID:          string(u.ID),
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.FullName(),
	}
	if id.Email == "" {
		id.Email = email
	}
	if id.ID == "" {
		id.ID = id.Email
	}
	if id.DisplayName == "" {
		id.DisplayName = id.Username
	}
	return id
}

// ProfileUpdate is a partial identity. Nil fields are left untouched; a
// non-nil empty Subjects slice clears the list. ID and Email are owned by the
// backend and cannot be changed locally.
type ProfileUpdate struct {
	Username    *string
	DisplayName *string
	Grade       *string
	Subjects    []string
}

func (u ProfileUpdate) applyTo(id *Identity) {
	if u.Username != nil {
		id.Username = *u.Username
	}
	if u.DisplayName != nil {
		id.DisplayName = *u.DisplayName
	}
	if u.Grade != nil {
		id.Grade = *u.Grade
	}
	if u.Subjects != nil {
		id.Subjects = slices.Clone(u.Subjects)
	}
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	Status    Status
	Identity  *Identity
	LastError string
	Loading   bool
}

func (s Snapshot) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated
}
