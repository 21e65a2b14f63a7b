// Package session holds the client's single source of truth for who is
// signed in.
//
// A Store is created once per process with New, restored from the
// persistence adapter with Bootstrap, driven by Login, Register, Logout,
// UpdateProfile and Revalidate, and released with Close. Consumers read
// Snapshot or Subscribe to changes; they never mutate state directly.
//
// Status and identity always change together: no snapshot ever shows
// StatusAuthenticated without an identity, or an identity without
// StatusAuthenticated. Operations never panic on remote or storage failures;
// they return a *Error whose message is also recorded as LastError.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brightroot/academy/internal/client/client"
	"github.com/brightroot/academy/internal/client/storage"
	"github.com/brightroot/academy/internal/logging"
)

// DefaultRequestTimeout bounds every call to the auth backend.
const DefaultRequestTimeout = 10 * time.Second

// Registration is the input of Register.
type Registration struct {
	Username string
	Email    string
	Password string
}

type listener struct {
	id int
	fn func(Snapshot)
}

type Store struct {
	remote            client.Client
	storage           storage.Storage
	logger            logging.Logger
	now               func() time.Time
	timeout           time.Duration
	verifyOnBootstrap bool

	mu           sync.Mutex
	state        Snapshot
	bootstrapped bool
	pending      bool
	listeners    []listener
	nextListener int

	// notifyMu keeps listener notifications in transition order.
	notifyMu sync.Mutex

	// writeMu serializes storage writes with the state change they belong
	// to. Backend calls never run under it.
	writeMu sync.Mutex
}

type Option func(*Store)

func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRequestTimeout bounds each backend call. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithBootstrapVerification controls whether Bootstrap checks the persisted
// token against the backend before trusting it.
func WithBootstrapVerification(enabled bool) Option {
	return func(s *Store) { s.verifyOnBootstrap = enabled }
}

// New creates a Store in StatusBootstrapping. Call Bootstrap before use.
func New(remote client.Client, st storage.Storage, opts ...Option) *Store {
	s := &Store{
		remote:            remote,
		storage:           st,
		logger:            logging.Nop(),
		now:               time.Now,
		timeout:           DefaultRequestTimeout,
		verifyOnBootstrap: true,
		state:             Snapshot{Status: StatusBootstrapping, Loading: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session")
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs synchronously on the goroutine that made the change and must not
// call state-changing Store methods.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Bootstrap restores the persisted session. Only the first call does any
// work; later calls return the current snapshot. Whatever happens while
// restoring, the store leaves StatusBootstrapping and clears Loading.
func (s *Store) Bootstrap(ctx context.Context) (snap Snapshot) {
	s.mu.Lock()
	if s.bootstrapped {
		snap = s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	s.bootstrapped = true
	s.mu.Unlock()

	var identity *Identity
	defer func() {
		snap = s.update(func(st *Snapshot) {
			st.Loading = false
			if st.Status != StatusBootstrapping {
				return
			}
			if identity != nil {
				st.Status = StatusAuthenticated
				st.Identity = identity.clone()
			} else {
				st.Status = StatusUnauthenticated
				st.Identity = nil
			}
		})
		s.logger.Info(ctx, "session bootstrapped", "status", snap.Status.String())
	}()

	identity = s.restore(ctx)
	return snap
}

// Login authenticates with email and password, persists the tokens and the
// identity, and moves the store to StatusAuthenticated. On failure the
// identity is left as it was and LastError holds the returned message.
func (s *Store) Login(ctx context.Context, email, password string) (*Identity, error) {
	if !s.begin(ctx) {
		return nil, ErrBusy
	}
	defer s.finish()

	return s.login(ctx, email, password)
}

// Register creates an account and, on success, logs in with the same
// credentials.
func (s *Store) Register(ctx context.Context, reg Registration) (*Identity, error) {
	if !s.begin(ctx) {
		return nil, ErrBusy
	}
	defer s.finish()

	callCtx, cancel := s.withTimeout(ctx)
	err := s.remote.Signup(callCtx, client.SignupRequest{
		Username: reg.Username,
		Email:    reg.Email,
		Password: reg.Password,
	})
	cancel()
	if err != nil {
		e := classifyRegisterError(err)
		s.logger.Warn(ctx, "registration failed", "kind", e.Kind.String(), "error", err)
		s.fail(e)
		return nil, e
	}

	s.logger.Info(ctx, "account created", "username", reg.Username)
	return s.login(ctx, reg.Email, reg.Password)
}

// Logout forgets the session locally and in storage. It never fails; a
// storage error is logged and the store is logged out regardless.
func (s *Store) Logout(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.purge(ctx)
	s.update(func(st *Snapshot) {
		st.Status = StatusUnauthenticated
		st.Identity = nil
		st.LastError = ""
	})
	s.logger.Info(ctx, "logged out")
}

// UpdateProfile merges upd into the current identity and persists the
// result. Tokens and status are untouched. Without a signed-in user it
// returns ErrNotAuthenticated and changes nothing.
func (s *Store) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*Identity, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	current := s.state.Identity.clone()
	s.mu.Unlock()

	if current == nil {
		s.logger.Warn(ctx, "profile update without a signed-in user")
		return nil, ErrNotAuthenticated
	}

	upd.applyTo(current)

	if err := s.saveIdentity(ctx, current); err != nil {
		s.logger.Error(ctx, "failed to persist profile", "error", err)
		return nil, &Error{Kind: KindUnclassified, Message: MsgSaveFailed, Err: err}
	}

	applied := false
	s.update(func(st *Snapshot) {
		if st.Status != StatusAuthenticated {
			return
		}
		st.Identity = current.clone()
		applied = true
	})
	if !applied {
		return nil, ErrNotAuthenticated
	}
	return current.clone(), nil
}

// Revalidate checks the stored token of a running session against the
// backend, refreshing it when possible. A rejected token logs the user out
// and returns a KindSessionExpired error. An unreachable backend leaves the
// session as it is. If the session is replaced while the check runs, the
// result is dropped.
func (s *Store) Revalidate(ctx context.Context) error {
	snap := s.Snapshot()
	if !snap.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	id := snap.Identity.ID

	p, err := s.load(ctx)
	switch {
	case errors.Is(err, errNoSession), errors.Is(err, errCorrupted):
		s.logger.Warn(ctx, "persisted session vanished", "kind", KindCorruptedLocalState.String(), "error", err)
		return s.expireIfCurrent(ctx, id, "", err)
	case err != nil:
		s.logger.Error(ctx, "failed to read persisted session", "error", err)
		return &Error{Kind: KindUnclassified, Message: MsgReadFailed, Err: err}
	}
	if p.identity.ID != id {
		s.logger.Debug(ctx, "session replaced before revalidation")
		return nil
	}

	user, err := s.validate(ctx, p)
	if err != nil {
		return s.expireIfCurrent(ctx, id, p.access, err)
	}
	if user == nil {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	var current *Identity
	if s.state.Status == StatusAuthenticated && s.state.Identity != nil && s.state.Identity.ID == id {
		current = s.state.Identity.clone()
	}
	s.mu.Unlock()

	if current == nil {
		s.logger.Debug(ctx, "session replaced during revalidation")
		return nil
	}
	if !mergeBackendFields(current, user) {
		return nil
	}

	if err := s.saveIdentity(ctx, current); err != nil {
		s.logger.Error(ctx, "failed to persist reconciled identity", "error", err)
	}
	s.update(func(st *Snapshot) {
		if st.Status == StatusAuthenticated && st.Identity != nil && st.Identity.ID == id {
			st.Identity = current.clone()
		}
	})
	return nil
}

// Close releases the backend client and the storage.
func (s *Store) Close() error {
	return errors.Join(s.remote.Close(), s.storage.Close())
}

func (s *Store) restore(ctx context.Context) *Identity {
	p, err := s.load(ctx)
	switch {
	case errors.Is(err, errNoSession):
		s.logger.Debug(ctx, "no persisted session")
		return nil
	case errors.Is(err, errCorrupted):
		s.logger.Warn(ctx, "discarding persisted session", "kind", KindCorruptedLocalState.String(), "error", err)
		s.purgeIfStored(ctx, "")
		return nil
	case err != nil:
		s.logger.Error(ctx, "failed to read persisted session", "error", err)
		return nil
	}

	if !s.verifyOnBootstrap {
		return p.identity
	}

	user, err := s.validate(ctx, p)
	if err != nil {
		s.purgeIfStored(ctx, p.access)
		return nil
	}

	identity := p.identity.clone()
	if user != nil && mergeBackendFields(identity, user) {
		s.writeMu.Lock()
		if s.storedToken(ctx) == p.access {
			if err := s.saveIdentity(ctx, identity); err != nil {
				s.logger.Error(ctx, "failed to persist reconciled identity", "error", err)
			}
		}
		s.writeMu.Unlock()
	}
	return identity
}

// validate checks p against the backend. It returns the backend's view of
// the user, nil when the backend could not be reached, or the rejection
// error when the backend refused the tokens.
func (s *Store) validate(ctx context.Context, p *persisted) (*client.User, error) {
	access := p.access
	refreshed := false

	if p.refresh != "" && tokenExpired(access, s.now()) {
		var err error
		if access, err = s.rotate(ctx, p); err != nil {
			return s.validationFailed(ctx, err)
		}
		refreshed = true
	}

	user, err := s.profile(ctx, access)
	if err != nil && isRejection(err) && p.refresh != "" && !refreshed {
		if access, err = s.rotate(ctx, p); err == nil {
			user, err = s.profile(ctx, access)
		}
	}
	if err != nil {
		return s.validationFailed(ctx, err)
	}
	if user == nil {
		user = &client.User{}
	}
	return user, nil
}

func (s *Store) validationFailed(ctx context.Context, err error) (*client.User, error) {
	if isRejection(err) {
		s.logger.Warn(ctx, "persisted token rejected", "error", err)
		return nil, err
	}
	s.logger.Warn(ctx, "could not verify session, keeping it", "error", err)
	return nil, nil
}

// rotate exchanges the refresh token for a new access token. The new tokens
// are persisted only while storage still holds the session p was loaded
// from.
func (s *Store) rotate(ctx context.Context, p *persisted) (string, error) {
	callCtx, cancel := s.withTimeout(ctx)
	tokens, err := s.remote.Refresh(callCtx, p.refresh)
	cancel()
	if err != nil {
		return "", err
	}

	if tokens.Refresh == "" {
		tokens.Refresh = p.refresh
	}

	s.writeMu.Lock()
	if s.storedToken(ctx) == p.access {
		if err := s.saveTokens(ctx, *tokens); err != nil {
			s.logger.Error(ctx, "failed to persist refreshed tokens", "error", err)
		}
	} else {
		s.logger.Debug(ctx, "session replaced, refreshed tokens not stored")
	}
	s.writeMu.Unlock()

	p.access, p.refresh = tokens.Access, tokens.Refresh
	s.logger.Debug(ctx, "access token refreshed")
	return tokens.Access, nil
}

func (s *Store) profile(ctx context.Context, access string) (*client.User, error) {
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.remote.Profile(callCtx, access)
}

// mergeBackendFields copies the backend-owned fields of user onto identity
// and reports whether anything changed.
func mergeBackendFields(identity *Identity, user *client.User) bool {
	changed := false
	if user.ID != "" && string(user.ID) != identity.ID {
		identity.ID = string(user.ID)
		changed = true
	}
	if user.Email != "" && user.Email != identity.Email {
		identity.Email = user.Email
		changed = true
	}
	if user.Username != "" && user.Username != identity.Username {
		identity.Username = user.Username
		changed = true
	}
	return changed
}

func (s *Store) login(ctx context.Context, email, password string) (*Identity, error) {
	callCtx, cancel := s.withTimeout(ctx)
	resp, err := s.remote.Login(callCtx, email, password)
	cancel()
	if err != nil {
		e := classifyLoginError(err)
		s.logger.Warn(ctx, "login failed", "kind", e.Kind.String(), "error", err)
		s.fail(e)
		return nil, e
	}

	identity := identityFromUser(resp.User, email)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.save(ctx, resp.Tokens, identity); err != nil {
		e := &Error{Kind: KindUnclassified, Message: MsgSaveFailed, Err: err}
		s.logger.Error(ctx, "failed to persist session", "error", err)
		s.fail(e)
		return nil, e
	}

	s.update(func(st *Snapshot) {
		st.Status = StatusAuthenticated
		st.Identity = identity.clone()
		st.LastError = ""
	})
	s.logger.Info(ctx, "logged in", "user_id", identity.ID)
	return identity.clone(), nil
}

// begin marks a login/register as in flight. It returns false when another
// one already is.
func (s *Store) begin(ctx context.Context) bool {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		s.logger.Warn(ctx, "sign-in already in progress")
		return false
	}
	s.pending = true
	s.mu.Unlock()

	s.update(func(st *Snapshot) {
		st.Loading = true
		st.LastError = ""
	})
	return true
}

func (s *Store) finish() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()

	s.update(func(st *Snapshot) { st.Loading = false })
}

func (s *Store) fail(e *Error) {
	s.update(func(st *Snapshot) { st.LastError = e.Message })
}

// expireIfCurrent logs out the session of user id after the backend or
// storage gave it up. A session that has been replaced in the meantime, in
// memory or by a new access token in storage, is left alone. An empty access
// skips the storage check.
func (s *Store) expireIfCurrent(ctx context.Context, id, access string, cause error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	current := s.state.Status == StatusAuthenticated && s.state.Identity != nil && s.state.Identity.ID == id
	s.mu.Unlock()
	if current && access != "" {
		current = s.storedToken(ctx) == access
	}
	if !current {
		s.logger.Debug(ctx, "session replaced, not expiring it")
		return nil
	}

	s.purge(ctx)
	e := &Error{Kind: KindSessionExpired, Message: MsgSessionExpired, Err: cause}
	s.update(func(st *Snapshot) {
		st.Status = StatusUnauthenticated
		st.Identity = nil
		st.LastError = e.Message
	})
	return e
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// update applies fn under the lock and notifies listeners with the result.
func (s *Store) update(fn func(st *Snapshot)) Snapshot {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	fn(&s.state)
	snap := s.snapshotLocked()
	listeners := make([]listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(snap)
	}
	return snap
}

func (s *Store) snapshotLocked() Snapshot {
	snap := s.state
	snap.Identity = s.state.Identity.clone()
	return snap
}
