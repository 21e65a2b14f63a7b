package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/brightroot/academy/internal/client/session"
	"github.com/brightroot/academy/internal/logging"
)

// sessionStore is the part of *session.Store the CLI drives.
type sessionStore interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
	Login(ctx context.Context, email, password string) (*session.Identity, error)
	Register(ctx context.Context, reg session.Registration) (*session.Identity, error)
	Logout(ctx context.Context)
	UpdateProfile(ctx context.Context, upd session.ProfileUpdate) (*session.Identity, error)
	Revalidate(ctx context.Context) error
}

var _ sessionStore = (*session.Store)(nil)

type App struct {
	store         sessionStore
	logger        logging.Logger
	checkInterval time.Duration
	reader        *bufio.Reader

	outMu sync.Mutex
	out   io.Writer

	lastStatus session.Status
}

func NewApp(store sessionStore, logger logging.Logger, checkInterval time.Duration, in io.Reader, out io.Writer) *App {
	if logger == nil {
		logger = logging.Nop()
	}
	return &App{
		store:         store,
		logger:        logger.With("component", "cli"),
		checkInterval: checkInterval,
		reader:        bufio.NewReader(in),
		out:           out,
		lastStatus:    store.Snapshot().Status,
	}
}

// Run starts the session watcher and blocks in the REPL until the user
// exits or input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubscribe := a.store.Subscribe(a.onChange)
	defer unsubscribe()

	go a.StartSessionWatcher(ctx, a.checkInterval)

	a.say("Welcome to Brightroot Academy (type 'help' for commands)")
	if id := a.store.Snapshot().Identity; id != nil {
		a.say("Signed in as %s", displayName(id))
	}

	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.store.Snapshot().IsAuthenticated()
}

func (a *App) status() string {
	snap := a.store.Snapshot()
	switch {
	case snap.Loading:
		return "(...)"
	case snap.Identity != nil:
		return fmt.Sprintf("(%s)", snap.Identity.Username)
	default:
		return "(guest)"
	}
}

// onChange tells the user when the session ends without them asking for it.
func (a *App) onChange(snap session.Snapshot) {
	a.outMu.Lock()
	prev := a.lastStatus
	a.lastStatus = snap.Status
	a.outMu.Unlock()

	if prev == session.StatusAuthenticated && snap.Status == session.StatusUnauthenticated && snap.LastError != "" {
		a.say(snap.LastError)
	}
}

// StartSessionWatcher revalidates the signed-in session every interval until
// ctx is done. A non-positive interval disables it.
func (a *App) StartSessionWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !a.isLoggedIn() {
				continue
			}
			if err := a.store.Revalidate(ctx); err != nil {
				a.logger.Debug(ctx, "session check failed", "kind", session.KindOf(err).String(), "error", err)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) say(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()

	if len(args) == 0 {
		fmt.Fprintln(a.out, format)
		return
	}
	fmt.Fprintf(a.out, format+"\n", args...)
}

func displayName(id *session.Identity) string {
	switch {
	case id == nil:
		return ""
	case id.DisplayName != "":
		return id.DisplayName
	case id.Username != "":
		return id.Username
	default:
		return id.Email
	}
}
