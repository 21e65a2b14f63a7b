// Package cli provides the interactive Brightroot Academy command-line client.
//
// It drives a session.Store from a REPL: register, login, logout, whoami
// and profile editing. Form input is validated locally before anything is
// sent to the backend. While the REPL runs, a background watcher
// revalidates the signed-in session every SessionCheckInterval and the user
// is told when the session expires.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartSessionWatcher, and runREPL for details.
package cli
