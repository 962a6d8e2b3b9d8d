// Package guard gates authenticated views on the session store's state.
package guard

import (
	"errors"

	"github.com/tern-social/tern-cli/internal/session"
)

// ErrLoginRequired is returned when the session has resolved to anonymous.
// The command layer renders it as an instruction to log in.
var ErrLoginRequired = errors.New("login required")

// SessionSource is the slice of the session store the guard needs.
type SessionSource interface {
	State() session.State
	Restore()
	Identity() (session.Identity, bool)
	Subscribe(fn func(session.State))
}

// Guard withholds protected content until the session state is resolved,
// and re-checks whenever the state changes.
type Guard struct {
	sessions SessionSource
}

// New creates a guard over the given session source.
func New(sessions SessionSource) *Guard {
	return &Guard{sessions: sessions}
}

// Require resolves the session and returns the authenticated identity.
// While the state is unknown it triggers a restore; anonymous sessions get
// ErrLoginRequired. Each call consults live state, so an unauthorized signal
// mid-run fails the next Require immediately.
func (g *Guard) Require() (session.Identity, error) {
	if g.sessions.State() == session.StateUnknown {
		g.sessions.Restore()
	}

	identity, ok := g.sessions.Identity()
	if !ok {
		return session.Identity{}, ErrLoginRequired
	}
	return identity, nil
}

// Watch invokes fn whenever the session leaves the authenticated state, so
// long-lived views can unmount as soon as a 401 lands.
func (g *Guard) Watch(fn func()) {
	g.sessions.Subscribe(func(state session.State) {
		if state != session.StateAuthenticated {
			fn()
		}
	})
}
