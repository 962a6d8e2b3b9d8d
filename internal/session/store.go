package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tern-social/tern-cli/internal/api"
)

// Sentinel errors
var (
	// ErrNoSession is returned when an operation needs an authenticated
	// session and none exists.
	ErrNoSession = errors.New("no active session")

	// ErrPoliciesNotAccepted is returned by Register before any network I/O
	// when the legal policies have not been accepted.
	ErrPoliciesNotAccepted = errors.New("legal policies must be accepted to register")
)

// State is the authentication state of the store.
type State int

const (
	// StateUnknown is the initial state, before Restore has run.
	StateUnknown State = iota

	// StateAnonymous means no valid session exists.
	StateAnonymous

	// StateAuthenticated means a credential and identity are loaded.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Target is where the application should navigate after a session
// transition.
type Target string

const (
	// TargetHome is the authenticated landing view.
	TargetHome Target = "home"

	// TargetLogin is the login view.
	TargetLogin Target = "login"
)

// Identity is the authenticated user's id, username and email.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthAPI is the slice of the API client the store needs.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*api.TokenPair, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.User, error)
	Logout(ctx context.Context) error
	GoogleLogin(ctx context.Context, code string) (*api.TokenPair, error)
}

// persisted is the durable session layout: three entries keyed token, user
// and refreshToken, surviving restarts the way the browser client's local
// storage does.
type persisted struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	User         json.RawMessage `json:"user"`
}

// Store is the single source of truth for who is logged in, and the only
// component permitted to write the credential. It is safe for use from
// multiple goroutines.
type Store struct {
	mu sync.RWMutex

	path string

	state    State
	access   string
	refresh  string
	identity Identity

	nav  Target
	subs []func(State)
}

// NewStore creates a session store rooted at baseDir.
// If baseDir is empty, uses ~/.tern/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".tern")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("session store initialized")

	return &Store{
		path:  filepath.Join(baseDir, "session.json"),
		state: StateUnknown,
	}, nil
}

// Restore reads any persisted credential and identity. Valid data moves the
// store to StateAuthenticated; anything else, including malformed data, is
// purged and leaves the store StateAnonymous. Restore never fails.
func (s *Store) Restore() {
	s.mu.Lock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.state = StateAnonymous
		s.mu.Unlock()
		s.notify(StateAnonymous)
		return
	}

	var p persisted
	var identity Identity
	if err := json.Unmarshal(data, &p); err != nil || p.Token == "" || len(p.User) == 0 {
		s.purgeLocked()
		s.mu.Unlock()
		s.notify(StateAnonymous)
		return
	}
	if err := json.Unmarshal(p.User, &identity); err != nil || identity.Username == "" {
		s.purgeLocked()
		s.mu.Unlock()
		s.notify(StateAnonymous)
		return
	}

	s.access = p.Token
	s.refresh = p.RefreshToken
	s.identity = identity
	s.state = StateAuthenticated

	log.Debug().Str("username", identity.Username).Msg("session restored")

	s.mu.Unlock()
	s.notify(StateAuthenticated)
}

// Login exchanges credentials for a session. On success the credential and
// identity are stored in memory and durably, and navigation is pointed at
// the home view.
func (s *Store) Login(ctx context.Context, auth AuthAPI, username, password string) error {
	pair, err := auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	s.establish(pair)

	log.Info().Str("username", pair.User.Username).Msg("logged in")
	return nil
}

// LoginWithGoogle exchanges a Google authorization code for a session.
func (s *Store) LoginWithGoogle(ctx context.Context, auth AuthAPI, code string) error {
	pair, err := auth.GoogleLogin(ctx, code)
	if err != nil {
		return err
	}

	s.establish(pair)

	log.Info().Str("username", pair.User.Username).Msg("logged in via google")
	return nil
}

// Register creates an account and immediately logs in with the same
// credentials. acceptedPolicies must be true; the check runs before any
// network call is made.
func (s *Store) Register(ctx context.Context, auth AuthAPI, username, email, password string, acceptedPolicies bool) error {
	if !acceptedPolicies {
		return ErrPoliciesNotAccepted
	}

	_, err := auth.Register(ctx, api.RegisterRequest{
		Username:              username,
		Email:                 email,
		Password:              password,
		AcceptedLegalPolicies: true,
	})
	if err != nil {
		return err
	}

	return s.Login(ctx, auth, username, password)
}

// Logout notifies the server on a best-effort basis, then unconditionally
// clears the in-memory and durable session and points navigation at the
// login view. Idempotent; never fails.
func (s *Store) Logout(ctx context.Context, auth AuthAPI) {
	if auth != nil {
		if err := auth.Logout(ctx); err != nil {
			log.Debug().Err(err).Msg("server logout failed, clearing local session anyway")
		}
	}

	s.clear()
	log.Info().Msg("logged out")
}

// Invalidate clears the session in response to an unauthorized signal. It is
// registered as the HTTP transport's 401 hook.
func (s *Store) Invalidate() {
	s.clear()
	log.Debug().Msg("session invalidated by unauthorized response")
}

// UpdateIdentity replaces the identity fields after a profile edit without
// touching the credential, and persists the change.
func (s *Store) UpdateIdentity(identity Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAuthenticated {
		return ErrNoSession
	}

	s.identity = identity
	return s.persistLocked()
}

// Subscribe registers fn to run on every state change. Used by route guards
// to re-check access when a 401 lands mid-session.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// State returns the current authentication state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns the authenticated identity, if any.
func (s *Store) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.state == StateAuthenticated
}

// AccessCredential implements api.CredentialSource. Empty when anonymous.
func (s *Store) AccessCredential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// RefreshCredential returns the refresh credential, if the server issued
// one.
func (s *Store) RefreshCredential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// Navigation returns the view the application should move to after the last
// session transition.
func (s *Store) Navigation() Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nav
}

// establish installs a token pair as the active session.
func (s *Store) establish(pair *api.TokenPair) {
	s.mu.Lock()

	s.access = pair.Access
	s.refresh = pair.Refresh
	s.identity = Identity{
		ID:       pair.User.ID,
		Username: pair.User.Username,
		Email:    pair.User.Email,
	}
	s.state = StateAuthenticated
	s.nav = TargetHome

	if err := s.persistLocked(); err != nil {
		log.Error().Err(err).Msg("failed to persist session")
	}

	s.mu.Unlock()
	s.notify(StateAuthenticated)
}

// clear wipes memory and durable storage. Safe to call in any state.
func (s *Store) clear() {
	s.mu.Lock()

	prev := s.state
	s.purgeLocked()
	s.nav = TargetLogin

	s.mu.Unlock()

	if prev != StateAnonymous {
		s.notify(StateAnonymous)
	}
}

// purgeLocked zeroes in-memory state and removes the session file. Callers
// hold the write lock.
func (s *Store) purgeLocked() {
	s.access = ""
	s.refresh = ""
	s.identity = Identity{}
	s.state = StateAnonymous

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		log.Error().Err(err).Msg("failed to remove session file")
	}
}

// persistLocked writes the session file atomically. Callers hold the write
// lock.
func (s *Store) persistLocked() error {
	user, err := json.Marshal(s.identity)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	data, err := json.MarshalIndent(persisted{
		Token:        s.access,
		RefreshToken: s.refresh,
		User:         user,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// notify runs subscribers outside the lock.
func (s *Store) notify(state State) {
	s.mu.RLock()
	subs := make([]func(State), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(state)
	}
}
