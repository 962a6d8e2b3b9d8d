package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tern-social/tern-cli/internal/api"
)

type fakeAuth struct {
	loginFn    func(username, password string) (*api.TokenPair, error)
	registerFn func(req api.RegisterRequest) (*api.User, error)
	logoutErr  error

	loginCalls    int
	registerCalls int
	logoutCalls   int
	googleCalls   int
}

func (f *fakeAuth) Login(_ context.Context, username, password string) (*api.TokenPair, error) {
	f.loginCalls++
	if f.loginFn != nil {
		return f.loginFn(username, password)
	}
	return &api.TokenPair{
		Access:  "access-token",
		Refresh: "refresh-token",
		User:    api.User{ID: 1, Username: username, Email: username + "@example.com"},
	}, nil
}

func (f *fakeAuth) Register(_ context.Context, req api.RegisterRequest) (*api.User, error) {
	f.registerCalls++
	if f.registerFn != nil {
		return f.registerFn(req)
	}
	return &api.User{ID: 1, Username: req.Username, Email: req.Email}, nil
}

func (f *fakeAuth) Logout(_ context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuth) GoogleLogin(_ context.Context, code string) (*api.TokenPair, error) {
	f.googleCalls++
	return &api.TokenPair{
		Access: "google-access",
		User:   api.User{ID: 2, Username: "googler", Email: "googler@example.com"},
	}, nil
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	return store, filepath.Join(dir, "session.json")
}

func TestRestore(t *testing.T) {
	t.Run("no persisted session resolves to anonymous", func(t *testing.T) {
		store, _ := newTestStore(t)
		assert.Equal(t, StateUnknown, store.State())

		store.Restore()
		assert.Equal(t, StateAnonymous, store.State())
	})

	t.Run("valid persisted session resolves to authenticated", func(t *testing.T) {
		store, path := newTestStore(t)
		data := `{"token":"tok","refreshToken":"ref","user":{"id":7,"username":"alice","email":"alice@example.com"}}`
		require.NoError(t, os.WriteFile(path, []byte(data), 0600))

		store.Restore()

		assert.Equal(t, StateAuthenticated, store.State())
		assert.Equal(t, "tok", store.AccessCredential())
		assert.Equal(t, "ref", store.RefreshCredential())

		identity, ok := store.Identity()
		require.True(t, ok)
		assert.Equal(t, "alice", identity.Username)
		assert.Equal(t, int64(7), identity.ID)
	})

	t.Run("malformed persisted data is purged", func(t *testing.T) {
		store, path := newTestStore(t)
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		store.Restore()

		assert.Equal(t, StateAnonymous, store.State())
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("token without identity is treated as no session", func(t *testing.T) {
		store, path := newTestStore(t)
		require.NoError(t, os.WriteFile(path, []byte(`{"token":"tok","user":{}}`), 0600))

		store.Restore()

		assert.Equal(t, StateAnonymous, store.State())
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestLogin(t *testing.T) {
	t.Run("success stores credential and identity durably", func(t *testing.T) {
		store, path := newTestStore(t)
		store.Restore()
		auth := &fakeAuth{}

		require.NoError(t, store.Login(context.Background(), auth, "alice", "hunter2"))

		assert.Equal(t, StateAuthenticated, store.State())
		identity, ok := store.Identity()
		require.True(t, ok)
		assert.Equal(t, "alice", identity.Username)
		assert.NotEmpty(t, store.AccessCredential())
		assert.Equal(t, TargetHome, store.Navigation())

		// Durable layout has the three fixed entries.
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Contains(t, raw, "token")
		assert.Contains(t, raw, "user")
		assert.Contains(t, raw, "refreshToken")
	})

	t.Run("rejected credentials leave the store anonymous", func(t *testing.T) {
		store, path := newTestStore(t)
		store.Restore()
		auth := &fakeAuth{loginFn: func(_, _ string) (*api.TokenPair, error) {
			return nil, &api.AuthenticationError{Message: "Invalid credentials"}
		}}

		err := store.Login(context.Background(), auth, "alice", "wrong")

		var ae *api.AuthenticationError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "Invalid credentials", ae.Message)
		assert.Equal(t, StateAnonymous, store.State())
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("notifies subscribers", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Restore()

		var states []State
		store.Subscribe(func(s State) { states = append(states, s) })

		require.NoError(t, store.Login(context.Background(), &fakeAuth{}, "alice", "hunter2"))
		assert.Equal(t, []State{StateAuthenticated}, states)
	})
}

func TestRegister(t *testing.T) {
	t.Run("requires accepted policies before any network call", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Restore()
		auth := &fakeAuth{}

		err := store.Register(context.Background(), auth, "alice", "alice@example.com", "hunter2", false)

		require.ErrorIs(t, err, ErrPoliciesNotAccepted)
		assert.Zero(t, auth.registerCalls)
		assert.Zero(t, auth.loginCalls)
	})

	t.Run("success logs in with the same credentials", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Restore()
		auth := &fakeAuth{}

		err := store.Register(context.Background(), auth, "alice", "alice@example.com", "hunter2", true)

		require.NoError(t, err)
		assert.Equal(t, 1, auth.registerCalls)
		assert.Equal(t, 1, auth.loginCalls)
		assert.Equal(t, StateAuthenticated, store.State())
	})

	t.Run("server rejection surfaces field messages", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Restore()
		auth := &fakeAuth{registerFn: func(_ api.RegisterRequest) (*api.User, error) {
			return nil, &api.ValidationError{
				Message: "Username already exists.",
				Fields:  map[string][]string{"username": {"Username already exists."}},
			}
		}}

		err := store.Register(context.Background(), auth, "alice", "alice@example.com", "hunter2", true)

		var ve *api.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "Username already exists.", ve.FieldMessage("username"))
		assert.Equal(t, StateAnonymous, store.State())
	})
}

func TestLogout(t *testing.T) {
	t.Run("clears state even when the server call fails", func(t *testing.T) {
		store, path := newTestStore(t)
		store.Restore()
		require.NoError(t, store.Login(context.Background(), &fakeAuth{}, "alice", "hunter2"))

		auth := &fakeAuth{logoutErr: errors.New("server unavailable")}
		store.Logout(context.Background(), auth)

		assert.Equal(t, 1, auth.logoutCalls)
		assert.Equal(t, StateAnonymous, store.State())
		assert.Empty(t, store.AccessCredential())
		assert.Equal(t, TargetLogin, store.Navigation())
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("is idempotent", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Restore()

		store.Logout(context.Background(), &fakeAuth{})
		store.Logout(context.Background(), &fakeAuth{})

		assert.Equal(t, StateAnonymous, store.State())
	})
}

func TestInvalidate(t *testing.T) {
	store, path := newTestStore(t)
	store.Restore()
	require.NoError(t, store.Login(context.Background(), &fakeAuth{}, "alice", "hunter2"))

	var states []State
	store.Subscribe(func(s State) { states = append(states, s) })

	store.Invalidate()

	assert.Equal(t, StateAnonymous, store.State())
	assert.Empty(t, store.AccessCredential())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, []State{StateAnonymous}, states)
}

func TestUpdateIdentity(t *testing.T) {
	t.Run("replaces identity without touching the credential", func(t *testing.T) {
		store, path := newTestStore(t)
		store.Restore()
		require.NoError(t, store.Login(context.Background(), &fakeAuth{}, "alice", "hunter2"))
		credBefore := store.AccessCredential()

		err := store.UpdateIdentity(Identity{ID: 1, Username: "alice2", Email: "alice2@example.com"})
		require.NoError(t, err)

		identity, _ := store.Identity()
		assert.Equal(t, "alice2", identity.Username)
		assert.Equal(t, credBefore, store.AccessCredential())

		// Survives a reload.
		reloaded, err := NewStore(filepath.Dir(path))
		require.NoError(t, err)
		reloaded.Restore()
		persisted, _ := reloaded.Identity()
		assert.Equal(t, "alice2", persisted.Username)
	})

	t.Run("fails without a session", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Restore()

		err := store.UpdateIdentity(Identity{ID: 1, Username: "ghost"})
		require.ErrorIs(t, err, ErrNoSession)
	})
}

func TestTokenExpiry(t *testing.T) {
	store, _ := newTestStore(t)
	store.Restore()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	auth := &fakeAuth{loginFn: func(username, _ string) (*api.TokenPair, error) {
		return &api.TokenPair{Access: token, User: api.User{ID: 1, Username: username, Email: "a@b.c"}}, nil
	}}
	require.NoError(t, store.Login(context.Background(), auth, "alice", "pw"))

	got, ok := store.TokenExpiry()
	require.True(t, ok)
	assert.Equal(t, exp.Unix(), got.Unix())
}
