package session

import (
	"crypto/hmac"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrStateMismatch is returned when the callback state does not match the
// one issued for this flow.
var ErrStateMismatch = errors.New("oauth state mismatch")

// GoogleFlow prepares a Google sign-in. The user opens AuthURL in a browser
// and pastes the code from the callback page back into the CLI; the code is
// then exchanged server-side for the usual token pair.
type GoogleFlow struct {
	config *oauth2.Config
	state  string
}

// NewGoogleFlow creates a sign-in flow for the given OAuth client.
func NewGoogleFlow(clientID, redirectURL string) (*GoogleFlow, error) {
	if clientID == "" {
		return nil, fmt.Errorf("google client ID is required")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate oauth state: %w", err)
	}

	return &GoogleFlow{
		config: &oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURL,
			Scopes:      []string{"openid", "email", "profile"},
			Endpoint:    google.Endpoint,
		},
		state: base58.Encode(buf),
	}, nil
}

// AuthURL returns the URL the user should open to authorize.
func (f *GoogleFlow) AuthURL() string {
	return f.config.AuthCodeURL(f.state)
}

// State returns the state token bound to this flow.
func (f *GoogleFlow) State() string {
	return f.state
}

// VerifyState checks a callback state against the issued one.
func (f *GoogleFlow) VerifyState(state string) error {
	if !hmac.Equal([]byte(state), []byte(f.state)) {
		return ErrStateMismatch
	}
	return nil
}
