package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/term"

	"github.com/tern-social/tern-cli/internal/api"
	"github.com/tern-social/tern-cli/internal/session"
)

type LoginCmd struct {
	Username string `arg:"" optional:"" help:"Username to log in as"`
	Password string `help:"Password (prompted when omitted)" env:"TERN_PASSWORD"`
	Google   bool   `help:"Sign in with Google instead of a password"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if l.Google {
		return l.runGoogle(ctx, app)
	}

	if l.Username == "" {
		return fmt.Errorf("username is required (or use --google)")
	}

	password := l.Password
	if password == "" {
		password, err = promptPassword("Password: ")
		if err != nil {
			return err
		}
	}

	if err := app.store.Login(ctx, app.client, l.Username, password); err != nil {
		var ae *api.AuthenticationError
		if errors.As(err, &ae) {
			return fmt.Errorf("login failed: %s", ae.Message)
		}
		return err
	}

	identity, _ := app.store.Identity()
	fmt.Printf("Logged in as %s\n", identity.Username)
	return nil
}

func (l *LoginCmd) runGoogle(ctx context.Context, app *app) error {
	flow, err := session.NewGoogleFlow(app.cfg.GoogleClientID, app.cfg.GoogleRedirectURL)
	if err != nil {
		return fmt.Errorf("google sign-in is not configured: %w", err)
	}

	fmt.Println("Open this URL in your browser and authorize:")
	fmt.Println()
	fmt.Printf("  %s\n", flow.AuthURL())
	fmt.Println()

	code, err := promptLine("Paste the authorization code: ")
	if err != nil {
		return err
	}

	if err := app.store.LoginWithGoogle(ctx, app.client, code); err != nil {
		var ae *api.AuthenticationError
		if errors.As(err, &ae) {
			return fmt.Errorf("google sign-in failed: %s", ae.Message)
		}
		return err
	}

	identity, _ := app.store.Identity()
	fmt.Printf("Logged in as %s\n", identity.Username)
	return nil
}

type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	app.store.Logout(ctx, app.client)
	fmt.Println("Logged out")
	return nil
}

type RegisterCmd struct {
	Username            string `arg:"" help:"Username for the new account"`
	Email               string `help:"Email address" required:""`
	Password            string `help:"Password (prompted when omitted)" env:"TERN_PASSWORD"`
	AcceptLegalPolicies bool   `help:"Accept the terms of service and privacy policy"`
}

func (r *RegisterCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	password := r.Password
	if password == "" {
		password, err = promptPassword("Password: ")
		if err != nil {
			return err
		}
	}

	err = app.store.Register(ctx, app.client, r.Username, r.Email, password, r.AcceptLegalPolicies)
	if err != nil {
		if errors.Is(err, session.ErrPoliciesNotAccepted) {
			return fmt.Errorf("registration requires --accept-legal-policies")
		}
		var ve *api.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("registration failed: %s", formatValidation(ve))
		}
		return err
	}

	identity, _ := app.store.Identity()
	fmt.Printf("Account created, logged in as %s\n", identity.Username)
	return nil
}

type WhoamiCmd struct{}

func (w *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	identity, err := app.guard.Require()
	if err != nil {
		fmt.Println(loginHint())
		return nil
	}

	fmt.Printf("id:       %d\n", identity.ID)
	fmt.Printf("username: %s\n", identity.Username)
	fmt.Printf("email:    %s\n", identity.Email)
	if exp, ok := app.store.TokenExpiry(); ok {
		fmt.Printf("token:    expires %s\n", exp.Format(time.RFC3339))
	}
	return nil
}

type VerifyEmailCmd struct {
	Resend  bool          `help:"Request a fresh verification email first"`
	Timeout time.Duration `help:"How long to wait for verification" default:"2m"`
}

func (v *VerifyEmailCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if _, err := app.guard.Require(); err != nil {
		fmt.Println(loginHint())
		return nil
	}

	if v.Resend {
		if err := app.client.ResendVerification(ctx); err != nil {
			return fmt.Errorf("failed to resend verification email: %w", err)
		}
		fmt.Println("Verification email sent")
	}

	fmt.Println("Waiting for email verification...")

	// The only time-bounded call in the client: poll until verified or the
	// wall-clock limit is reached.
	operation := func() (bool, error) {
		verified, err := app.client.VerificationStatus(ctx)
		if err != nil {
			if errors.Is(err, api.ErrSessionExpired) {
				return false, backoff.Permanent(err)
			}
			return false, err
		}
		if !verified {
			return false, errors.New("not verified yet")
		}
		return true, nil
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(v.Timeout),
	)
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			fmt.Println(loginHint())
			return nil
		}
		return fmt.Errorf("verification timed out after %s; check your inbox and try again", v.Timeout)
	}

	fmt.Println("Email verified")
	return nil
}

func formatValidation(ve *api.ValidationError) string {
	if len(ve.Fields) == 0 {
		return ve.Message
	}

	var parts []string
	for _, field := range []string{"username", "email", "password"} {
		if msg := ve.FieldMessage(field); msg != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
		}
	}
	if len(parts) == 0 {
		return ve.Message
	}
	return strings.Join(parts, "; ")
}

func promptPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}

func promptLine(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
