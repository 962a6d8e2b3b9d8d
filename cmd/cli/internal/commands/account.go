package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/tern-social/tern-cli/internal/api"
	"github.com/tern-social/tern-cli/internal/session"
)

type ProfileCmd struct {
	Username string `help:"New username"`
	Email    string `help:"New email address"`
}

func (p *ProfileCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	identity, err := app.guard.Require()
	if err != nil {
		fmt.Println(loginHint())
		return nil
	}

	if p.Username == "" && p.Email == "" {
		fmt.Printf("username: %s\n", identity.Username)
		fmt.Printf("email:    %s\n", identity.Email)
		return nil
	}

	user, err := app.client.UpdateAccount(ctx, p.Username, p.Email)
	if err != nil {
		var ve *api.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("profile update failed: %s", formatValidation(ve))
		}
		return renderCallError(err)
	}

	// Only the identity fields change; the credential is untouched.
	err = app.store.UpdateIdentity(session.Identity{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Profile updated: %s <%s>\n", user.Username, user.Email)
	return nil
}

type PasswordCmd struct {
	Old string `help:"Current password (prompted when omitted)"`
	New string `help:"New password (prompted when omitted)"`
}

func (p *PasswordCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if _, err := app.guard.Require(); err != nil {
		fmt.Println(loginHint())
		return nil
	}

	oldPassword := p.Old
	if oldPassword == "" {
		oldPassword, err = promptPassword("Current password: ")
		if err != nil {
			return err
		}
	}
	newPassword := p.New
	if newPassword == "" {
		newPassword, err = promptPassword("New password: ")
		if err != nil {
			return err
		}
	}

	if err := app.client.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		var ve *api.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("password change failed: %s", formatValidation(ve))
		}
		return renderCallError(err)
	}

	fmt.Println("Password changed")
	return nil
}
