package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/credentials"
	"github.com/macchain/backend/pkg/logger"
	"github.com/macchain/backend/pkg/output"
)

type AuthService struct {
	s *Session
}

func NewAuthService(s *Session) *AuthService {
	return &AuthService{s: s}
}

// Login prompts for whatever is missing and stores the session
func (a *AuthService) Login(ctx context.Context, email string) error {
	if a.s.Creds.IsValid() && a.s.Creds.Username != "" {
		output.PrintWarning("already logged in as %s", a.s.Creds.Username)
		ok, err := a.s.Prompt.Confirm("Continue with a new login?")
		if err != nil || !ok {
			return err
		}
	}

	var err error
	if email == "" {
		if email, err = a.s.Prompt.Required("Email: "); err != nil {
			return err
		}
	}
	password, err := a.s.Prompt.Password("Password: ")
	if err != nil {
		return err
	}

	resp, err := a.s.API.Login(ctx, strings.ToLower(email), password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return a.saveSession(resp, "Login successful")
}

// Register creates an account and signs in
func (a *AuthService) Register(ctx context.Context) error {
	p := a.s.Prompt
	email, err := p.Required("Email: ")
	if err != nil {
		return err
	}
	username, err := p.Required("Username: ")
	if err != nil {
		return err
	}
	displayName, err := p.String("Display name (optional): ")
	if err != nil {
		return err
	}
	password, err := p.Password("Password (min 8 characters): ")
	if err != nil {
		return err
	}
	confirm, err := p.Password("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	resp, err := a.s.API.Register(ctx, api.RegisterRequest{
		Email:       strings.ToLower(email),
		Username:    username,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return a.saveSession(resp, "Account created")
}

func (a *AuthService) saveSession(resp *api.AuthResponse, msg string) error {
	creds := &credentials.Credentials{
		AccessToken: resp.Token,
		ExpiresAt:   resp.ExpiresAt,
		UserID:      resp.User.ID,
		Username:    resp.User.Username,
		Email:       resp.User.Email,
		IsAdmin:     resp.User.IsAdmin,
	}
	if err := credentials.Save(creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	a.s.Creds = creds
	a.s.API.SetToken(resp.Token)
	logger.Info("Signed in", "user_id", resp.User.ID)

	output.PrintSuccess("✓ %s", msg)
	role := ""
	if resp.User.IsAdmin {
		role = " (admin)"
	}
	output.PrintInfo("Signed in as %s%s", resp.User.Username, role)
	return nil
}

// Logout removes the stored session
func (a *AuthService) Logout() error {
	if a.s.Creds == nil {
		output.PrintWarning("not logged in")
		return nil
	}
	if err := credentials.Delete(); err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	a.s.Creds = nil
	a.s.API.SetToken("")
	output.PrintSuccess("✓ Logged out")
	return nil
}

// WhoAmI prints the signed-in user
func (a *AuthService) WhoAmI(ctx context.Context) error {
	if err := a.s.RequireAuth(); err != nil {
		return err
	}
	user, err := a.s.API.Me(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			return ErrNotLoggedIn
		}
		return err
	}
	return output.Print("Current user", user)
}

// RequestReset asks the server to mail a reset link
func (a *AuthService) RequestReset(ctx context.Context, email string) error {
	var err error
	if email == "" {
		if email, err = a.s.Prompt.Required("Email: "); err != nil {
			return err
		}
	}
	if err := a.s.API.RequestPasswordReset(ctx, strings.ToLower(email)); err != nil {
		return err
	}
	output.PrintInfo("If an account exists for %s, a reset link is on its way.", email)
	return nil
}

// ConfirmReset sets a new password with a mailed token
func (a *AuthService) ConfirmReset(ctx context.Context, token string) error {
	var err error
	if token == "" {
		if token, err = a.s.Prompt.Required("Reset token: "); err != nil {
			return err
		}
	}
	password, err := a.s.Prompt.Password("New password: ")
	if err != nil {
		return err
	}
	if err := a.s.API.ConfirmPasswordReset(ctx, token, password); err != nil {
		return err
	}
	output.PrintSuccess("✓ Password updated. Log in with the new password.")
	return nil
}

// UpdateProfile changes display name or bio
func (a *AuthService) UpdateProfile(ctx context.Context, update api.ProfileUpdate) error {
	if err := a.s.RequireAuth(); err != nil {
		return err
	}
	if update.DisplayName == nil && update.Bio == nil {
		return errors.New("nothing to update; pass --display-name or --bio")
	}
	user, err := a.s.API.UpdateProfile(ctx, update)
	if err != nil {
		return err
	}
	return output.Print("Profile updated", user)
}
