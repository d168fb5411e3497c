// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"strings"

	"petmatch/internal/domain"

	"go.uber.org/zap"
)

var (
	// ErrInvalidCredentials indicates that the provided email or password was incorrect.
	ErrInvalidCredentials = domain.ErrInvalidCredentials
	// ErrCredentialsRequired indicates that email or password was left blank.
	ErrCredentialsRequired = domain.ErrCredentialsRequired
	// ErrIncompleteGrant indicates the backend accepted the credentials but
	// did not say who the principal is.
	ErrIncompleteGrant = errors.New("authentication grant lacks token, role or user id")
)

// AuthService signs principals in and out. It talks to the authentication
// backend and hands the result to the SessionStore; it never stores anything
// itself.
type AuthService struct {
	auth     domain.Authenticator
	sessions *SessionStore
	log      *zap.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(auth domain.Authenticator, sessions *SessionStore, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		auth:     auth,
		sessions: sessions,
		log:      log,
	}
}

// SignIn exchanges credentials for a grant and starts a session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (domain.Grant, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.Grant{}, ErrCredentialsRequired
	}

	grant, err := s.auth.Authenticate(ctx, domain.Credentials{Email: email, Password: password})
	if err != nil {
		return domain.Grant{}, err
	}
	if err := s.Accept(ctx, grant); err != nil {
		return domain.Grant{}, err
	}
	return grant, nil
}

// Accept starts a session from a grant obtained elsewhere, e.g. single sign-on.
func (s *AuthService) Accept(ctx context.Context, grant domain.Grant) error {
	if grant.Token == "" || !grant.Role.Valid() || !grant.HasUserID {
		return ErrIncompleteGrant
	}
	if err := s.sessions.Login(ctx, grant.Token, grant.Role, grant.UserID); err != nil {
		return err
	}
	s.log.Info("signed in", zap.Stringer("role", grant.Role), zap.Int64("user_id", grant.UserID))
	return nil
}

// SignOut ends the current session, if any.
func (s *AuthService) SignOut(ctx context.Context) {
	s.sessions.Logout(ctx)
	s.log.Info("signed out")
}
