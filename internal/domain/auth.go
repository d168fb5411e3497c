// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownRole indicates a role tag outside the closed set of account kinds.
var ErrUnknownRole = errors.New("unknown role")

// Role is the kind of account a principal signed in with.
type Role int

const (
	// RoleNone means no role is known for the session.
	RoleNone Role = iota
	// RoleUser is an ordinary adopter account.
	RoleUser
	// RoleShelter is a shelter or protector organization.
	RoleShelter
	// RoleAdmin is a marketplace administrator.
	RoleAdmin
)

// Wire tags used by the backend and by durable storage.
const (
	tagUser    = "usuario"
	tagShelter = "ong_protetor"
	tagAdmin   = "admin"
)

// ParseRole maps a wire tag to a Role. An empty tag yields RoleNone.
func ParseRole(tag string) (Role, error) {
	switch tag {
	case "":
		return RoleNone, nil
	case tagUser:
		return RoleUser, nil
	case tagShelter:
		return RoleShelter, nil
	case tagAdmin:
		return RoleAdmin, nil
	}
	return RoleNone, fmt.Errorf("%w: %q", ErrUnknownRole, tag)
}

// String returns the wire tag, or "" for RoleNone.
func (r Role) String() string {
	switch r {
	case RoleNone:
		return ""
	case RoleUser:
		return tagUser
	case RoleShelter:
		return tagShelter
	case RoleAdmin:
		return tagAdmin
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleShelter, RoleAdmin:
		return true
	case RoleNone:
		return false
	}
	return false
}

// Session is the signed-in principal as known to this client.
type Session struct {
	Token     string
	Role      Role
	UserID    int64
	HasUserID bool
}

// IsAuthenticated reports whether a token is present.
func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// State is a read-only view of the session plus the boot flag.
type State struct {
	Session
	Loading bool
}

// Credentials are what a visitor types into the login form.
type Credentials struct {
	Email    string
	Password string
}

// Grant is what the authentication backend hands back on success.
type Grant struct {
	Token     string
	Role      Role
	UserID    int64
	HasUserID bool
	Message   string
}

// KeyValueStore defines the port for durable client-side storage.
// Get reports ok=false for a missing key. Delete of a missing key is not an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Authenticator defines the port for exchanging credentials for a Grant.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (Grant, error)
}

// ExpiryFunc reports when a token stops being valid, if that can be known.
type ExpiryFunc func(token string) (time.Time, bool)

var (
	// ErrInvalidCredentials indicates that the provided email or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrCredentialsRequired indicates an empty email or password.
	ErrCredentialsRequired = errors.New("email and password are required")
)
