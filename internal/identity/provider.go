// Package identity delegates account management and credential checks to
// the external identity provider. Raw credentials pass through to the
// provider and are never stored by this service.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrUserExists is the distinguishable duplicate-signup condition.
	ErrUserExists = errors.New("identity: user already exists")
	// ErrUserNotFound is returned for an unknown email.
	ErrUserNotFound = errors.New("identity: user not found")
	// ErrInvalidCredentials covers a failed password check. Callers
	// surface it generically so email and password failures are
	// indistinguishable to a client.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)

// Account is the provider's view of a user.
type Account struct {
	ID          string
	Email       string
	DisplayName string
}

// Provider is the external identity collaborator.
type Provider interface {
	CreateUser(ctx context.Context, email, password, displayName string) (Account, error)
	GetUserByEmail(ctx context.Context, email string) (Account, error)
	CheckPassword(ctx context.Context, email, password string) error
	SetPassword(ctx context.Context, email, oldPassword, newPassword string) error
}
