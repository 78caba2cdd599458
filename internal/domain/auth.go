package domain

import (
	"context"
	"errors"
)

// ErrNoCredentials is returned by a CredentialStore that holds nothing.
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials is the access/refresh token pair issued by the backend.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CredentialStore is the opaque secret store holding the token pair.
// Get returns ErrNoCredentials when nothing is stored.
type CredentialStore interface {
	Get(ctx context.Context) (Credentials, error)
	Set(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
}

// User is the minimal identity returned by /me and /auth/refresh.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LastName    string `json:"lastName,omitempty"`
	Email       string `json:"email,omitempty"`
	HasPassword bool   `json:"hasPassword,omitempty"`
}

// AuthResponse is the body of a successful /auth/refresh call.
type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
