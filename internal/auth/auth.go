// Package auth is the client for credential and session management. It
// plays the role the hosted auth provider plays in the original system:
// principal create/delete, password verification, session token
// issue/parse, and a session-change notification stream.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"campreg/internal/model"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// PrincipalStore is the slice of the repository the provider needs.
type PrincipalStore interface {
	CreatePrincipal(ctx context.Context, email, passwordHash string) (*model.Principal, error)
	GetPrincipalByEmail(ctx context.Context, email string) (*model.Principal, error)
	DeletePrincipal(ctx context.Context, id string) error
}

type Provider struct {
	store    PrincipalStore
	tokens   *TokenManager
	notifier *Notifier
	log      *zerolog.Logger
}

func NewProvider(store PrincipalStore, tokens *TokenManager, log *zerolog.Logger) *Provider {
	return &Provider{
		store:    store,
		tokens:   tokens,
		notifier: NewNotifier(),
		log:      log,
	}
}

// Notifier exposes the session-change stream for subscribers.
func (p *Provider) Notifier() *Notifier {
	return p.notifier
}

// SignUp creates a new principal with the given credentials and
// returns its id. Fails with repo.ErrEmailTaken when the email is
// already registered.
func (p *Provider) SignUp(ctx context.Context, email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	principal, err := p.store.CreatePrincipal(ctx, email, string(hash))
	if err != nil {
		return "", err
	}
	return principal.ID, nil
}

// DeletePrincipal removes a principal. Used as the compensating step
// when profile creation fails after sign-up.
func (p *Provider) DeletePrincipal(ctx context.Context, id string) error {
	return p.store.DeletePrincipal(ctx, id)
}

// SignIn authenticates the credentials and issues a session token.
// Role resolution happens afterwards via the profile lookup; sign-in
// itself knows nothing about roles.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, string, error) {
	principal, err := p.store.GetPrincipalByEmail(ctx, email)
	if err != nil {
		// Do not leak whether the email exists.
		p.log.Debug().Str("email", email).Msg("sign-in for unknown email")
		return "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(principal.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	token, err := p.tokens.Issue(principal.ID)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue session token: %w", err)
	}

	p.notifier.emit(Change{Event: EventSignedIn, PrincipalID: principal.ID})
	return principal.ID, token, nil
}

// SignOut invalidates the current session. Idempotent: signing out
// with no active session is not an error.
func (p *Provider) SignOut(ctx context.Context, principalID string) error {
	if principalID == "" {
		return nil
	}
	p.notifier.emit(Change{Event: EventSignedOut, PrincipalID: principalID})
	return nil
}

// ParseToken resolves a session token to its principal id.
func (p *Provider) ParseToken(token string) (string, error) {
	return p.tokens.Parse(token)
}
