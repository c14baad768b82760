// Package gate classifies callers into roles and owns the sign-up /
// sign-in / sign-out flows. Role never comes from the token itself: it
// is re-resolved from the profile table on every session change, and a
// missing profile always degrades to Registrant, never Administrator.
package gate

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"campreg/internal/auth"
	"campreg/internal/model"
	"campreg/internal/repo"
)

type Role int

const (
	RoleAnonymous Role = iota
	RoleRegistrant
	RoleAdministrator
)

func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return "administrator"
	case RoleRegistrant:
		return "registrant"
	default:
		return "anonymous"
	}
}

// ErrInconsistentAccount reports a sign-up where the principal was
// created, the profile write failed, and the compensating principal
// deletion failed too. The account needs manual cleanup.
var ErrInconsistentAccount = errors.New("account left in inconsistent state")

// Provider is the auth operations surface the gate drives.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (string, error)
	DeletePrincipal(ctx context.Context, id string) error
	SignIn(ctx context.Context, email, password string) (string, string, error)
	SignOut(ctx context.Context, principalID string) error
}

// ProfileStore is the slice of the repository used for role lookups.
type ProfileStore interface {
	CreateProfile(ctx context.Context, p *model.Profile) error
	GetProfile(ctx context.Context, principalID string) (*model.Profile, error)
}

// Subscriber is the session-change stream the gate listens on.
type Subscriber interface {
	Subscribe(handler func(auth.Change)) func()
}

type Gate struct {
	provider Provider
	profiles ProfileStore
	log      *zerolog.Logger

	mu          sync.Mutex
	generation  uint64
	principalID string
	role        Role

	unsubscribe func()
}

// New builds a gate and takes out its single session-change
// subscription. Close tears the subscription down.
func New(provider Provider, profiles ProfileStore, notifier Subscriber, log *zerolog.Logger) *Gate {
	g := &Gate{
		provider: provider,
		profiles: profiles,
		log:      log,
	}
	g.unsubscribe = notifier.Subscribe(g.onSessionChange)
	return g
}

func (g *Gate) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
}

// onSessionChange applies the latest-observed session state. Each
// change bumps the generation; role lookups carry the generation they
// were issued for, so a slow lookup from a superseded session can
// never overwrite a fresher result.
func (g *Gate) onSessionChange(change auth.Change) {
	g.mu.Lock()
	g.generation++
	gen := g.generation

	if change.Event == auth.EventSignedOut {
		g.principalID = ""
		g.role = RoleAnonymous
		g.mu.Unlock()
		return
	}

	g.principalID = change.PrincipalID
	g.role = RoleRegistrant // provisional until the lookup lands
	g.mu.Unlock()

	go func() {
		role, err := g.ResolveRole(context.Background(), change.PrincipalID)
		if err != nil {
			g.log.Error().Err(err).Str("principal_id", change.PrincipalID).Msg("role lookup failed")
			return
		}

		g.mu.Lock()
		if g.generation == gen {
			g.role = role
		}
		g.mu.Unlock()
	}()
}

// CurrentRole reports the role of the gate's session snapshot.
func (g *Gate) CurrentRole() Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.role
}

// ResolveRole classifies a principal by its profile row. A missing
// profile is a Registrant, the fail-safe default. Empty principal id
// means no session.
func (g *Gate) ResolveRole(ctx context.Context, principalID string) (Role, error) {
	if principalID == "" {
		return RoleAnonymous, nil
	}

	profile, err := g.profiles.GetProfile(ctx, principalID)
	if err != nil {
		if errors.Is(err, repo.ErrProfileNotFound) {
			return RoleRegistrant, nil
		}
		return RoleAnonymous, err
	}

	if profile.IsAdmin {
		return RoleAdministrator, nil
	}
	return RoleRegistrant, nil
}

// SignUp creates a principal and its administrator profile as one
// logical unit. Every self-service sign-up creates an administrator;
// registrants use the public form without an account. On profile-write
// failure the principal is deleted again; if that also fails the
// caller gets ErrInconsistentAccount.
func (g *Gate) SignUp(ctx context.Context, email, password, fullName string) error {
	principalID, err := g.provider.SignUp(ctx, email, password)
	if err != nil {
		return err
	}

	profile := &model.Profile{
		ID:       principalID,
		Email:    email,
		FullName: fullName,
		IsAdmin:  true,
	}
	if err := g.profiles.CreateProfile(ctx, profile); err != nil {
		if delErr := g.provider.DeletePrincipal(ctx, principalID); delErr != nil {
			g.log.Error().Err(delErr).Str("principal_id", principalID).
				Msg("compensating principal deletion failed")
			return ErrInconsistentAccount
		}
		return err
	}

	g.log.Info().Str("principal_id", principalID).Msg("administrator signed up")
	return nil
}

// SignIn authenticates and returns a session token. The role is not
// part of the result; callers resolve it afterwards.
func (g *Gate) SignIn(ctx context.Context, email, password string) (string, error) {
	_, token, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		return "", err
	}
	return token, nil
}

// SignOut ends the current session. Calling it with no active session
// is not an error and leaves the role Anonymous.
func (g *Gate) SignOut(ctx context.Context) error {
	g.mu.Lock()
	principalID := g.principalID
	g.mu.Unlock()

	return g.provider.SignOut(ctx, principalID)
}
