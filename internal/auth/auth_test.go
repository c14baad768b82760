package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"campreg/internal/model"
	"campreg/internal/repo"
)

type fakePrincipals struct {
	byEmail map[string]*model.Principal
	deleted []string
}

func (f *fakePrincipals) CreatePrincipal(ctx context.Context, email, passwordHash string) (*model.Principal, error) {
	if _, ok := f.byEmail[email]; ok {
		return nil, repo.ErrEmailTaken
	}
	if f.byEmail == nil {
		f.byEmail = make(map[string]*model.Principal)
	}
	p := &model.Principal{ID: "p-" + email, Email: email, PasswordHash: passwordHash}
	f.byEmail[email] = p
	return p, nil
}

func (f *fakePrincipals) GetPrincipalByEmail(ctx context.Context, email string) (*model.Principal, error) {
	p, ok := f.byEmail[email]
	if !ok {
		return nil, repo.ErrPrincipalNotFound
	}
	return p, nil
}

func (f *fakePrincipals) DeletePrincipal(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestProvider(store *fakePrincipals) *Provider {
	log := zerolog.Nop()
	return NewProvider(store, NewTokenManager("test-secret", time.Hour), &log)
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.Issue("principal-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	got, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got != "principal-1" {
		t.Errorf("Parse returned %q, want principal-1", got)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour).Issue("principal-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := NewTokenManager("secret-b", time.Hour).Parse(token); err == nil {
		t.Error("token signed with a different secret must be rejected")
	}
}

func TestTokenExpiryRejected(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)
	token, err := m.Issue("principal-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Parse(token); err == nil {
		t.Error("expired token must be rejected")
	}
}

func TestSignInVerifiesPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	store := &fakePrincipals{byEmail: map[string]*model.Principal{
		"a@camp.test": {ID: "p1", Email: "a@camp.test", PasswordHash: string(hash)},
	}}
	p := newTestProvider(store)
	ctx := context.Background()

	id, token, err := p.SignIn(ctx, "a@camp.test", "correct-horse")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if id != "p1" || token == "" {
		t.Errorf("SignIn = (%q, %q)", id, token)
	}

	if _, _, err := p.SignIn(ctx, "a@camp.test", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := p.SignIn(ctx, "nobody@camp.test", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v, want ErrInvalidCredentials", err)
	}
}

func TestSignInEmitsSessionChange(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw12345678"), bcrypt.MinCost)
	store := &fakePrincipals{byEmail: map[string]*model.Principal{
		"a@camp.test": {ID: "p1", Email: "a@camp.test", PasswordHash: string(hash)},
	}}
	p := newTestProvider(store)

	var changes []Change
	unsubscribe := p.Notifier().Subscribe(func(c Change) { changes = append(changes, c) })
	defer unsubscribe()

	ctx := context.Background()
	if _, _, err := p.SignIn(ctx, "a@camp.test", "pw12345678"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if err := p.SignOut(ctx, "p1"); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	// No session: must be a silent no-op.
	if err := p.SignOut(ctx, ""); err != nil {
		t.Fatalf("empty sign-out failed: %v", err)
	}

	want := []Change{
		{Event: EventSignedIn, PrincipalID: "p1"},
		{Event: EventSignedOut, PrincipalID: "p1"},
	}
	if len(changes) != len(want) {
		t.Fatalf("got %d changes, want %d: %+v", len(changes), len(want), changes)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d = %+v, want %+v", i, changes[i], want[i])
		}
	}
}

func TestNotifierConcurrentSubscribers(t *testing.T) {
	n := NewNotifier()

	const subscribers = 8
	var mu sync.Mutex
	counts := make([]int, subscribers)

	var unsubs []func()
	for i := 0; i < subscribers; i++ {
		i := i
		unsubs = append(unsubs, n.Subscribe(func(Change) {
			mu.Lock()
			counts[i]++
			mu.Unlock()
		}))
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.emit(Change{Event: EventSignedIn, PrincipalID: "p"})
		}()
	}
	wg.Wait()

	for i, c := range counts {
		if c != 10 {
			t.Errorf("subscriber %d saw %d events, want 10", i, c)
		}
	}

	for _, u := range unsubs {
		u()
	}
	n.emit(Change{Event: EventSignedOut})
	for i, c := range counts {
		if c != 10 {
			t.Errorf("subscriber %d received an event after unsubscribe (count %d)", i, c)
		}
	}
}
