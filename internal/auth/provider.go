package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Provider registers users, checks credentials and resolves bearer tokens.
type Provider struct {
	store  storage.Store
	tokens *TokenIssuer
	users  *cache.LRUCache[core.User]
	now    func() time.Time
}

// NewProvider wires a provider. users may be nil to disable caching.
func NewProvider(store storage.Store, tokens *TokenIssuer, users *cache.LRUCache[core.User]) *Provider {
	return &Provider{store: store, tokens: tokens, users: users, now: time.Now}
}

// Register creates an account. The email must parse and be unused.
func (p *Provider) Register(ctx context.Context, email, password, fullName string) (core.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return core.User{}, core.ErrInvalidEmail
	}
	if password == "" {
		return core.User{}, core.ErrEmptyPassword
	}
	hash, err := HashPassword(password)
	if err != nil {
		return core.User{}, err
	}
	now := p.now().UTC().Truncate(time.Millisecond)
	u := core.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(addr.Address),
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = p.store.Update(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetUserByEmail(ctx, u.Email); err == nil {
			return core.ErrEmailTaken
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return tx.CreateUser(ctx, u)
	})
	if errors.Is(err, storage.ErrConflict) {
		return core.User{}, core.ErrEmailTaken
	}
	if err != nil {
		return core.User{}, err
	}
	return u, nil
}

// Verify resolves credentials to a user id. Unknown email and wrong password
// are indistinguishable.
func (p *Provider) Verify(ctx context.Context, email, password string) (string, error) {
	var u core.User
	err := p.store.View(ctx, func(tx storage.Tx) error {
		var err error
		u, err = tx.GetUserByEmail(ctx, strings.TrimSpace(email))
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return "", core.ErrUnauthenticated
	}
	if err != nil {
		return "", err
	}
	if !CheckPassword(password, u.PasswordHash) {
		return "", core.ErrUnauthenticated
	}
	return u.ID, nil
}

// IssueToken returns an access token for userID.
func (p *Provider) IssueToken(userID string) (string, time.Time, error) {
	return p.tokens.Issue(userID)
}

// VerifyToken returns the id of the still-existing user named by token.
func (p *Provider) VerifyToken(ctx context.Context, token string) (string, error) {
	userID, err := p.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	if _, err := p.User(ctx, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", fmt.Errorf("%w: unknown subject", core.ErrUnauthenticated)
		}
		return "", err
	}
	return userID, nil
}

// User returns the profile for id, served from cache when possible.
func (p *Provider) User(ctx context.Context, id string) (core.User, error) {
	if p.users != nil {
		if u, ok := p.users.Get(id); ok {
			return u, nil
		}
	}
	var u core.User
	err := p.store.View(ctx, func(tx storage.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, id)
		return err
	})
	if err != nil {
		return core.User{}, err
	}
	if p.users != nil {
		p.users.Set(id, u)
	}
	return u, nil
}
