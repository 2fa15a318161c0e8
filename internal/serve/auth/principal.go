package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

const principalCacheTTL = 3 * time.Minute

// ErrUserInactive is returned for deactivated accounts. Their tokens stop
// working within one cache TTL of the deactivation.
var ErrUserInactive = errors.New("user is inactive")

// Principal is the authenticated identity attached to each request. It is a
// snapshot of the user row, at most principalCacheTTL stale.
type Principal struct {
	UserID   string
	Username string
	IsAdmin  bool
}

// PrincipalProvider resolves a token subject into a Principal.
type PrincipalProvider interface {
	GetPrincipal(ctx context.Context, userID string) (*Principal, error)
}

type cachedPrincipalProvider struct {
	models *data.Models
	cache  *ristretto.Cache
}

var _ PrincipalProvider = (*cachedPrincipalProvider)(nil)

// NewCachedPrincipalProvider builds a provider that memoizes user lookups for
// principalCacheTTL. A cache construction failure degrades to uncached
// lookups instead of refusing to serve.
func NewCachedPrincipalProvider(models *data.Models) PrincipalProvider {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		log.Errorf("Failed to create principal cache: %v", err)
		return &cachedPrincipalProvider{models: models}
	}

	cache.Wait()

	return &cachedPrincipalProvider{
		models: models,
		cache:  cache,
	}
}

func (p *cachedPrincipalProvider) GetPrincipal(ctx context.Context, userID string) (*Principal, error) {
	if p.cache != nil {
		if cached, found := p.cache.Get(userID); found {
			if principal, ok := cached.(*Principal); ok {
				return principal, nil
			}
			p.cache.Del(userID)
		}
	}

	user, err := p.models.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	principal := &Principal{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}

	if p.cache != nil {
		p.cache.SetWithTTL(userID, principal, 1, principalCacheTTL)
	}

	return principal, nil
}
