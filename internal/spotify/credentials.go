package spotify

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// Refresher exchanges a refresh token for a new access token.
// *spotifyauth.Authenticator satisfies it.
type Refresher interface {
	RefreshToken(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// Credentials is the token state of one playback session. It is safe for concurrent
// use and implements oauth2.TokenSource so it can sit under an oauth2.Transport.
type Credentials struct {
	mu        sync.Mutex
	token     *oauth2.Token
	refresher Refresher
	stale     bool
	onRefresh func(*oauth2.Token)
}

// NewCredentials wraps token. onRefresh, if set, is called with every refreshed token
// so it can be persisted.
func NewCredentials(token *oauth2.Token, refresher Refresher, onRefresh func(*oauth2.Token)) *Credentials {
	return &Credentials{token: token, refresher: refresher, onRefresh: onRefresh}
}

// Token returns a usable access token, refreshing first if the current one is
// expired or was invalidated.
func (c *Credentials) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && c.token.Valid() && !c.stale {
		return c.token, nil
	}
	if err := c.refreshLocked(context.Background()); err != nil {
		return nil, err
	}
	return c.token, nil
}

// Refresh forces a token refresh.
func (c *Credentials) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

// Invalidate marks the current access token unusable. The next Token call refreshes.
func (c *Credentials) Invalidate() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
}

func (c *Credentials) refreshLocked(ctx context.Context) error {
	if c.refresher == nil || c.token == nil || c.token.RefreshToken == "" {
		return ErrUnauthorized
	}
	next, err := c.refresher.RefreshToken(ctx, c.token)
	if err != nil {
		return errors.Join(ErrUnauthorized, err)
	}
	if next.RefreshToken == "" {
		next.RefreshToken = c.token.RefreshToken
	}
	c.token = next
	c.stale = false
	if c.onRefresh != nil {
		c.onRefresh(next)
	}
	return nil
}
