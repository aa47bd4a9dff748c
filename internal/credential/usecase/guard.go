package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kentsubra71/keystone/internal/credential/domain"
	"github.com/kentsubra71/keystone/internal/credential/repository"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
)

const (
	expiryBuffer   = 5 * time.Minute
	refreshTimeout = 30 * time.Second
	refreshKey     = "refresh"
)

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

type OAuthRefresher struct {
	config *oauth2.Config
}

func NewOAuthRefresher(clientID, clientSecret string) *OAuthRefresher {
	return &OAuthRefresher{config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
	}}
}

func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	// An expired token forces the source to hit the token endpoint.
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	return r.config.TokenSource(ctx, expired).Token()
}

// Guard hands out valid access tokens and serializes refreshes within the process.
// Separate processes are not coordinated.
type Guard struct {
	repo      repository.CredentialRepository
	refresher Refresher
	group     singleflight.Group
	logger    *log.Logger
	now       func() time.Time
	timeout   time.Duration
}

func NewGuard(repo repository.CredentialRepository, refresher Refresher, logger *log.Logger) *Guard {
	return &Guard{
		repo:      repo,
		refresher: refresher,
		logger:    logger.WithPrefix("Credential"),
		now:       time.Now,
		timeout:   refreshTimeout,
	}
}

// ValidAccessToken returns a token valid for at least five more minutes, refreshing it if needed.
func (g *Guard) ValidAccessToken(ctx context.Context) (*domain.AccessToken, error) {
	cred, err := g.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		return nil, domain.ErrNoCredential
	}
	if cred.ValidFor(g.now(), expiryBuffer) {
		return toAccessToken(cred), nil
	}

	// The refresh outlives a cancelled caller so other waiters still get the result.
	ch := g.group.DoChan(refreshKey, func() (interface{}, error) {
		return g.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.AccessToken), nil
	}
}

func (g *Guard) refresh(ctx context.Context) (*domain.AccessToken, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// Re-read: a flight that just finished may already have stored a fresh token.
	cred, err := g.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		return nil, domain.ErrNoCredential
	}
	if cred.ValidFor(g.now(), expiryBuffer) {
		return toAccessToken(cred), nil
	}

	g.logger.Info("refreshing access token", "owner", cred.OwnerEmail, "expiresAt", cred.ExpiresAt)
	tok, err := g.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		g.logger.Error("token refresh failed", "err", err)
		return nil, fmt.Errorf("refresh access token: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, errors.New("refresh access token: empty token in response")
	}

	cred.AccessToken = tok.AccessToken
	cred.ExpiresAt = tok.Expiry
	if cred.ExpiresAt.IsZero() {
		cred.ExpiresAt = g.now().Add(time.Hour)
	}
	// Google usually omits the refresh token on refresh; keep the one we have.
	if tok.RefreshToken != "" {
		cred.RefreshToken = tok.RefreshToken
	}
	if err := g.repo.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}

	g.logger.Info("access token refreshed", "expiresAt", cred.ExpiresAt)
	return toAccessToken(cred), nil
}

// Store seeds or replaces the stored credential.
func (g *Guard) Store(ctx context.Context, cred domain.Credential) error {
	cred.RefreshToken = strings.TrimSpace(cred.RefreshToken)
	cred.OwnerEmail = strings.ToLower(strings.TrimSpace(cred.OwnerEmail))
	if cred.RefreshToken == "" {
		return errors.New("refresh token is required")
	}
	if cred.OwnerEmail == "" {
		return errors.New("owner email is required")
	}
	cred.ID = domain.DefaultID
	if err := g.repo.Save(ctx, &cred); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	g.logger.Info("credential stored", "owner", cred.OwnerEmail)
	return nil
}

func toAccessToken(c *domain.Credential) *domain.AccessToken {
	return &domain.AccessToken{Token: c.AccessToken, OwnerEmail: c.OwnerEmail, ExpiresAt: c.ExpiresAt}
}
