package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenProvider supplies OAuth tokens per account.
type TokenProvider interface {
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)
	HasTokenForAccount(account string) bool
}

var _ TokenProvider = (*TokenStore)(nil)

// GetTokenForAccount returns a fresh token for the account, refreshing it
// when needed.
func (s *TokenStore) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	ts, err := s.TokenSource(ctx, account)
	if err != nil {
		return nil, err
	}
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token for account %s: %w", account, err)
	}
	return tok, nil
}

// HasTokenForAccount implements TokenProvider.
func (s *TokenStore) HasTokenForAccount(account string) bool {
	return s.HasToken(account)
}
