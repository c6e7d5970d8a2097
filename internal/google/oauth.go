package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	tasks "google.golang.org/api/tasks/v1"
)

// DefaultAccount is the account name used when none is given.
const DefaultAccount = "default"

// Scopes are the OAuth scopes the agent needs: reading and labelling mail,
// and writing tasks.
var Scopes = []string{
	gmail.GmailModifyScope,
	gmail.GmailLabelsScope,
	tasks.TasksScope,
}

// ErrNoToken is returned when no token is stored for an account.
var ErrNoToken = errors.New("no Google OAuth token found")

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateAccountName checks that an account name is safe to use in a file name.
func ValidateAccountName(account string) error {
	if account == "" {
		return errors.New("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", account)
	}
	return nil
}

// ClientCredentials identify the OAuth client registered in Google Cloud.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// CredentialsFromEnv reads GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and
// GOOGLE_REDIRECT_URL.
func CredentialsFromEnv() ClientCredentials {
	return ClientCredentials{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
	}
}

// TokenStore keeps one OAuth token file per account in a directory.
type TokenStore struct {
	dir  string
	conf *oauth2.Config
}

// NewTokenStore creates a token store. An empty dir selects
// <user cache dir>/todoagent.
func NewTokenStore(dir string, creds ClientCredentials) (*TokenStore, error) {
	if dir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cache directory: %w", err)
		}
		dir = filepath.Join(cache, "todoagent")
	}
	redirect := creds.RedirectURL
	if redirect == "" {
		redirect = "urn:ietf:wg:oauth:2.0:oob"
	}
	return &TokenStore{
		dir: dir,
		conf: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirect,
			Scopes:       Scopes,
		},
	}, nil
}

// Dir returns the token directory.
func (s *TokenStore) Dir() string {
	return s.dir
}

// TokenFilePath returns the token file for an account.
func (s *TokenStore) TokenFilePath(account string) string {
	return filepath.Join(s.dir, fmt.Sprintf("google-%s.token", account))
}

// HasToken reports whether a token file exists for the account.
func (s *TokenStore) HasToken(account string) bool {
	if ValidateAccountName(account) != nil {
		return false
	}
	_, err := os.Stat(s.TokenFilePath(account))
	return err == nil
}

// AuthURL returns the consent URL the user opens to authorize the agent.
func (s *TokenStore) AuthURL() string {
	return s.conf.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func (s *TokenStore) Exchange(ctx context.Context, account, code string) error {
	if err := ValidateAccountName(account); err != nil {
		return err
	}
	if s.conf.ClientID == "" {
		return errors.New("GOOGLE_CLIENT_ID is not set")
	}
	tok, err := s.conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return s.Save(account, tok)
}

// Save writes a token for the account.
func (s *TokenStore) Save(account string, tok *oauth2.Token) error {
	if err := ValidateAccountName(account); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(s.TokenFilePath(account), data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Load reads the stored token for the account.
func (s *TokenStore) Load(account string) (*oauth2.Token, error) {
	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.TokenFilePath(account))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w for account %s", ErrNoToken, account)
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file for account %s: %w", account, err)
	}
	return &tok, nil
}

// TokenSource returns a refreshing token source for the account.
func (s *TokenStore) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	tok, err := s.Load(account)
	if err != nil {
		return nil, err
	}
	return s.conf.TokenSource(ctx, tok), nil
}

// HTTPClient returns an authenticated HTTP client for the account. The
// transport is pinned to HTTP/1.1.
func (s *TokenStore) HTTPClient(ctx context.Context, account string) (*http.Client, error) {
	ts, err := s.TokenSource(ctx, account)
	if err != nil {
		return nil, err
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ForceAttemptHTTP2 = false
	return &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: base},
	}, nil
}

// AuthenticationErrorMessage explains how to authorize an account.
func AuthenticationErrorMessage(account string) string {
	return fmt.Sprintf("Google OAuth token missing for account %q. Run 'todoagent auth --account %s' to authorize Gmail and Google Tasks access.", account, account)
}
