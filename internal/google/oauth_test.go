package google

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"valid default", "default", false},
		{"valid with hyphen", "work-email", false},
		{"valid with underscore", "personal_email", false},
		{"empty", "", true},
		{"with spaces", "my account", true},
		{"with special chars", "account@work", true},
		{"with slash", "work/personal", true},
		{"with dot", "work.email", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccountName(tt.account)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTokenStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	store, err := NewTokenStore(dir, ClientCredentials{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "google-work.token"), store.TokenFilePath("work"))
	assert.False(t, store.HasToken("work"))
	assert.False(t, store.HasToken("bad name"))

	tok := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save("work", tok))
	assert.True(t, store.HasToken("work"))

	loaded, err := store.Load("work")
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)

	got, err := store.GetTokenForAccount(context.Background(), "work")
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)

	client, err := store.HTTPClient(context.Background(), "work")
	require.NoError(t, err)
	assert.NotNil(t, client.Transport)
}

func TestTokenStore_MissingToken(t *testing.T) {
	store, err := NewTokenStore(t.TempDir(), ClientCredentials{})
	require.NoError(t, err)

	_, err = store.Load(DefaultAccount)
	assert.True(t, errors.Is(err, ErrNoToken))

	_, err = store.HTTPClient(context.Background(), DefaultAccount)
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestTokenStore_ExchangeRequiresClientID(t *testing.T) {
	store, err := NewTokenStore(t.TempDir(), ClientCredentials{})
	require.NoError(t, err)
	assert.Error(t, store.Exchange(context.Background(), DefaultAccount, "code"))
}

func TestAuthURL(t *testing.T) {
	store, err := NewTokenStore(t.TempDir(), ClientCredentials{ClientID: "client-123"})
	require.NoError(t, err)

	u := store.AuthURL()
	assert.Contains(t, u, "client_id=client-123")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "tasks")
}

func TestAuthenticationErrorMessage(t *testing.T) {
	msg := AuthenticationErrorMessage("work")
	assert.Contains(t, msg, "work")
	assert.Contains(t, msg, "OAuth")
}
