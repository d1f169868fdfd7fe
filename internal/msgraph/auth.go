package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

var graphScopes = []string{
	"https://graph.microsoft.com/Calendars.Read",
	"offline_access",
}

// authConfig builds the oauth2 device-code configuration for the given
// Azure tenant and application.
func authConfig(tenantID, clientID string) *oauth2.Config {
	authority := "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/"
	return &oauth2.Config{
		ClientID: clientID,
		Scopes:   graphScopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: authority + "devicecode",
			TokenURL:      authority + "token",
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// tokenCache persists OAuth tokens under <dataDir>/auth so repeated
// syncs skip the device-code dance.
type tokenCache struct {
	dir string
}

func newTokenCache(dataDir string) *tokenCache {
	return &tokenCache{dir: filepath.Join(dataDir, "auth")}
}

func (c *tokenCache) file() string {
	return filepath.Join(c.dir, "msgraph_tokens.json")
}

// load returns the cached token, or nil when none is usable. A corrupt
// cache only costs a re-authentication, so it is warned about and
// discarded rather than surfaced.
func (c *tokenCache) load() *oauth2.Token {
	data, err := os.ReadFile(c.file())
	if err != nil {
		return nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: corrupt token cache %s, sign-in required\n", c.file())
		return nil
	}
	return &tok
}

func (c *tokenCache) store(tok *oauth2.Token) error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmp := c.file() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing token cache: %w", err)
	}
	if err := os.Rename(tmp, c.file()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("saving token cache: %w", err)
	}
	return nil
}

// freshToken returns a usable access token: the cached one when still
// valid, a silently refreshed one when a refresh token exists, or the
// result of a new interactive device-code sign-in.
func freshToken(ctx context.Context, cache *tokenCache, cfg *oauth2.Config) (*oauth2.Token, error) {
	tok := cache.load()
	if tok != nil && tok.Valid() {
		return tok, nil
	}

	if tok != nil && tok.RefreshToken != "" {
		refreshed, err := cfg.TokenSource(ctx, tok).Token()
		if err == nil {
			if err := cache.store(refreshed); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not save refreshed token: %v\n", err)
			}
			return refreshed, nil
		}
		fmt.Fprintf(os.Stderr, "Token refresh failed (%v), signing in again...\n", err)
	}

	return deviceLogin(ctx, cache, cfg)
}

// deviceLogin runs the interactive device-code flow, printing the
// verification URL and user code and blocking until the user completes
// the sign-in or ctx is cancelled.
func deviceLogin(ctx context.Context, cache *tokenCache, cfg *oauth2.Config) (*oauth2.Token, error) {
	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request failed: %w", err)
	}

	fmt.Println()
	fmt.Println("To sign in, use a web browser to open the page:")
	fmt.Printf("  %s\n", resp.VerificationURI)
	fmt.Printf("Enter the code: %s\n", resp.UserCode)
	fmt.Println()

	tok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device authentication failed: %w", err)
	}
	if err := cache.store(tok); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save token: %v\n", err)
	}
	return tok, nil
}
