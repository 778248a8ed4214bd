package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/takak2166/onenote2markdown/internal/logger"
)

// Scopes requested for the export. offline_access yields a refresh token so
// long runs survive access token expiry without another interactive login.
var Scopes = []string{"offline_access", "Notes.Read", "Notes.Read.All", "User.Read"}

// Provider acquires Microsoft Graph tokens through the OAuth2 device code
// flow and caches them for the lifetime of the run. It satisfies the graph
// package's TokenProvider interface.
type Provider struct {
	config *oauth2.Config

	mu    sync.Mutex
	token *oauth2.Token
}

// New creates a Provider for the given Azure application and tenant.
func New(clientID, tenant string) (*Provider, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if tenant == "" {
		tenant = "consumers"
	}

	endpoint := microsoft.AzureADEndpoint(tenant)
	endpoint.DeviceAuthURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/devicecode", tenant)

	return &Provider{
		config: &oauth2.Config{
			ClientID: clientID,
			Endpoint: endpoint,
			Scopes:   Scopes,
		},
	}, nil
}

// AccessToken returns a valid bearer token, running the interactive device
// code flow on first use and refreshing silently afterwards.
func (p *Provider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != nil && p.token.Valid() {
		return p.token.AccessToken, nil
	}
	return p.renew(ctx)
}

// Refresh discards the cached access token and obtains a fresh one. Called
// by the Graph client when a request comes back 401.
func (p *Provider) Refresh(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != nil {
		p.token.Expiry = time.Now().Add(-time.Minute)
	}
	return p.renew(ctx)
}

// renew refreshes via the refresh token when possible, otherwise falls back
// to a new device login. Callers hold p.mu.
func (p *Provider) renew(ctx context.Context) (string, error) {
	if p.token != nil && p.token.RefreshToken != "" {
		tok, err := p.config.TokenSource(ctx, p.token).Token()
		if err == nil {
			p.token = tok
			return tok.AccessToken, nil
		}
		logger.Warn("Token refresh failed, starting a new device login", err, nil)
	}

	tok, err := p.deviceLogin(ctx)
	if err != nil {
		return "", err
	}
	p.token = tok
	return tok.AccessToken, nil
}

func (p *Provider) deviceLogin(ctx context.Context) (*oauth2.Token, error) {
	resp, err := p.config.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start device login: %w", err)
	}

	fmt.Printf("\nTo sign in, open %s and enter the code: %s\n", resp.VerificationURI, resp.UserCode)
	fmt.Println("Waiting for login...")

	tok, err := p.config.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device login failed: %w", err)
	}

	logger.Info("Signed in", map[string]interface{}{
		"expires": tok.Expiry.Format(time.RFC3339),
	})
	return tok, nil
}
