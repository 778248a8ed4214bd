package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		clientID    string
		tenant      string
		expectError bool
	}{
		{
			name:     "Valid configuration",
			clientID: "client-id",
			tenant:   "consumers",
		},
		{
			name:     "Empty tenant defaults to consumers",
			clientID: "client-id",
			tenant:   "",
		},
		{
			name:        "Missing client ID",
			clientID:    "",
			tenant:      "consumers",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.clientID, tt.tenant)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if p.config.Endpoint.DeviceAuthURL == "" {
				t.Error("Expected device auth endpoint to be set")
			}
		})
	}
}

func TestAccessTokenReturnsCachedToken(t *testing.T) {
	p, err := New("client-id", "consumers")
	if err != nil {
		t.Fatal(err)
	}
	p.token = &oauth2.Token{
		AccessToken: "cached-token",
		Expiry:      time.Now().Add(time.Hour),
	}

	got, err := p.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "cached-token" {
		t.Errorf("Expected cached token, got %q", got)
	}
}

func TestRefreshUsesRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("Failed to parse form: %v", err)
		}
		if got := r.FormValue("grant_type"); got != "refresh_token" {
			t.Errorf("Expected refresh_token grant, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"new-token","token_type":"Bearer","expires_in":3600,"refresh_token":"rt2"}`)
	}))
	defer srv.Close()

	p, err := New("client-id", "consumers")
	if err != nil {
		t.Fatal(err)
	}
	p.config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL, TokenURL: srv.URL}
	p.token = &oauth2.Token{
		AccessToken:  "stale-token",
		RefreshToken: "rt1",
		Expiry:       time.Now().Add(time.Hour),
	}

	got, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "new-token" {
		t.Errorf("Expected refreshed token, got %q", got)
	}
	if p.token.AccessToken != "new-token" {
		t.Errorf("Expected cached token updated, got %q", p.token.AccessToken)
	}
}
