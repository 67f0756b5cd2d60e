package services

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/finity-auth/apiserver/config"
)

func testOAuthConfig() config.OAuthConfig {
	return config.OAuthConfig{
		Google: config.OAuthProviderConfig{
			ClientID:     "google-id",
			ClientSecret: "google-secret",
		},
		Discord: config.OAuthProviderConfig{
			ClientID:     "discord-id",
			ClientSecret: "discord-secret",
		},
	}
}

func TestConfigured(t *testing.T) {
	svc := NewOAuthService(testOAuthConfig(), "http://localhost:8080")

	cases := []struct {
		provider string
		want     bool
	}{
		{ProviderGoogle, true},
		{ProviderDiscord, true},
		{ProviderTwitter, false},
		{"github", false},
	}
	for _, tc := range cases {
		if got := svc.Configured(tc.provider); got != tc.want {
			t.Errorf("Configured(%q) = %v, want %v", tc.provider, got, tc.want)
		}
	}
}

func TestConfiguredPartialCredentials(t *testing.T) {
	cfg := config.OAuthConfig{
		Google: config.OAuthProviderConfig{ClientID: "google-id"},
	}
	svc := NewOAuthService(cfg, "http://localhost:8080")

	if svc.Configured(ProviderGoogle) {
		t.Error("provider with missing secret should not be configured")
	}
}

func TestAuthorizationURL(t *testing.T) {
	svc := NewOAuthService(testOAuthConfig(), "http://localhost:8080")

	raw, err := svc.AuthorizationURL(ProviderGoogle, "state-123")
	if err != nil {
		t.Fatalf("authorization url: %v", err)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if parsed.Host != "accounts.google.com" {
		t.Errorf("host %q, want accounts.google.com", parsed.Host)
	}

	q := parsed.Query()
	if q.Get("client_id") != "google-id" {
		t.Errorf("client_id %q", q.Get("client_id"))
	}
	if q.Get("state") != "state-123" {
		t.Errorf("state %q", q.Get("state"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type %q", q.Get("response_type"))
	}
	if got := q.Get("redirect_uri"); got != "http://localhost:8080/api/auth/social/google/callback" {
		t.Errorf("redirect_uri %q", got)
	}
	if scope := q.Get("scope"); !strings.Contains(scope, "email") {
		t.Errorf("scope %q missing email", scope)
	}
}

func TestAuthorizationURLDiscord(t *testing.T) {
	svc := NewOAuthService(testOAuthConfig(), "http://localhost:8080")

	raw, err := svc.AuthorizationURL(ProviderDiscord, "s")
	if err != nil {
		t.Fatalf("authorization url: %v", err)
	}
	if !strings.HasPrefix(raw, "https://discord.com/api/oauth2/authorize") {
		t.Errorf("url %q, want discord authorize endpoint", raw)
	}
}

func TestAuthorizationURLUnknownProvider(t *testing.T) {
	svc := NewOAuthService(testOAuthConfig(), "http://localhost:8080")

	_, err := svc.AuthorizationURL("github", "s")
	var unknown *ErrUnknownProvider
	if !errors.As(err, &unknown) {
		t.Fatalf("error %v, want ErrUnknownProvider", err)
	}
	if unknown.Provider != "github" {
		t.Errorf("provider %q", unknown.Provider)
	}
}

func TestAuthorizationURLNotConfigured(t *testing.T) {
	svc := NewOAuthService(testOAuthConfig(), "http://localhost:8080")

	_, err := svc.AuthorizationURL(ProviderTwitter, "s")
	var notConfigured *ErrProviderNotConfigured
	if !errors.As(err, &notConfigured) {
		t.Fatalf("error %v, want ErrProviderNotConfigured", err)
	}
	if notConfigured.Provider != ProviderTwitter {
		t.Errorf("provider %q", notConfigured.Provider)
	}
}

func TestCallbackURL(t *testing.T) {
	svc := NewOAuthService(testOAuthConfig(), "https://api.example.com")

	got := svc.CallbackURL(ProviderTwitter)
	want := "https://api.example.com/api/auth/social/twitter/callback"
	if got != want {
		t.Errorf("callback url %q, want %q", got, want)
	}
}
