package services

import (
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/finity-auth/apiserver/config"
)

// Supported OAuth provider names.
const (
	ProviderGoogle  = "google"
	ProviderDiscord = "discord"
	ProviderTwitter = "twitter"
)

// Providers lists every supported OAuth provider name.
var Providers = []string{ProviderGoogle, ProviderDiscord, ProviderTwitter}

// ErrUnknownProvider is returned for provider names outside Providers.
type ErrUnknownProvider struct {
	Provider string
}

func (e *ErrUnknownProvider) Error() string {
	return fmt.Sprintf("unknown oauth provider: %s", e.Provider)
}

// ErrProviderNotConfigured is returned when a known provider has no client
// credentials set.
type ErrProviderNotConfigured struct {
	Provider string
}

func (e *ErrProviderNotConfigured) Error() string {
	return fmt.Sprintf("oauth provider not configured: %s", e.Provider)
}

var (
	discordEndpoint = oauth2.Endpoint{
		AuthURL:  "https://discord.com/api/oauth2/authorize",
		TokenURL: "https://discord.com/api/oauth2/token",
	}
	twitterEndpoint = oauth2.Endpoint{
		AuthURL:  "https://twitter.com/i/oauth2/authorize",
		TokenURL: "https://api.twitter.com/2/oauth2/token",
	}
)

// OAuthService builds authorization URLs for the configured providers.
// Token exchange happens elsewhere; this service only templates URLs from
// static configuration, so every method is deterministic.
type OAuthService struct {
	cfg        config.OAuthConfig
	backendURL string
}

func NewOAuthService(cfg config.OAuthConfig, backendURL string) *OAuthService {
	return &OAuthService{cfg: cfg, backendURL: backendURL}
}

// Configured reports whether the named provider has both a client ID and a
// client secret, i.e. whether an authorization URL can be built for it.
// Unknown providers report false.
func (s *OAuthService) Configured(provider string) bool {
	creds, ok := s.credentials(provider)
	return ok && creds.ClientID != "" && creds.ClientSecret != ""
}

// CallbackURL returns the redirect address that must be registered with the
// provider. Defined for unknown providers too, since the audit command
// prints the full list.
func (s *OAuthService) CallbackURL(provider string) string {
	return fmt.Sprintf("%s/api/auth/social/%s/callback", s.backendURL, provider)
}

// AuthorizationURL builds the provider's authorization URL with the given
// state parameter.
func (s *OAuthService) AuthorizationURL(provider, state string) (string, error) {
	creds, ok := s.credentials(provider)
	if !ok {
		return "", &ErrUnknownProvider{Provider: provider}
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return "", &ErrProviderNotConfigured{Provider: provider}
	}

	conf := s.oauth2Config(provider, creds)
	return conf.AuthCodeURL(state), nil
}

func (s *OAuthService) oauth2Config(provider string, creds config.OAuthProviderConfig) *oauth2.Config {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  s.CallbackURL(provider),
	}

	switch provider {
	case ProviderGoogle:
		conf.Endpoint = google.Endpoint
		conf.Scopes = []string{"openid", "email", "profile"}
	case ProviderDiscord:
		conf.Endpoint = discordEndpoint
		conf.Scopes = []string{"identify", "email"}
	case ProviderTwitter:
		conf.Endpoint = twitterEndpoint
		conf.Scopes = []string{"tweet.read", "users.read"}
	}

	return conf
}

func (s *OAuthService) credentials(provider string) (config.OAuthProviderConfig, bool) {
	switch provider {
	case ProviderGoogle:
		return s.cfg.Google, true
	case ProviderDiscord:
		return s.cfg.Discord, true
	case ProviderTwitter:
		return s.cfg.Twitter, true
	}
	return config.OAuthProviderConfig{}, false
}
