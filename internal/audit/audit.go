// Package audit implements the configuration and data checks behind the
// audit command: environment variables, database connectivity, the admin
// account, the user listing, and OAuth provider configuration.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/finity-auth/apiserver/config"
	"github.com/finity-auth/apiserver/internal/services"
	"github.com/finity-auth/apiserver/internal/store"
	"github.com/finity-auth/apiserver/types"
)

// Runner executes the individual checks. db may be nil when the connection
// itself failed; only CheckEnv and CheckOAuthProviders work without it.
type Runner struct {
	cfg   config.Config
	db    *sql.DB
	users *store.UserRepository
	oauth *services.OAuthService
}

func NewRunner(cfg config.Config, db *sql.DB) *Runner {
	runner := &Runner{
		cfg:   cfg,
		db:    db,
		oauth: services.NewOAuthService(cfg.OAuth, cfg.BackendURL),
	}
	if db != nil {
		runner.users = store.NewUserRepository(db)
	}
	return runner
}

// EnvCheck reports one required setting. Sensitive values are masked in
// Display.
type EnvCheck struct {
	Name    string
	Set     bool
	Display string
}

// CheckEnv verifies every required setting is present.
func (r *Runner) CheckEnv() []EnvCheck {
	type setting struct {
		name   string
		value  string
		secret bool
	}

	settings := []setting{
		{"JWT_SECRET_KEY", r.cfg.JWTSecret, true},
		{"GOOGLE_CLIENT_ID", r.cfg.OAuth.Google.ClientID, false},
		{"GOOGLE_CLIENT_SECRET", r.cfg.OAuth.Google.ClientSecret, true},
		{"DISCORD_CLIENT_ID", r.cfg.OAuth.Discord.ClientID, false},
		{"DISCORD_CLIENT_SECRET", r.cfg.OAuth.Discord.ClientSecret, true},
		{"TWITTER_CLIENT_ID", r.cfg.OAuth.Twitter.ClientID, false},
		{"TWITTER_CLIENT_SECRET", r.cfg.OAuth.Twitter.ClientSecret, true},
		{"ADMIN_EMAIL", r.cfg.AdminEmail, false},
		{"ADMIN_PASSWORD", r.cfg.AdminPassword, true},
		{"FRONTEND_URL", r.cfg.FrontendURL, false},
		{"BACKEND_URL", r.cfg.BackendURL, false},
	}

	checks := make([]EnvCheck, 0, len(settings))
	for _, s := range settings {
		check := EnvCheck{Name: s.name, Set: s.value != ""}
		if check.Set {
			check.Display = s.value
			if s.secret {
				check.Display = maskValue(s.value)
			}
		}
		checks = append(checks, check)
	}
	return checks
}

// CheckDatabase verifies connectivity with a trivial query.
func (r *Runner) CheckDatabase(ctx context.Context) error {
	if r.db == nil {
		return errors.New("no database connection")
	}
	var one int
	return r.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// AdminCheck reports the state of the configured admin account.
type AdminCheck struct {
	Found bool
	// FoundNonAdmin is set when the configured email exists but the record
	// does not hold the admin role.
	FoundNonAdmin bool
	Role          types.Role
	IsVerified    bool
	IsActive      bool
	HasPassword   bool
	// PasswordValid is nil when verification was not possible (no stored
	// hash or no configured admin password).
	PasswordValid *bool
}

// CheckAdminUser verifies the configured admin account exists, holds the
// admin role, and that the configured password matches the stored hash.
func (r *Runner) CheckAdminUser(ctx context.Context) (AdminCheck, error) {
	if r.users == nil {
		return AdminCheck{}, errors.New("no database connection")
	}
	if r.cfg.AdminEmail == "" {
		return AdminCheck{}, errors.New("ADMIN_EMAIL not set")
	}

	user, err := r.users.GetByEmail(ctx, r.cfg.AdminEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AdminCheck{}, nil
		}
		return AdminCheck{}, err
	}

	if user.Role != types.RoleAdmin {
		return AdminCheck{FoundNonAdmin: true, Role: user.Role}, nil
	}

	check := AdminCheck{
		Found:       true,
		Role:        user.Role,
		IsVerified:  user.IsVerified,
		IsActive:    user.IsActive,
		HasPassword: user.HashedPassword != nil,
	}

	if user.HashedPassword != nil && r.cfg.AdminPassword != "" {
		valid := bcrypt.CompareHashAndPassword([]byte(*user.HashedPassword), []byte(r.cfg.AdminPassword)) == nil
		check.PasswordValid = &valid
	}

	return check, nil
}

// UserSummary is one row of the user listing.
type UserSummary struct {
	Email      string
	Role       types.Role
	IsVerified bool
	IsActive   bool
	AuthType   string
}

// ListUsers summarizes every user record with its derived auth type.
func (r *Runner) ListUsers(ctx context.Context) ([]UserSummary, error) {
	if r.users == nil {
		return nil, errors.New("no database connection")
	}

	users, err := r.users.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]UserSummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, UserSummary{
			Email:      user.Email,
			Role:       user.Role,
			IsVerified: user.IsVerified,
			IsActive:   user.IsActive,
			AuthType:   user.AuthType(),
		})
	}
	return summaries, nil
}

// ProviderCheck reports whether one OAuth provider can build an
// authorization URL, and the callback URL that must be registered with it.
type ProviderCheck struct {
	Provider         string
	Configured       bool
	AuthorizationURL string
	CallbackURL      string
}

// CheckOAuthProviders probes every supported provider.
func (r *Runner) CheckOAuthProviders() []ProviderCheck {
	checks := make([]ProviderCheck, 0, len(services.Providers))
	for _, provider := range services.Providers {
		check := ProviderCheck{
			Provider:    provider,
			Configured:  r.oauth.Configured(provider),
			CallbackURL: r.oauth.CallbackURL(provider),
		}
		if check.Configured {
			if authURL, err := r.oauth.AuthorizationURL(provider, "audit"); err == nil {
				check.AuthorizationURL = authURL
			} else {
				check.Configured = false
			}
		}
		checks = append(checks, check)
	}
	return checks
}

func maskValue(value string) string {
	n := len(value)
	if n > 20 {
		n = 20
	}
	return strings.Repeat("*", n) + " (hidden)"
}
