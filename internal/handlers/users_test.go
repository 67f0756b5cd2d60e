package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/finity-auth/apiserver/config"
	"github.com/finity-auth/apiserver/internal/services"
	"github.com/finity-auth/apiserver/internal/store"
	"github.com/finity-auth/apiserver/types"
)

const testSecret = "test-secret"

// fakeUserRepo backs the handler tests with an in-memory store that
// enforces the same uniqueness rules as the database schema.
type fakeUserRepo struct {
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]types.User)}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	for _, user := range r.users {
		if user.Username != nil && *user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) List(_ context.Context) ([]types.User, error) {
	var users []types.User
	for _, user := range r.users {
		users = append(users, user)
	}
	return users, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	if conflict := r.conflict(0, &user.Email, user.Username); conflict != nil {
		return types.User{}, conflict
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, id int, params store.UpdateProfileParams) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if conflict := r.conflict(id, params.Email, params.Username); conflict != nil {
		return types.User{}, conflict
	}
	if params.Email != nil {
		user.Email = *params.Email
	}
	if params.Username != nil {
		user.Username = params.Username
	}
	if params.ClearFullName {
		user.FullName = nil
	} else if params.FullName != nil {
		user.FullName = params.FullName
	}
	r.users[id] = user
	return user, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) Stats(_ context.Context) (types.UserStats, error) {
	var stats types.UserStats
	for _, user := range r.users {
		stats.TotalUsers++
		if user.IsActive {
			stats.ActiveUsers++
		}
		if user.IsVerified {
			stats.VerifiedUsers++
		}
		if user.Role == types.RoleAdmin {
			stats.AdminUsers++
		}
	}
	return stats, nil
}

func (r *fakeUserRepo) conflict(selfID int, email, username *string) error {
	for id, user := range r.users {
		if id == selfID {
			continue
		}
		if email != nil && user.Email == *email {
			return &store.ConflictError{Field: "email"}
		}
		if username != nil && user.Username != nil && *user.Username == *username {
			return &store.ConflictError{Field: "username"}
		}
	}
	return nil
}

func (r *fakeUserRepo) promote(id int) {
	user := r.users[id]
	user.Role = types.RoleAdmin
	r.users[id] = user
}

func newTestRouter(repo *fakeUserRepo) http.Handler {
	userService := services.NewUserService(repo, nil)
	oauthService := services.NewOAuthService(config.OAuthConfig{
		Google: config.OAuthProviderConfig{
			ClientID:     "google-id",
			ClientSecret: "google-secret",
		},
	}, "http://localhost:8080")
	authMiddleware := RequireAuth(testSecret)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, userService, oauthService, testSecret)
	})
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, userService, authMiddleware)
	})
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeAuth(t *testing.T, rec *httptest.ResponseRecorder) AuthResponse {
	t.Helper()
	var parsed AuthResponse
	if err := json.NewDecoder(rec.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode auth response: %v", err)
	}
	return parsed
}

func register(t *testing.T, router http.Handler, email, username string) AuthResponse {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"username": username,
		"password": "secretpass",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s status %d: %s", email, rec.Code, rec.Body.String())
	}
	return decodeAuth(t, rec)
}

func TestRegisterAndMe(t *testing.T) {
	router := newTestRouter(newFakeUserRepo())

	auth := register(t, router, "alice@example.com", "alice")
	if auth.Token == "" {
		t.Fatal("missing token")
	}
	if auth.User.Role != types.RoleUser {
		t.Errorf("role %q, want %q", auth.User.Role, types.RoleUser)
	}

	rec := doJSON(t, router, http.MethodGet, "/auth/me", auth.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status %d: %s", rec.Code, rec.Body.String())
	}

	var me types.User
	if err := json.NewDecoder(rec.Body).Decode(&me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Email != "alice@example.com" {
		t.Errorf("email %q", me.Email)
	}
	if strings.Contains(rec.Body.String(), "hashed_password") {
		t.Error("response leaks hashed_password")
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	router := newTestRouter(newFakeUserRepo())
	register(t, router, "alice@example.com", "alice")

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"username": "alice2",
		"password": "secretpass",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "email") {
		t.Errorf("conflict message should name the field: %s", rec.Body.String())
	}
}

func TestLogin(t *testing.T) {
	router := newTestRouter(newFakeUserRepo())
	register(t, router, "alice@example.com", "alice")

	rec := doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "secretpass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrongpass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status %d, want 401", rec.Code)
	}
}

func TestProfileRequiresAuth(t *testing.T) {
	router := newTestRouter(newFakeUserRepo())

	for _, path := range []string{"/users/me", "/users/admin/users", "/users/admin/stats"} {
		rec := doJSON(t, router, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token status %d, want 401", path, rec.Code)
		}
	}
}

func TestAdminRoutesForbiddenForMembers(t *testing.T) {
	router := newTestRouter(newFakeUserRepo())
	auth := register(t, router, "member@example.com", "member")

	for _, path := range []string{"/users/admin/users", "/users/admin/stats"} {
		rec := doJSON(t, router, http.MethodGet, path, auth.Token, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("GET %s as member status %d, want 403", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "admin role required") {
			t.Errorf("GET %s message should name the missing role: %s", path, rec.Body.String())
		}
	}
}

func TestAdminRoutes(t *testing.T) {
	repo := newFakeUserRepo()
	router := newTestRouter(repo)

	admin := register(t, router, "admin@example.com", "admin")
	repo.promote(admin.User.ID)
	register(t, router, "member@example.com", "member")

	rec := doJSON(t, router, http.MethodGet, "/users/admin/users", admin.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d: %s", rec.Code, rec.Body.String())
	}
	var users []types.User
	if err := json.NewDecoder(rec.Body).Decode(&users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("listed %d users, want 2", len(users))
	}

	rec = doJSON(t, router, http.MethodGet, "/users/admin/stats", admin.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status %d: %s", rec.Code, rec.Body.String())
	}
	var stats types.UserStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	want := types.UserStats{TotalUsers: 2, ActiveUsers: 2, VerifiedUsers: 0, AdminUsers: 1}
	if stats != want {
		t.Errorf("stats %+v, want %+v", stats, want)
	}
}

func TestDeletedUserTokenIsUnauthorized(t *testing.T) {
	repo := newFakeUserRepo()
	router := newTestRouter(repo)
	auth := register(t, router, "gone@example.com", "gone")

	rec := doJSON(t, router, http.MethodDelete, "/users/me", auth.Token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", rec.Code, rec.Body.String())
	}

	// The token still parses; identity resolution fails instead. That must
	// read as unauthenticated, not denied.
	for _, path := range []string{"/users/me", "/users/admin/stats", "/auth/me"} {
		rec := doJSON(t, router, http.MethodGet, path, auth.Token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s with stale token status %d, want 401", path, rec.Code)
		}
	}
}

func TestUpdateProfile(t *testing.T) {
	router := newTestRouter(newFakeUserRepo())
	auth := register(t, router, "alice@example.com", "alice")

	rec := doJSON(t, router, http.MethodPut, "/users/me", auth.Token, map[string]string{
		"full_name": "Alice A.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status %d: %s", rec.Code, rec.Body.String())
	}

	var updated types.User
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode updated user: %v", err)
	}
	if updated.FullName == nil || *updated.FullName != "Alice A." {
		t.Errorf("full name %v", updated.FullName)
	}
	if updated.Email != "alice@example.com" {
		t.Errorf("email changed unexpectedly: %q", updated.Email)
	}
}

func TestUpdateProfileConflict(t *testing.T) {
	router := newTestRouter(newFakeUserRepo())
	auth := register(t, router, "alice@example.com", "alice")
	register(t, router, "bob@example.com", "bob")

	rec := doJSON(t, router, http.MethodPut, "/users/me", auth.Token, map[string]string{
		"username": "bob",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "username") {
		t.Errorf("conflict message should name the field: %s", rec.Body.String())
	}
}

func TestUpdateProfileInvalidEmail(t *testing.T) {
	router := newTestRouter(newFakeUserRepo())
	auth := register(t, router, "alice@example.com", "alice")

	rec := doJSON(t, router, http.MethodPut, "/users/me", auth.Token, map[string]string{
		"email": "not-an-email",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestSocialLogin(t *testing.T) {
	router := newTestRouter(newFakeUserRepo())

	rec := doJSON(t, router, http.MethodGet, "/auth/social/google/login", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var parsed SocialLoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if parsed.Provider != "google" {
		t.Errorf("provider %q", parsed.Provider)
	}
	if !strings.Contains(parsed.AuthorizationURL, "client_id=google-id") {
		t.Errorf("authorization url %q", parsed.AuthorizationURL)
	}
	if !strings.Contains(parsed.AuthorizationURL, "state=") {
		t.Errorf("authorization url missing state: %q", parsed.AuthorizationURL)
	}
}

func TestSocialLoginUnknownProvider(t *testing.T) {
	router := newTestRouter(newFakeUserRepo())

	rec := doJSON(t, router, http.MethodGet, "/auth/social/github/login", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestSocialLoginNotConfigured(t *testing.T) {
	router := newTestRouter(newFakeUserRepo())

	rec := doJSON(t, router, http.MethodGet, "/auth/social/discord/login", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400: %s", rec.Code, rec.Body.String())
	}
}
